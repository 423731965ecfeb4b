package template

import (
	"context"
	"fmt"
	"regexp"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/repository"
)

// 占位符形如 ${name}
var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// Renderer 模版渲染器
//
//go:generate mockgen -source=./renderer.go -destination=./mocks/renderer.mock.go -package=templatemocks -typed Renderer
type Renderer interface {
	// Render 按渠道渲染通知内容。
	// 缺少必填变量或占位符没有对应参数时返回 errs.ErrMissingVariable，
	// 渲染失败是永久失败，调用方应放弃整个请求而不是换渠道重试
	Render(ctx context.Context, req domain.NotificationRequest, channel domain.Channel) (string, error)
}

type renderer struct {
	repo repository.TemplateRepository
}

func NewRenderer(repo repository.TemplateRepository) Renderer {
	return &renderer{repo: repo}
}

func (r *renderer) Render(ctx context.Context, req domain.NotificationRequest, channel domain.Channel) (string, error) {
	tpl, err := r.repo.GetByID(ctx, req.TemplateID)
	if err != nil {
		return "", err
	}
	for _, name := range tpl.RequiredVars {
		if _, ok := req.Params[name]; !ok {
			return "", fmt.Errorf("%w: %s", errs.ErrMissingVariable, name)
		}
	}
	content, ok := tpl.VariantFor(channel)
	if !ok {
		return "", fmt.Errorf("%w: 模版 %d 没有 %s 渠道变体", errs.ErrTemplateNotFound, tpl.ID, channel)
	}
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(content, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		v, ok := req.Params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s", errs.ErrMissingVariable, missing)
	}
	return rendered, nil
}

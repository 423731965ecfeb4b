package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/dao"
)

type TemplateRepository interface {
	GetByID(ctx context.Context, id int64) (domain.MessageTemplate, error)
	GetByType(ctx context.Context, typ domain.NotificationType) (domain.MessageTemplate, error)
	Create(ctx context.Context, tpl domain.MessageTemplate) (domain.MessageTemplate, error)
}

type templateRepository struct {
	dao dao.MessageTemplateDAO
}

func NewTemplateRepository(d dao.MessageTemplateDAO) TemplateRepository {
	return &templateRepository{dao: d}
}

func (repo *templateRepository) GetByID(ctx context.Context, id int64) (domain.MessageTemplate, error) {
	tpl, variants, err := repo.dao.GetByID(ctx, id)
	if err != nil {
		return domain.MessageTemplate{}, err
	}
	return toTemplateDomain(tpl, variants)
}

func (repo *templateRepository) GetByType(ctx context.Context, typ domain.NotificationType) (domain.MessageTemplate, error) {
	tpl, variants, err := repo.dao.GetByType(ctx, string(typ))
	if err != nil {
		return domain.MessageTemplate{}, err
	}
	return toTemplateDomain(tpl, variants)
}

func (repo *templateRepository) Create(ctx context.Context, tpl domain.MessageTemplate) (domain.MessageTemplate, error) {
	requiredVars, err := json.Marshal(tpl.RequiredVars)
	if err != nil {
		return domain.MessageTemplate{}, fmt.Errorf("序列化必填变量失败: %w", err)
	}
	variants := make([]dao.MessageTemplateVariant, 0, len(tpl.Variants))
	for channel, content := range tpl.Variants {
		variants = append(variants, dao.MessageTemplateVariant{
			Channel: channel.String(),
			Content: content,
		})
	}
	created, err := repo.dao.Create(ctx, dao.MessageTemplate{
		Type:         string(tpl.Type),
		RequiredVars: string(requiredVars),
	}, variants)
	if err != nil {
		return domain.MessageTemplate{}, err
	}
	tpl.ID = created.ID
	return tpl, nil
}

func toTemplateDomain(tpl dao.MessageTemplate, variants []dao.MessageTemplateVariant) (domain.MessageTemplate, error) {
	var requiredVars []string
	if err := json.Unmarshal([]byte(tpl.RequiredVars), &requiredVars); err != nil {
		return domain.MessageTemplate{}, fmt.Errorf("反序列化必填变量失败: %w", err)
	}
	variantMap := make(map[domain.Channel]string, len(variants))
	for _, v := range variants {
		variantMap[domain.Channel(v.Channel)] = v.Content
	}
	return domain.MessageTemplate{
		ID:           tpl.ID,
		Type:         domain.NotificationType(tpl.Type),
		Variants:     variantMap,
		RequiredVars: requiredVars,
	}, nil
}

package channel

import (
	"context"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/service/provider/sms/client"
)

// DefaultSMSCost 单条短信默认成本，单位：分
const DefaultSMSCost int64 = 8

// SMSConfig 短信渠道配置
type SMSConfig struct {
	SignName   string `yaml:"signName"`
	TemplateID string `yaml:"templateID"`
	// Cost 单条成本（分），0 表示使用默认值
	Cost int64 `yaml:"cost"`
}

// smsAdapter 短信渠道，唯一的付费渠道。
// 多个供应商按顺序兜底：前一家失败就换下一家，全部失败才算本次尝试失败
type smsAdapter struct {
	clients []client.Client
	cfg     SMSConfig
}

func NewSMSAdapter(clients []client.Client, cfg SMSConfig) Adapter {
	if cfg.Cost <= 0 {
		cfg.Cost = DefaultSMSCost
	}
	return &smsAdapter{clients: clients, cfg: cfg}
}

func (a *smsAdapter) Channel() domain.Channel {
	return domain.ChannelSMS
}

func (a *smsAdapter) Send(ctx context.Context, recipient domain.Recipient, content string) (domain.SendResponse, error) {
	if recipient.Phone == "" {
		return domain.SendResponse{}, &PermanentError{Err: fmt.Errorf("%w: 接收人没有手机号", errs.ErrInvalidParameter)}
	}
	start := time.Now()
	var lastErr error
	for _, cli := range a.clients {
		if ctx.Err() != nil {
			return domain.SendResponse{}, &TransientError{Err: ctx.Err()}
		}
		resp, err := cli.Send(client.SendReq{
			PhoneNumbers: []string{recipient.Phone},
			SignName:     a.cfg.SignName,
			TemplateID:   a.cfg.TemplateID,
			TemplateParam: map[string]string{
				"content": content,
			},
		})
		if err != nil {
			lastErr = fmt.Errorf("供应商 %s: %w", cli.Name(), err)
			continue
		}
		status, ok := resp.PhoneNumbers[recipient.Phone]
		if ok && status.Code != client.OK {
			lastErr = fmt.Errorf("供应商 %s 返回 %s: %s", cli.Name(), status.Code, status.Message)
			continue
		}
		return domain.SendResponse{
			Cost:    a.cfg.Cost,
			Latency: time.Since(start),
		}, nil
	}
	if lastErr == nil {
		lastErr = errs.ErrNoAvailableProvider
	}
	return domain.SendResponse{}, &TransientError{Err: fmt.Errorf("%w: %w", errs.ErrSendNotificationFailed, lastErr)}
}

// Probe 短信没有可达性探测接口，有手机号就认为可达
func (a *smsAdapter) Probe(_ context.Context, recipient domain.Recipient) (bool, error) {
	return recipient.Phone != "", nil
}

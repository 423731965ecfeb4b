package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
)

// WhatsAppClient WhatsApp Business 网关客户端
//
//go:generate mockgen -source=./whatsapp.go -destination=./mocks/whatsapp.mock.go -package=channelmocks -typed WhatsAppClient
type WhatsAppClient interface {
	SendMessage(ctx context.Context, phone, content string) error
	// CheckContact 号码是否注册了 WhatsApp
	CheckContact(ctx context.Context, phone string) (bool, error)
}

// whatsappAdapter WhatsApp渠道，免费
type whatsappAdapter struct {
	client WhatsAppClient
}

func NewWhatsAppAdapter(client WhatsAppClient) Adapter {
	return &whatsappAdapter{client: client}
}

func (a *whatsappAdapter) Channel() domain.Channel {
	return domain.ChannelWhatsApp
}

func (a *whatsappAdapter) Send(ctx context.Context, recipient domain.Recipient, content string) (domain.SendResponse, error) {
	if recipient.Phone == "" {
		return domain.SendResponse{}, &PermanentError{Err: fmt.Errorf("%w: 接收人没有手机号", errs.ErrInvalidParameter)}
	}
	start := time.Now()
	err := a.client.SendMessage(ctx, recipient.Phone, content)
	if err != nil {
		return domain.SendResponse{}, err
	}
	return domain.SendResponse{
		Cost:    0,
		Latency: time.Since(start),
	}, nil
}

func (a *whatsappAdapter) Probe(ctx context.Context, recipient domain.Recipient) (bool, error) {
	if recipient.Phone == "" {
		return false, nil
	}
	return a.client.CheckContact(ctx, recipient.Phone)
}

// HTTPWhatsAppClient 经由 Business API 网关发送
type HTTPWhatsAppClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPWhatsAppClient(baseURL, token string, timeout time.Duration) *HTTPWhatsAppClient {
	return &HTTPWhatsAppClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPWhatsAppClient) SendMessage(ctx context.Context, phone, content string) error {
	body, err := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "text",
		"text":              map[string]string{"body": content},
	})
	if err != nil {
		return &PermanentError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return &PermanentError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// 网络错误和超时都当瞬时失败
		return &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{Err: fmt.Errorf("%w: 网关响应 %d", errs.ErrSendNotificationFailed, resp.StatusCode)}
	default:
		// 4xx：号码无效、未注册等
		return &PermanentError{Err: fmt.Errorf("%w: 网关响应 %d", errs.ErrSendNotificationFailed, resp.StatusCode)}
	}
}

func (c *HTTPWhatsAppClient) CheckContact(ctx context.Context, phone string) (bool, error) {
	body, err := json.Marshal(map[string]any{
		"blocking": "wait",
		"contacts": []string{phone},
	})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var result struct {
		Contacts []struct {
			Status string `json:"status"`
		} `json:"contacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, err
	}
	return len(result.Contacts) > 0 && result.Contacts[0].Status == "valid", nil
}

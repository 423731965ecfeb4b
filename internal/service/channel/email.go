package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
)

// EmailClient 邮件发送客户端
//
//go:generate mockgen -source=./email.go -destination=./mocks/email.mock.go -package=channelmocks -typed EmailClient
type EmailClient interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// emailAdapter 邮件渠道，免费，始终视为可达
type emailAdapter struct {
	client  EmailClient
	subject string
}

func NewEmailAdapter(client EmailClient, subject string) Adapter {
	return &emailAdapter{client: client, subject: subject}
}

func (a *emailAdapter) Channel() domain.Channel {
	return domain.ChannelEmail
}

func (a *emailAdapter) Send(ctx context.Context, recipient domain.Recipient, content string) (domain.SendResponse, error) {
	if recipient.Email == "" {
		return domain.SendResponse{}, &PermanentError{Err: fmt.Errorf("%w: 接收人没有邮箱", errs.ErrInvalidParameter)}
	}
	start := time.Now()
	err := a.client.SendMail(ctx, recipient.Email, a.subject, content)
	if err != nil {
		return domain.SendResponse{}, err
	}
	return domain.SendResponse{
		Cost:    0,
		Latency: time.Since(start),
	}, nil
}

// Probe 邮件不做探测，始终认为可达，真实结论由发送给出
func (a *emailAdapter) Probe(_ context.Context, recipient domain.Recipient) (bool, error) {
	return recipient.Email != "", nil
}

// SMTPEmailClient 直连SMTP服务器
type SMTPEmailClient struct {
	addr     string // host:port
	from     string
	username string
	password string
	host     string
}

func NewSMTPEmailClient(addr, from, username, password string) *SMTPEmailClient {
	host := addr
	if idx := strings.Index(addr, ":"); idx > 0 {
		host = addr[:idx]
	}
	return &SMTPEmailClient{
		addr:     addr,
		from:     from,
		username: username,
		password: password,
		host:     host,
	}
}

func (c *SMTPEmailClient) SendMail(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		c.from, to, subject, body)

	// net/smtp 不接受 ctx，放到单独的goroutine里配合超时
	done := make(chan error, 1)
	go func() {
		auth := smtp.PlainAuth("", c.username, c.password, c.host)
		done <- smtp.SendMail(c.addr, auth, c.from, []string{to}, []byte(msg))
	}()
	select {
	case <-ctx.Done():
		return &TransientError{Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return classifySMTPError(err)
		}
		return nil
	}
}

// classifySMTPError 55x 表示地址被拒，其余按瞬时失败处理
func classifySMTPError(err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, "550") || strings.HasPrefix(msg, "551") || strings.HasPrefix(msg, "553") {
		return &PermanentError{Err: err}
	}
	return &TransientError{Err: err}
}

package channel

import (
	"context"
	"errors"

	"gitee.com/flycash/trip-platform/internal/domain"
)

// Adapter 渠道适配器
// 协议细节由各实现消化，调度引擎只看抽象的成功/瞬时失败/永久失败
//
//go:generate mockgen -source=./types.go -destination=./mocks/adapter.mock.go -package=channelmocks -typed Adapter
type Adapter interface {
	Channel() domain.Channel
	// Send 发送渲染好的内容。瞬时失败返回 *TransientError，永久失败返回 *PermanentError
	Send(ctx context.Context, recipient domain.Recipient, content string) (domain.SendResponse, error)
	// Probe 探测当前能否送达该接收人，结果会被调用方缓存
	Probe(ctx context.Context, recipient domain.Recipient) (bool, error)
}

// TransientError 瞬时失败：超时、供应商5xx、限流，可以在同一渠道重试
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "瞬时失败: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError 永久失败：接收人无效、已退订，该渠道不再重试
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "永久失败: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsPermanent 判断是否永久失败。默认按瞬时失败处理，超时也算瞬时
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

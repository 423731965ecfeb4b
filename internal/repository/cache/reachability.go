package cache

import (
	"context"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
)

// DefaultTTL 可达性结论的固定有效期
// 不可达的结论同样缓存满24小时，避免对供应商探测接口的调用量失控
const DefaultTTL = 24 * time.Hour

// ReachabilityCache 回答"渠道X现在能不能送达接收人R"
// 读可以并发无锁，写采用最后写入者胜出，轻微的脏读可以接受
type ReachabilityCache interface {
	// Lookup 第二个返回值为 false 表示结论缺失或已过期，需要探测
	Lookup(ctx context.Context, recipient string, channel domain.Channel) (reachable, ok bool)
	Set(ctx context.Context, recipient string, channel domain.Channel, reachable bool) error
}

// Key 缓存键
func Key(recipient string, channel domain.Channel) string {
	return fmt.Sprintf("reachability:%s:%s", channel, recipient)
}

// Layered 本地+Redis两级缓存
// 本地命中直接返回；Redis命中回填本地；写入两级都写
type Layered struct {
	local  ReachabilityCache
	shared ReachabilityCache
}

func NewLayered(local, shared ReachabilityCache) *Layered {
	return &Layered{local: local, shared: shared}
}

func (l *Layered) Lookup(ctx context.Context, recipient string, channel domain.Channel) (reachable, ok bool) {
	if reachable, ok = l.local.Lookup(ctx, recipient, channel); ok {
		return reachable, true
	}
	reachable, ok = l.shared.Lookup(ctx, recipient, channel)
	if ok {
		// 回填本地，失败无所谓，下次再查Redis
		_ = l.local.Set(ctx, recipient, channel, reachable)
	}
	return reachable, ok
}

func (l *Layered) Set(ctx context.Context, recipient string, channel domain.Channel, reachable bool) error {
	_ = l.local.Set(ctx, recipient, channel, reachable)
	return l.shared.Set(ctx, recipient, channel, reachable)
}

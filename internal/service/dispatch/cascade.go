package dispatch

import (
	"context"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/cache"
	"gitee.com/flycash/trip-platform/internal/service/channel"
	"github.com/gotomicro/ego/core/elog"
)

// 探测也是网络调用，单独限时
const probeTimeout = 10 * time.Second

// Cascade 为一条请求构造候选渠道序列，按成本从低到高。
// WhatsApp 要先过可达性缓存，缺失结论时同步探测一次并回写；
// 邮件始终视为可用；短信兜底，发送时才做预算授权
type Cascade struct {
	// 按成本升序
	adapters []channel.Adapter
	cache    cache.ReachabilityCache
	logger   *elog.Component
}

func NewCascade(adapters []channel.Adapter, reachability cache.ReachabilityCache) *Cascade {
	return &Cascade{
		adapters: adapters,
		cache:    reachability,
		logger:   elog.DefaultLogger,
	}
}

// Candidates 返回本次分发的候选渠道，顺序即尝试顺序
func (c *Cascade) Candidates(ctx context.Context, recipient domain.Recipient) []channel.Adapter {
	candidates := make([]channel.Adapter, 0, len(c.adapters))
	for _, adapter := range c.adapters {
		if c.available(ctx, adapter, recipient) {
			candidates = append(candidates, adapter)
		}
	}
	return candidates
}

func (c *Cascade) available(ctx context.Context, adapter channel.Adapter, recipient domain.Recipient) bool {
	ch := adapter.Channel()
	switch ch {
	case domain.ChannelEmail:
		// 邮件始终进候选，没有邮箱地址的情况由发送失败兜住
		return true
	case domain.ChannelSMS:
		return recipient.Phone != ""
	default:
	}
	key := reachabilityKey(recipient, ch)
	if key == "" {
		return false
	}
	if reachable, ok := c.cache.Lookup(ctx, key, ch); ok {
		return reachable
	}
	// 结论缺失，同步探测一次
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	reachable, err := adapter.Probe(probeCtx, recipient)
	if err != nil {
		// 探测失败不缓存，本次按不可达处理，下一条请求还有机会
		c.logger.Warn("可达性探测失败",
			elog.FieldErr(err),
			elog.String("channel", ch.String()))
		return false
	}
	if err := c.cache.Set(ctx, key, ch, reachable); err != nil {
		c.logger.Warn("写入可达性缓存失败",
			elog.FieldErr(err),
			elog.String("channel", ch.String()))
	}
	return reachable
}

// reachabilityKey 接收人在该渠道上的缓存键
func reachabilityKey(recipient domain.Recipient, ch domain.Channel) string {
	switch ch {
	case domain.ChannelEmail:
		return recipient.Email
	default:
		return recipient.Phone
	}
}

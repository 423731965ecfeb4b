package local

import (
	"context"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/cache"
	ca "github.com/patrickmn/go-cache"
)

type entry struct {
	reachable bool
	checkedAt time.Time
}

// Cache 进程内可达性缓存
// 过期判断基于自己记录的 checkedAt，方便测试注入时钟
type Cache struct {
	c   *ca.Cache
	ttl time.Duration
	now func() time.Time
}

type Option func(*Cache)

// WithNow 测试用，注入时钟
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(c *ca.Cache, opts ...Option) *Cache {
	res := &Cache{
		c:   c,
		ttl: cache.DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func (l *Cache) Lookup(_ context.Context, recipient string, channel domain.Channel) (reachable, ok bool) {
	v, found := l.c.Get(cache.Key(recipient, channel))
	if !found {
		return false, false
	}
	e := v.(entry)
	if l.now().Sub(e.checkedAt) >= l.ttl {
		return false, false
	}
	return e.reachable, true
}

func (l *Cache) Set(_ context.Context, recipient string, channel domain.Channel, reachable bool) error {
	l.c.Set(cache.Key(recipient, channel), entry{
		reachable: reachable,
		checkedAt: l.now(),
	}, l.ttl)
	return nil
}

package redis

import (
	"context"
	"errors"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/cache"
	"github.com/gotomicro/ego/core/elog"
	"github.com/redis/go-redis/v9"
)

// Cache 多实例共享的可达性缓存
type Cache struct {
	rdb    redis.Cmdable
	logger *elog.Component
}

func NewCache(rdb redis.Cmdable) *Cache {
	return &Cache{
		rdb:    rdb,
		logger: elog.DefaultLogger,
	}
}

func (c *Cache) Lookup(ctx context.Context, recipient string, channel domain.Channel) (reachable, ok bool) {
	res, err := c.rdb.Get(ctx, cache.Key(recipient, channel)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// 缓存故障当作未知处理，走探测
			c.logger.Warn("查询可达性缓存失败",
				elog.String("recipient", recipient),
				elog.String("channel", channel.String()),
				elog.FieldErr(err))
		}
		return false, false
	}
	return res == "1", true
}

func (c *Cache) Set(ctx context.Context, recipient string, channel domain.Channel, reachable bool) error {
	val := "0"
	if reachable {
		val = "1"
	}
	return c.rdb.Set(ctx, cache.Key(recipient, channel), val, cache.DefaultTTL).Err()
}

package ioc

import (
	"time"

	"gitee.com/flycash/trip-platform/internal/pkg/ratelimit"
	"github.com/gotomicro/ego/core/econf"
	"github.com/redis/go-redis/v9"
)

func InitLimiter(rdb *redis.Client) ratelimit.Limiter {
	type Config struct {
		Interval time.Duration `yaml:"interval"`
		Rate     int           `yaml:"rate"`
	}
	cfg := Config{
		Interval: time.Second,
		Rate:     1000,
	}
	if err := econf.UnmarshalKey("ratelimit", &cfg); err != nil {
		panic(err)
	}
	return ratelimit.NewRedisSlidingWindowLimiter(rdb, cfg.Interval, cfg.Rate)
}

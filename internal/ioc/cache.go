package ioc

import (
	"gitee.com/flycash/trip-platform/internal/repository/cache"
	localcache "gitee.com/flycash/trip-platform/internal/repository/cache/local"
	redicache "gitee.com/flycash/trip-platform/internal/repository/cache/redis"
	ca "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

func InitGoCache() *ca.Cache {
	return ca.New(cache.DefaultTTL, cache.DefaultTTL)
}

// InitReachabilityCache 本地+Redis两级可达性缓存
func InitReachabilityCache(c *ca.Cache, rdb *redis.Client) cache.ReachabilityCache {
	return cache.NewLayered(localcache.NewCache(c), redicache.NewCache(rdb))
}

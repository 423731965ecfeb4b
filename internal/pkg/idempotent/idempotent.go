package idempotent

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Service 幂等判定
type Service interface {
	// SeenBefore 返回 true 表示这个键已经处理过，调用方应当跳过
	// 键在判定的同时被占用
	SeenBefore(ctx context.Context, key string) (bool, error)
}

// RedisService 基于 SET NX 的幂等判定
type RedisService struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

func NewRedisService(client redis.Cmdable, keyPrefix string, ttl time.Duration) *RedisService {
	return &RedisService{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisService) SeenBefore(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("幂等键为空")
	}
	set, err := s.client.SetNX(ctx, s.keyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "幂等判定失败")
	}
	return !set, nil
}

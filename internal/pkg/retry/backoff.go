package retry

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	defaultInitialInterval = 5 * time.Second
	defaultMaxInterval     = 60 * time.Second
	defaultFactor          = 2.0
	defaultJitter          = 0.2
)

// Config 重试策略配置，通常来自业务配置的JSON
type Config struct {
	// 初始重试间隔 单位ms
	InitialInterval int `json:"initialInterval"`
	// 最大重试间隔 单位ms
	MaxInterval int `json:"maxInterval"`
	// 指数因子
	Factor float64 `json:"factor"`
	// 抖动比例，0.2表示±20%
	Jitter float64 `json:"jitter"`
}

// ExponentialBackoff 带抖动的指数退避
// 第n次重试的名义间隔为 initial * factor^n，加 ±jitter 比例的抖动后封顶 max。
// 多个 worker 会并发取间隔，随机源要加锁
type ExponentialBackoff struct {
	initial time.Duration
	max     time.Duration
	factor  float64
	jitter  float64
	mu      sync.Mutex
	rand    *rand.Rand
}

type Option func(*ExponentialBackoff)

// WithRand 测试用，注入随机源让抖动可复现
func WithRand(r *rand.Rand) Option {
	return func(b *ExponentialBackoff) {
		b.rand = r
	}
}

func NewExponentialBackoff(initial, maxInterval time.Duration, factor, jitter float64, opts ...Option) (*ExponentialBackoff, error) {
	if initial <= 0 || maxInterval < initial {
		return nil, fmt.Errorf("非法的重试间隔: initial = %v, max = %v", initial, maxInterval)
	}
	if factor < 1 {
		return nil, fmt.Errorf("非法的指数因子: %v", factor)
	}
	if jitter < 0 || jitter >= 1 {
		return nil, fmt.Errorf("非法的抖动比例: %v", jitter)
	}
	b := &ExponentialBackoff{
		initial: initial,
		max:     maxInterval,
		factor:  factor,
		jitter:  jitter,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewDefaultBackoff 5s起步，2倍递增，60s封顶，±20%抖动
func NewDefaultBackoff(opts ...Option) *ExponentialBackoff {
	b, _ := NewExponentialBackoff(defaultInitialInterval, defaultMaxInterval, defaultFactor, defaultJitter, opts...)
	return b
}

// NewBackoffFromConfig 配置不合法时回退到默认策略
func NewBackoffFromConfig(cfg Config, opts ...Option) *ExponentialBackoff {
	initial := time.Duration(cfg.InitialInterval) * time.Millisecond
	maxInterval := time.Duration(cfg.MaxInterval) * time.Millisecond
	factor := cfg.Factor
	jitter := cfg.Jitter
	b, err := NewExponentialBackoff(initial, maxInterval, factor, jitter, opts...)
	if err != nil {
		return NewDefaultBackoff(opts...)
	}
	return b
}

// Next 第 attempt 次失败之后应等待的间隔，attempt 从1开始
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	nominal := float64(b.initial)
	for i := 1; i < attempt; i++ {
		nominal *= b.factor
		if nominal >= float64(b.max) {
			nominal = float64(b.max)
			break
		}
	}
	// 抖动在 [-jitter, +jitter] 之间均匀分布
	b.mu.Lock()
	delta := (b.rand.Float64()*2 - 1) * b.jitter
	b.mu.Unlock()
	d := time.Duration(nominal * (1 + delta))
	// 抖动之后仍然不越过上限
	if d > b.max {
		d = b.max
	}
	return d
}

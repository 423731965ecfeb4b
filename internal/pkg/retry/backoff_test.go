package retry

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoffNext(t *testing.T) {
	t.Parallel()

	b, err := NewExponentialBackoff(5*time.Second, 60*time.Second, 2.0, 0.2,
		WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		attempt int
		nominal time.Duration
	}{
		{name: "第一次", attempt: 1, nominal: 5 * time.Second},
		{name: "第二次", attempt: 2, nominal: 10 * time.Second},
		{name: "第三次", attempt: 3, nominal: 20 * time.Second},
		{name: "第四次", attempt: 4, nominal: 40 * time.Second},
		{name: "封顶", attempt: 5, nominal: 60 * time.Second},
		{name: "封顶后不再涨", attempt: 10, nominal: 60 * time.Second},
		{name: "非法次数按第一次算", attempt: 0, nominal: 5 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := b.Next(tc.attempt)
			low := time.Duration(float64(tc.nominal) * 0.8)
			high := time.Duration(float64(tc.nominal) * 1.2)
			assert.GreaterOrEqual(t, got, low)
			assert.LessOrEqual(t, got, high)
		})
	}
}

func TestExponentialBackoffNeverExceedsMax(t *testing.T) {
	t.Parallel()

	b, err := NewExponentialBackoff(5*time.Second, 60*time.Second, 2.0, 0.2,
		WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	// 抖动向上也不能突破上限
	for i := 0; i < 1000; i++ {
		got := b.Next(6)
		assert.LessOrEqual(t, got, 60*time.Second)
		assert.GreaterOrEqual(t, got, 48*time.Second)
	}
}

func TestExponentialBackoffConcurrentNext(t *testing.T) {
	t.Parallel()

	b := NewDefaultBackoff()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := b.Next(j % 6)
				assert.GreaterOrEqual(t, got, 4*time.Second)
				assert.LessOrEqual(t, got, 60*time.Second)
			}
		}()
	}
	wg.Wait()
}

func TestNewExponentialBackoffValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		initial time.Duration
		max     time.Duration
		factor  float64
		jitter  float64
	}{
		{name: "初始间隔为0", initial: 0, max: time.Minute, factor: 2, jitter: 0.2},
		{name: "最大间隔小于初始", initial: time.Minute, max: time.Second, factor: 2, jitter: 0.2},
		{name: "因子小于1", initial: time.Second, max: time.Minute, factor: 0.5, jitter: 0.2},
		{name: "抖动为负", initial: time.Second, max: time.Minute, factor: 2, jitter: -0.1},
		{name: "抖动不小于1", initial: time.Second, max: time.Minute, factor: 2, jitter: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewExponentialBackoff(tc.initial, tc.max, tc.factor, tc.jitter)
			assert.Error(t, err)
		})
	}
}

func TestNewBackoffFromConfigFallsBackToDefault(t *testing.T) {
	t.Parallel()

	// 配置非法时回退到默认策略
	b := NewBackoffFromConfig(Config{}, WithRand(rand.New(rand.NewSource(1))))
	got := b.Next(1)
	assert.GreaterOrEqual(t, got, 4*time.Second)
	assert.LessOrEqual(t, got, 6*time.Second)
}

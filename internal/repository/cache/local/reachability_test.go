package local

import (
	"testing"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/cache"
	ca "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCacheLookup(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewCache(ca.New(ca.NoExpiration, 0), WithNow(func() time.Time { return now }))

	// 结论缺失
	_, ok := c.Lookup(t.Context(), "13800000000", domain.ChannelWhatsApp)
	assert.False(t, ok)

	require.NoError(t, c.Set(t.Context(), "13800000000", domain.ChannelWhatsApp, true))
	reachable, ok := c.Lookup(t.Context(), "13800000000", domain.ChannelWhatsApp)
	assert.True(t, ok)
	assert.True(t, reachable)

	// 不可达的结论同样会被缓存
	require.NoError(t, c.Set(t.Context(), "13900000000", domain.ChannelWhatsApp, false))
	reachable, ok = c.Lookup(t.Context(), "13900000000", domain.ChannelWhatsApp)
	assert.True(t, ok)
	assert.False(t, reachable)

	// 不同渠道互不影响
	_, ok = c.Lookup(t.Context(), "13800000000", domain.ChannelEmail)
	assert.False(t, ok)
}

func TestLocalCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewCache(ca.New(ca.NoExpiration, 0), WithNow(func() time.Time { return now }))

	require.NoError(t, c.Set(t.Context(), "13800000000", domain.ChannelWhatsApp, true))

	// 刚好到TTL就算过期
	now = now.Add(cache.DefaultTTL)
	_, ok := c.Lookup(t.Context(), "13800000000", domain.ChannelWhatsApp)
	assert.False(t, ok)
}

package dispatch

import (
	"errors"
	"testing"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/service/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateChannels(adapters []channel.Adapter) []domain.Channel {
	channels := make([]domain.Channel, 0, len(adapters))
	for _, a := range adapters {
		channels = append(channels, a.Channel())
	}
	return channels
}

func TestCascadeCandidates(t *testing.T) {
	t.Parallel()

	recipient := domain.Recipient{CustomerID: 42, Phone: "13800000000", Email: "a@b.com"}

	testCases := []struct {
		name      string
		whatsapp  *fakeAdapter
		cache     *fakeReachCache
		recipient domain.Recipient
		want      []domain.Channel
	}{
		{
			name:      "WhatsApp可达走全级联",
			whatsapp:  &fakeAdapter{ch: domain.ChannelWhatsApp, reachable: true},
			cache:     &fakeReachCache{},
			recipient: recipient,
			want:      []domain.Channel{domain.ChannelWhatsApp, domain.ChannelEmail, domain.ChannelSMS},
		},
		{
			name:      "WhatsApp不可达时跳过",
			whatsapp:  &fakeAdapter{ch: domain.ChannelWhatsApp, reachable: false},
			cache:     &fakeReachCache{},
			recipient: recipient,
			want:      []domain.Channel{domain.ChannelEmail, domain.ChannelSMS},
		},
		{
			name:     "缓存结论优先于探测",
			whatsapp: &fakeAdapter{ch: domain.ChannelWhatsApp, reachable: false},
			cache: &fakeReachCache{values: map[string]bool{
				"WHATSAPP:13800000000": true,
			}},
			recipient: recipient,
			want:      []domain.Channel{domain.ChannelWhatsApp, domain.ChannelEmail, domain.ChannelSMS},
		},
		{
			name:      "探测失败按不可达处理",
			whatsapp:  &fakeAdapter{ch: domain.ChannelWhatsApp, probeErr: errors.New("探测接口超时")},
			cache:     &fakeReachCache{},
			recipient: recipient,
			want:      []domain.Channel{domain.ChannelEmail, domain.ChannelSMS},
		},
		{
			name:      "没有手机号时短信和WhatsApp都出局",
			whatsapp:  &fakeAdapter{ch: domain.ChannelWhatsApp, reachable: true},
			cache:     &fakeReachCache{},
			recipient: domain.Recipient{CustomerID: 42, Email: "a@b.com"},
			want:      []domain.Channel{domain.ChannelEmail},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			email := &fakeAdapter{ch: domain.ChannelEmail}
			sms := &fakeAdapter{ch: domain.ChannelSMS}
			cascade := NewCascade([]channel.Adapter{tc.whatsapp, email, sms}, tc.cache)

			got := cascade.Candidates(t.Context(), tc.recipient)
			assert.Equal(t, tc.want, candidateChannels(got))
		})
	}
}

func TestCascadeProbeResultCached(t *testing.T) {
	t.Parallel()

	whatsapp := &fakeAdapter{ch: domain.ChannelWhatsApp, reachable: true}
	cache := &fakeReachCache{}
	cascade := NewCascade([]channel.Adapter{whatsapp}, cache)
	recipient := domain.Recipient{CustomerID: 42, Phone: "13800000000"}

	first := cascade.Candidates(t.Context(), recipient)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	// 第二次命中缓存，不再探测
	cascade.Candidates(t.Context(), recipient)
	assert.Equal(t, 1, cache.sets)
}

func TestCascadeProbeErrorNotCached(t *testing.T) {
	t.Parallel()

	whatsapp := &fakeAdapter{ch: domain.ChannelWhatsApp, probeErr: errors.New("探测接口超时")}
	cache := &fakeReachCache{}
	cascade := NewCascade([]channel.Adapter{whatsapp}, cache)
	recipient := domain.Recipient{CustomerID: 42, Phone: "13800000000"}

	got := cascade.Candidates(t.Context(), recipient)
	assert.Empty(t, got)
	// 失败的探测不留结论，下一条请求还有机会
	assert.Zero(t, cache.sets)
}

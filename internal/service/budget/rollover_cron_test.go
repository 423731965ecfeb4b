package budget

import (
	"testing"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolloverCronEnsuresPeriods(t *testing.T) {
	t.Parallel()

	repo := newMemBudgetRepo()
	cron := NewRolloverCron(repo, RolloverConfig{
		Ceilings: map[string]int64{
			"SMS": 500000,
			// 免费渠道配了也不生效
			"EMAIL": 100,
		},
	})
	cron.nowFn = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, cron.Do(t.Context()))

	// 当月周期
	current, err := repo.GetCurrent(t.Context(), domain.ChannelSMS,
		time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), current.PeriodStart)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), current.PeriodEnd)
	assert.Equal(t, int64(500000), current.Ceiling)

	// 下月周期已预建
	next, err := repo.GetCurrent(t.Context(), domain.ChannelSMS,
		time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), next.PeriodStart)

	// 免费渠道没有预算周期
	_, err = repo.GetCurrent(t.Context(), domain.ChannelEmail,
		time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}

func TestRolloverCronIdempotent(t *testing.T) {
	t.Parallel()

	repo := newMemBudgetRepo()
	cron := NewRolloverCron(repo, RolloverConfig{
		Ceilings: map[string]int64{"SMS": 500000},
	})
	cron.nowFn = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, cron.Do(t.Context()))
	require.NoError(t, cron.Do(t.Context()))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.periods, 2)
}

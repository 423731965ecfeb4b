package ledger

import (
	"context"
	"testing"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLedgerRepo struct {
	attempts []domain.ChannelAttempt
	// 送达计数按类型注入，绕开 DAO 的按请求类型关联
	delivered map[domain.NotificationType]int64
}

func (m *memLedgerRepo) Append(_ context.Context, attempt domain.ChannelAttempt) error {
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *memLedgerRepo) ListByRequestID(_ context.Context, requestID uint64) ([]domain.ChannelAttempt, error) {
	var res []domain.ChannelAttempt
	for _, a := range m.attempts {
		if a.RequestID == requestID {
			res = append(res, a)
		}
	}
	return res, nil
}

func (m *memLedgerRepo) TotalCost(_ context.Context, _, _ time.Time) (int64, error) {
	var total int64
	for _, a := range m.attempts {
		total += a.Cost
	}
	return total, nil
}

func (m *memLedgerRepo) DeliveredCountByType(_ context.Context, _, _ time.Time) (map[domain.NotificationType]int64, error) {
	return m.delivered, nil
}

func TestLedgerRecordAttempt(t *testing.T) {
	t.Parallel()

	repo := &memLedgerRepo{}
	svc := NewService(repo, Config{})

	id, err := svc.RecordAttempt(t.Context(), 101, domain.ChannelSMS, 8, 120*time.Millisecond, domain.AttemptOutcomeSuccess)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = svc.RecordAttempt(t.Context(), 102, domain.ChannelEmail, 0, 30*time.Millisecond, domain.AttemptOutcomeTransientFailure)
	require.NoError(t, err)

	got, err := svc.ListByRequestID(t.Context(), 101)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, domain.ChannelSMS, got[0].Channel)
	assert.Equal(t, int64(8), got[0].Cost)
}

func TestLedgerROI(t *testing.T) {
	t.Parallel()

	repo := &memLedgerRepo{
		delivered: map[domain.NotificationType]int64{
			domain.NotificationTypeBookingConfirmed: 10,
			domain.NotificationTypeReminder:         5,
		},
	}
	svc := NewService(repo, Config{EngagementValues: map[string]int64{
		"booking_confirmed": 200,
		"reminder":          50,
	}})

	_, err := svc.RecordAttempt(t.Context(), 1, domain.ChannelSMS, 8, 0, domain.AttemptOutcomeSuccess)
	require.NoError(t, err)
	_, err = svc.RecordAttempt(t.Context(), 2, domain.ChannelSMS, 8, 0, domain.AttemptOutcomeTransientFailure)
	require.NoError(t, err)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.ROI(t.Context(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, int64(16), report.TotalCost)
	// 10*200 + 5*50
	assert.Equal(t, int64(2250), report.EngagementValue)
	assert.Equal(t, int64(10), report.Delivered[domain.NotificationTypeBookingConfirmed])
}

func TestLedgerROIUnknownTypeCountsZero(t *testing.T) {
	t.Parallel()

	repo := &memLedgerRepo{
		delivered: map[domain.NotificationType]int64{
			domain.NotificationTypeAvailability: 3,
		},
	}
	svc := NewService(repo, Config{EngagementValues: map[string]int64{"reminder": 50}})

	report, err := svc.ROI(t.Context(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, report.EngagementValue)
	assert.Zero(t, report.TotalCost)
}

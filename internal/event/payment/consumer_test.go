package payment

import (
	"context"
	"errors"
	"testing"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"github.com/ecodeclub/mq-api/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLifecycleService struct {
	trip       domain.Trip
	applyErrs  []error
	applyCalls int
}

func (f *fakeLifecycleService) CreateTrip(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	return trip, nil
}

func (f *fakeLifecycleService) GetTrip(_ context.Context, _ int64) (domain.Trip, error) {
	return f.trip, nil
}

func (f *fakeLifecycleService) ListTransitions(_ context.Context, _ int64) ([]domain.TripStateTransition, error) {
	return nil, nil
}

func (f *fakeLifecycleService) Apply(_ context.Context, _ int64, _ domain.TripTrigger,
	_ domain.TriggerPayload, _ int,
) (domain.ApplyResult, error) {
	f.applyCalls++
	if f.applyCalls <= len(f.applyErrs) {
		return domain.ApplyResult{}, f.applyErrs[f.applyCalls-1]
	}
	return domain.ApplyResult{Trip: f.trip}, nil
}

type memIdempotent struct {
	seen map[string]bool
}

func (m *memIdempotent) SeenBefore(_ context.Context, key string) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	seen := m.seen[key]
	m.seen[key] = true
	return seen, nil
}

func newTestConsumer(t *testing.T, svc *fakeLifecycleService) *CompletedEventConsumer {
	t.Helper()
	q := memory.NewMQ()
	require.NoError(t, q.CreateTopic(t.Context(), eventName, 1))
	consumer, err := NewCompletedEventConsumer(svc, q, &memIdempotent{})
	require.NoError(t, err)
	return consumer
}

func TestConsumerHandleEvent(t *testing.T) {
	t.Parallel()

	svc := &fakeLifecycleService{trip: domain.Trip{ID: 1, Status: domain.TripStatusPending, Version: 1}}
	c := newTestConsumer(t, svc)

	evt := CompletedEvent{PaymentID: "pay-1", TripID: 1, Amount: 100000}
	require.NoError(t, c.handleEvent(t.Context(), evt))
	assert.Equal(t, 1, svc.applyCalls)

	// 同一支付单号的重复回调被幂等挡掉
	require.NoError(t, c.handleEvent(t.Context(), evt))
	assert.Equal(t, 1, svc.applyCalls)
}

func TestConsumerRetriesOnVersionMismatch(t *testing.T) {
	t.Parallel()

	svc := &fakeLifecycleService{
		trip:      domain.Trip{ID: 1, Status: domain.TripStatusPending, Version: 1},
		applyErrs: []error{errs.ErrVersionMismatch, errs.ErrVersionMismatch},
	}
	c := newTestConsumer(t, svc)

	require.NoError(t, c.handleEvent(t.Context(), CompletedEvent{PaymentID: "pay-2", TripID: 1}))
	assert.Equal(t, 3, svc.applyCalls)
}

func TestConsumerIgnoresInvalidTransition(t *testing.T) {
	t.Parallel()

	// 行程已经不是待支付，说明是重复回调
	svc := &fakeLifecycleService{
		trip:      domain.Trip{ID: 1, Status: domain.TripStatusUpcoming, Version: 2},
		applyErrs: []error{errs.ErrInvalidTransition},
	}
	c := newTestConsumer(t, svc)

	require.NoError(t, c.handleEvent(t.Context(), CompletedEvent{PaymentID: "pay-3", TripID: 1}))
	assert.Equal(t, 1, svc.applyCalls)
}

func TestConsumerPropagatesApplyError(t *testing.T) {
	t.Parallel()

	applyErr := errors.New("数据库不可用")
	svc := &fakeLifecycleService{
		trip:      domain.Trip{ID: 1, Status: domain.TripStatusPending, Version: 1},
		applyErrs: []error{applyErr},
	}
	c := newTestConsumer(t, svc)

	err := c.handleEvent(t.Context(), CompletedEvent{PaymentID: "pay-4", TripID: 1})
	require.ErrorIs(t, err, applyErr)
}

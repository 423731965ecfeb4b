package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/event/settlement"
	"github.com/sony/sonyflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTripRepo struct {
	trips       map[int64]domain.Trip
	transitions []domain.TripStateTransition
	requests    []domain.NotificationRequest
}

func newFakeTripRepo(trips ...domain.Trip) *fakeTripRepo {
	repo := &fakeTripRepo{trips: make(map[int64]domain.Trip)}
	for _, trip := range trips {
		repo.trips[trip.ID] = trip
	}
	return repo
}

func (f *fakeTripRepo) Create(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	trip.ID = int64(len(f.trips) + 1)
	f.trips[trip.ID] = trip
	return trip, nil
}

func (f *fakeTripRepo) GetByID(_ context.Context, id int64) (domain.Trip, error) {
	trip, ok := f.trips[id]
	if !ok {
		return domain.Trip{}, fmt.Errorf("%w: id = %d", errs.ErrTripNotFound, id)
	}
	return trip, nil
}

func (f *fakeTripRepo) Transition(_ context.Context, trip domain.Trip, expectedVersion int,
	transition domain.TripStateTransition, requests []domain.NotificationRequest,
) error {
	stored, ok := f.trips[trip.ID]
	if !ok {
		return errs.ErrTripNotFound
	}
	if stored.Version != expectedVersion {
		return errs.ErrVersionMismatch
	}
	trip.Version = expectedVersion + 1
	f.trips[trip.ID] = trip
	f.transitions = append(f.transitions, transition)
	f.requests = append(f.requests, requests...)
	return nil
}

func (f *fakeTripRepo) FindUpcomingForReminder(_ context.Context, _, _ time.Time, _ int) ([]domain.Trip, error) {
	return nil, nil
}

func (f *fakeTripRepo) MarkReminderSent(_ context.Context, _ int64) error {
	return nil
}

func (f *fakeTripRepo) ListTransitions(_ context.Context, tripID int64) ([]domain.TripStateTransition, error) {
	result := make([]domain.TripStateTransition, 0, len(f.transitions))
	for _, tr := range f.transitions {
		if tr.TripID == tripID {
			result = append(result, tr)
		}
	}
	return result, nil
}

type fakeTemplateRepo struct{}

func (f *fakeTemplateRepo) GetByID(_ context.Context, id int64) (domain.MessageTemplate, error) {
	return domain.MessageTemplate{ID: id}, nil
}

func (f *fakeTemplateRepo) GetByType(_ context.Context, typ domain.NotificationType) (domain.MessageTemplate, error) {
	return domain.MessageTemplate{ID: 100, Type: typ}, nil
}

func (f *fakeTemplateRepo) Create(_ context.Context, tpl domain.MessageTemplate) (domain.MessageTemplate, error) {
	return tpl, nil
}

type fakeDispatcher struct {
	enqueued []domain.NotificationRequest
}

func (f *fakeDispatcher) Enqueue(_ context.Context, req domain.NotificationRequest) error {
	f.enqueued = append(f.enqueued, req)
	return nil
}

type fakeSettlementProducer struct {
	events []settlement.TripSettledEvent
}

func (f *fakeSettlementProducer) Produce(_ context.Context, evt settlement.TripSettledEvent) error {
	f.events = append(f.events, evt)
	return nil
}

func newTestService(t *testing.T, repo *fakeTripRepo) (Service, *fakeDispatcher, *fakeSettlementProducer) {
	t.Helper()
	sf, err := sonyflake.New(sonyflake.Settings{})
	require.NoError(t, err)
	dispatcher := &fakeDispatcher{}
	producer := &fakeSettlementProducer{}
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(repo, &fakeTemplateRepo{}, dispatcher, producer, sf,
		WithNow(func() time.Time { return now }))
	return svc, dispatcher, producer
}

func testTrip(status domain.TripStatus) domain.Trip {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return domain.Trip{
		ID:         1,
		BizID:      7,
		Status:     status,
		StartTime:  now.Add(10*24*time.Hour + time.Hour),
		EndTime:    now.Add(12 * 24 * time.Hour),
		PaidAmount: 100000,
		Currency:   "CNY",
		Recipient: domain.Recipient{
			CustomerID: 42,
			Phone:      "13800000000",
			Email:      "a@b.com",
		},
		Version: 3,
	}
}

func TestServiceApplyPaymentCompleted(t *testing.T) {
	t.Parallel()

	repo := newFakeTripRepo(testTrip(domain.TripStatusPending))
	svc, dispatcher, _ := newTestService(t, repo)

	result, err := svc.Apply(t.Context(), 1, domain.TriggerPaymentCompleted,
		domain.TriggerPayload{Actor: "payment"}, 3)
	require.NoError(t, err)

	assert.Equal(t, domain.TripStatusUpcoming, result.Trip.Status)
	assert.Equal(t, 4, result.Trip.Version)
	require.Len(t, result.RequestIDs, 1)

	require.Len(t, dispatcher.enqueued, 1)
	req := dispatcher.enqueued[0]
	assert.Equal(t, domain.NotificationTypeBookingConfirmed, req.Type)
	assert.Equal(t, domain.PriorityNormal, req.Priority)
	assert.Equal(t, domain.RequestStatusQueued, req.Status)
	assert.Equal(t, "1", req.Params["trip_id"])

	require.Len(t, repo.transitions, 1)
	assert.Equal(t, domain.TripStatusPending, repo.transitions[0].FromStatus)
	assert.Equal(t, domain.TripStatusUpcoming, repo.transitions[0].ToStatus)
	assert.Equal(t, "payment", repo.transitions[0].Actor)
}

func TestServiceApplyVersionMismatch(t *testing.T) {
	t.Parallel()

	repo := newFakeTripRepo(testTrip(domain.TripStatusPending))
	svc, dispatcher, _ := newTestService(t, repo)

	_, err := svc.Apply(t.Context(), 1, domain.TriggerPaymentCompleted,
		domain.TriggerPayload{Actor: "payment"}, 2)
	require.ErrorIs(t, err, errs.ErrVersionMismatch)
	assert.Empty(t, dispatcher.enqueued)
	assert.Empty(t, repo.transitions)
}

func TestServiceApplyInvalidTransition(t *testing.T) {
	t.Parallel()

	repo := newFakeTripRepo(testTrip(domain.TripStatusCompleted))
	svc, dispatcher, _ := newTestService(t, repo)

	_, err := svc.Apply(t.Context(), 1, domain.TriggerCancellationRequested,
		domain.TriggerPayload{Actor: "customer"}, 3)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Empty(t, dispatcher.enqueued)
}

func TestServiceApplyCancellationRefundParams(t *testing.T) {
	t.Parallel()

	// 实付1000元，距出发10天，按阶梯退75%
	repo := newFakeTripRepo(testTrip(domain.TripStatusUpcoming))
	svc, dispatcher, _ := newTestService(t, repo)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	result, err := svc.Apply(t.Context(), 1, domain.TriggerCancellationRequested,
		domain.TriggerPayload{Actor: "customer", Now: now}, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, result.Trip.Status)

	require.Len(t, dispatcher.enqueued, 1)
	req := dispatcher.enqueued[0]
	assert.Equal(t, domain.NotificationTypeCancellation, req.Type)
	assert.Equal(t, domain.PriorityHigh, req.Priority)
	assert.Equal(t, "750.00", req.Params["refund_amount"])
}

func TestServiceApplyRefundProcessed(t *testing.T) {
	t.Parallel()

	repo := newFakeTripRepo(testTrip(domain.TripStatusCancelled))
	svc, dispatcher, producer := newTestService(t, repo)

	result, err := svc.Apply(t.Context(), 1, domain.TriggerRefundProcessed,
		domain.TriggerPayload{Actor: "payment", RefundAmount: 75000}, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusRefunded, result.Trip.Status)

	require.Len(t, dispatcher.enqueued, 1)
	req := dispatcher.enqueued[0]
	assert.Equal(t, domain.NotificationTypeRefundCompleted, req.Type)
	assert.Equal(t, domain.PriorityHigh, req.Priority)
	assert.Equal(t, "750.00", req.Params["refund_amount"])

	require.Len(t, producer.events, 1)
	assert.Equal(t, domain.TripStatusRefunded.String(), producer.events[0].Status)
	assert.Equal(t, int64(75000), producer.events[0].RefundAmount)
}

func TestServiceApplyTourEndEmitsSettlement(t *testing.T) {
	t.Parallel()

	repo := newFakeTripRepo(testTrip(domain.TripStatusInProgress))
	svc, dispatcher, producer := newTestService(t, repo)

	result, err := svc.Apply(t.Context(), 1, domain.TriggerTourEnd,
		domain.TriggerPayload{Actor: "operator"}, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCompleted, result.Trip.Status)

	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, domain.NotificationTypeReviewRequest, dispatcher.enqueued[0].Type)
	assert.Equal(t, domain.PriorityLow, dispatcher.enqueued[0].Priority)

	require.Len(t, producer.events, 1)
	evt := producer.events[0]
	assert.Equal(t, domain.TripStatusCompleted.String(), evt.Status)
	assert.Equal(t, int64(100000), evt.PaidAmount)
	assert.Zero(t, evt.RefundAmount)
}

func TestServiceApplyModification(t *testing.T) {
	t.Parallel()

	t.Run("新时间非法", func(t *testing.T) {
		t.Parallel()
		repo := newFakeTripRepo(testTrip(domain.TripStatusUpcoming))
		svc, _, _ := newTestService(t, repo)

		_, err := svc.Apply(t.Context(), 1, domain.TriggerModificationRequested,
			domain.TriggerPayload{Actor: "customer"}, 3)
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})

	t.Run("变更后时间生效", func(t *testing.T) {
		t.Parallel()
		repo := newFakeTripRepo(testTrip(domain.TripStatusUpcoming))
		svc, dispatcher, _ := newTestService(t, repo)

		newStart := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
		newEnd := time.Date(2025, 7, 3, 18, 0, 0, 0, time.UTC)
		result, err := svc.Apply(t.Context(), 1, domain.TriggerModificationRequested,
			domain.TriggerPayload{Actor: "customer", NewStartTime: newStart, NewEndTime: newEnd}, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.TripStatusModified, result.Trip.Status)
		assert.Equal(t, newStart, result.Trip.StartTime)
		assert.Equal(t, newEnd, result.Trip.EndTime)
		require.Len(t, dispatcher.enqueued, 1)
		assert.Equal(t, domain.NotificationTypeItineraryUpdated, dispatcher.enqueued[0].Type)
	})

	t.Run("确认变更不发通知", func(t *testing.T) {
		t.Parallel()
		repo := newFakeTripRepo(testTrip(domain.TripStatusModified))
		svc, dispatcher, _ := newTestService(t, repo)

		result, err := svc.Apply(t.Context(), 1, domain.TriggerModificationConfirmed,
			domain.TriggerPayload{Actor: "operator"}, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.TripStatusUpcoming, result.Trip.Status)
		assert.Empty(t, dispatcher.enqueued)
		assert.Empty(t, result.RequestIDs)
	})
}

func TestServiceCreateTrip(t *testing.T) {
	t.Parallel()

	repo := newFakeTripRepo()
	svc, _, _ := newTestService(t, repo)

	trip := testTrip(domain.TripStatusUpcoming)
	trip.ID = 0
	created, err := svc.CreateTrip(t.Context(), trip)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusPending, created.Status)
	assert.Equal(t, 1, created.Version)

	trip.BizID = 0
	_, err = svc.CreateTrip(t.Context(), trip)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
}

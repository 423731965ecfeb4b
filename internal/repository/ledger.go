package repository

import (
	"context"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
)

// LedgerRepository 投递流水仓储，仅追加
type LedgerRepository interface {
	Append(ctx context.Context, attempt domain.ChannelAttempt) error
	ListByRequestID(ctx context.Context, requestID uint64) ([]domain.ChannelAttempt, error)

	TotalCost(ctx context.Context, start, end time.Time) (int64, error)
	DeliveredCountByType(ctx context.Context, start, end time.Time) (map[domain.NotificationType]int64, error)
}

type ledgerRepository struct {
	dao dao.ChannelAttemptDAO
}

func NewLedgerRepository(d dao.ChannelAttemptDAO) LedgerRepository {
	return &ledgerRepository{dao: d}
}

func (repo *ledgerRepository) Append(ctx context.Context, attempt domain.ChannelAttempt) error {
	return repo.dao.Create(ctx, dao.ChannelAttempt{
		ID:        attempt.ID,
		RequestID: attempt.RequestID,
		Channel:   attempt.Channel.String(),
		Cost:      attempt.Cost,
		LatencyMs: attempt.Latency.Milliseconds(),
		Outcome:   string(attempt.Outcome),
	})
}

func (repo *ledgerRepository) ListByRequestID(ctx context.Context, requestID uint64) ([]domain.ChannelAttempt, error) {
	entities, err := repo.dao.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.ChannelAttempt) domain.ChannelAttempt {
		return domain.ChannelAttempt{
			ID:        src.ID,
			RequestID: src.RequestID,
			Channel:   domain.Channel(src.Channel),
			Cost:      src.Cost,
			Latency:   time.Duration(src.LatencyMs) * time.Millisecond,
			Outcome:   domain.AttemptOutcome(src.Outcome),
			Ctime:     time.UnixMilli(src.Ctime),
		}
	}), nil
}

func (repo *ledgerRepository) TotalCost(ctx context.Context, start, end time.Time) (int64, error) {
	return repo.dao.TotalCost(ctx, start.UnixMilli(), end.UnixMilli())
}

func (repo *ledgerRepository) DeliveredCountByType(ctx context.Context, start, end time.Time) (map[domain.NotificationType]int64, error) {
	counts, err := repo.dao.DeliveredCountByType(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	result := make(map[domain.NotificationType]int64, len(counts))
	for _, c := range counts {
		result[domain.NotificationType(c.Type)] = c.Count
	}
	return result, nil
}

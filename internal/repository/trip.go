package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/repository/dao"
	"github.com/ecodeclub/ekit/slice"
)

type TripRepository interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id int64) (domain.Trip, error)

	// Transition 状态流转：行程更新 + 审计记录 + 通知请求落库，一个事务
	Transition(ctx context.Context, trip domain.Trip, expectedVersion int,
		transition domain.TripStateTransition, requests []domain.NotificationRequest) error

	FindUpcomingForReminder(ctx context.Context, startAfter, startBefore time.Time, limit int) ([]domain.Trip, error)
	MarkReminderSent(ctx context.Context, id int64) error
	ListTransitions(ctx context.Context, tripID int64) ([]domain.TripStateTransition, error)
}

type tripRepository struct {
	dao dao.TripDAO
}

func NewTripRepository(d dao.TripDAO) TripRepository {
	return &tripRepository{dao: d}
}

func (repo *tripRepository) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	entity, err := repo.toEntity(trip)
	if err != nil {
		return domain.Trip{}, err
	}
	created, err := repo.dao.Create(ctx, entity)
	if err != nil {
		return domain.Trip{}, err
	}
	return repo.toDomain(created)
}

func (repo *tripRepository) GetByID(ctx context.Context, id int64) (domain.Trip, error) {
	entity, err := repo.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	return repo.toDomain(entity)
}

func (repo *tripRepository) Transition(ctx context.Context, trip domain.Trip, expectedVersion int,
	transition domain.TripStateTransition, requests []domain.NotificationRequest,
) error {
	entity, err := repo.toEntity(trip)
	if err != nil {
		return err
	}
	requestIDs, err := json.Marshal(transition.RequestIDs)
	if err != nil {
		return fmt.Errorf("%w: 序列化通知请求ID失败: %w", errs.ErrInvalidParameter, err)
	}
	transitionEntity := dao.TripStateTransition{
		TripID:     transition.TripID,
		FromStatus: transition.FromStatus.String(),
		ToStatus:   transition.ToStatus.String(),
		Trigger:    transition.Trigger.String(),
		Actor:      transition.Actor,
		RequestIDs: string(requestIDs),
	}

	requestEntities := make([]dao.NotificationRequest, 0, len(requests))
	for i := range requests {
		requestEntity, err1 := toRequestEntity(requests[i])
		if err1 != nil {
			return err1
		}
		requestEntities = append(requestEntities, requestEntity)
	}
	if transition.FromStatus == transition.ToStatus {
		return repo.dao.RecordSideEffect(ctx, entity, expectedVersion, transitionEntity, requestEntities)
	}
	return repo.dao.Transition(ctx, entity, expectedVersion, transitionEntity, requestEntities)
}

func (repo *tripRepository) FindUpcomingForReminder(ctx context.Context, startAfter, startBefore time.Time, limit int) ([]domain.Trip, error) {
	entities, err := repo.dao.FindUpcomingForReminder(ctx, startAfter.UnixMilli(), startBefore.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	trips := make([]domain.Trip, 0, len(entities))
	for i := range entities {
		trip, err1 := repo.toDomain(entities[i])
		if err1 != nil {
			return nil, err1
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func (repo *tripRepository) MarkReminderSent(ctx context.Context, id int64) error {
	return repo.dao.MarkReminderSent(ctx, id)
}

func (repo *tripRepository) ListTransitions(ctx context.Context, tripID int64) ([]domain.TripStateTransition, error) {
	entities, err := repo.dao.ListTransitions(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.TripStateTransition) domain.TripStateTransition {
		var requestIDs []uint64
		// 历史数据可能为空数组，解析失败就留空
		_ = json.Unmarshal([]byte(src.RequestIDs), &requestIDs)
		return domain.TripStateTransition{
			ID:         src.ID,
			TripID:     src.TripID,
			FromStatus: domain.TripStatus(src.FromStatus),
			ToStatus:   domain.TripStatus(src.ToStatus),
			Trigger:    domain.TripTrigger(src.Trigger),
			Actor:      src.Actor,
			RequestIDs: requestIDs,
			Ctime:      time.UnixMilli(src.Ctime),
		}
	}), nil
}

func (repo *tripRepository) toEntity(trip domain.Trip) (dao.Trip, error) {
	recipient, err := json.Marshal(trip.Recipient)
	if err != nil {
		return dao.Trip{}, fmt.Errorf("%w: 序列化联系方式失败: %w", errs.ErrInvalidParameter, err)
	}
	return dao.Trip{
		ID:         trip.ID,
		BizID:      trip.BizID,
		Status:     trip.Status.String(),
		StartTime:  trip.StartTime.UnixMilli(),
		EndTime:    trip.EndTime.UnixMilli(),
		PaidAmount: trip.PaidAmount,
		Currency:   trip.Currency,
		Recipient:  string(recipient),
		Version:    trip.Version,
	}, nil
}

func (repo *tripRepository) toDomain(entity dao.Trip) (domain.Trip, error) {
	var recipient domain.Recipient
	if err := json.Unmarshal([]byte(entity.Recipient), &recipient); err != nil {
		return domain.Trip{}, fmt.Errorf("反序列化联系方式失败: %w", err)
	}
	return domain.Trip{
		ID:         entity.ID,
		BizID:      entity.BizID,
		Status:     domain.TripStatus(entity.Status),
		StartTime:  time.UnixMilli(entity.StartTime),
		EndTime:    time.UnixMilli(entity.EndTime),
		PaidAmount: entity.PaidAmount,
		Currency:   entity.Currency,
		Recipient:  recipient,
		Version:    entity.Version,
		Ctime:      time.UnixMilli(entity.Ctime),
		Utime:      time.UnixMilli(entity.Utime),
	}, nil
}

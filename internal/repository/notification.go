package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/repository/dao"
)

type NotificationRequestRepository interface {
	Create(ctx context.Context, request domain.NotificationRequest) (domain.NotificationRequest, error)
	GetByID(ctx context.Context, id uint64) (domain.NotificationRequest, error)

	MarkSending(ctx context.Context, id uint64) error
	MarkDelivered(ctx context.Context, id uint64, attempts int8) error
	MarkFailed(ctx context.Context, id uint64, attempts int8) error
	MarkAbandoned(ctx context.Context, id uint64, reason domain.AbandonReason) error

	FindQueued(ctx context.Context, offset, limit int) ([]domain.NotificationRequest, error)
}

type notificationRequestRepository struct {
	dao dao.NotificationRequestDAO
}

func NewNotificationRequestRepository(d dao.NotificationRequestDAO) NotificationRequestRepository {
	return &notificationRequestRepository{dao: d}
}

func (repo *notificationRequestRepository) Create(ctx context.Context, request domain.NotificationRequest) (domain.NotificationRequest, error) {
	entity, err := toRequestEntity(request)
	if err != nil {
		return domain.NotificationRequest{}, err
	}
	created, err := repo.dao.Create(ctx, entity)
	if err != nil {
		return domain.NotificationRequest{}, err
	}
	return toRequestDomain(created)
}

func (repo *notificationRequestRepository) GetByID(ctx context.Context, id uint64) (domain.NotificationRequest, error) {
	entity, err := repo.dao.GetByID(ctx, id)
	if err != nil {
		return domain.NotificationRequest{}, err
	}
	return toRequestDomain(entity)
}

func (repo *notificationRequestRepository) MarkSending(ctx context.Context, id uint64) error {
	return repo.dao.MarkSending(ctx, id)
}

func (repo *notificationRequestRepository) MarkDelivered(ctx context.Context, id uint64, attempts int8) error {
	return repo.dao.MarkDelivered(ctx, id, attempts)
}

func (repo *notificationRequestRepository) MarkFailed(ctx context.Context, id uint64, attempts int8) error {
	return repo.dao.MarkFailed(ctx, id, attempts)
}

func (repo *notificationRequestRepository) MarkAbandoned(ctx context.Context, id uint64, reason domain.AbandonReason) error {
	return repo.dao.MarkAbandoned(ctx, id, string(reason))
}

func (repo *notificationRequestRepository) FindQueued(ctx context.Context, offset, limit int) ([]domain.NotificationRequest, error) {
	entities, err := repo.dao.FindQueued(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	requests := make([]domain.NotificationRequest, 0, len(entities))
	for i := range entities {
		request, err1 := toRequestDomain(entities[i])
		if err1 != nil {
			return nil, err1
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func toRequestEntity(request domain.NotificationRequest) (dao.NotificationRequest, error) {
	recipient, err := json.Marshal(request.Recipient)
	if err != nil {
		return dao.NotificationRequest{}, fmt.Errorf("%w: 序列化接收人失败: %w", errs.ErrInvalidParameter, err)
	}
	params, err := json.Marshal(request.Params)
	if err != nil {
		return dao.NotificationRequest{}, fmt.Errorf("%w: 序列化模版参数失败: %w", errs.ErrInvalidParameter, err)
	}
	return dao.NotificationRequest{
		ID:          request.ID,
		TripID:      request.TripID,
		BizID:       request.BizID,
		Type:        string(request.Type),
		Recipient:   string(recipient),
		TemplateID:  request.TemplateID,
		Params:      string(params),
		Priority:    string(request.Priority),
		Status:      request.Status.String(),
		Reason:      string(request.Reason),
		MaxAttempts: request.MaxAttempts,
		Attempts:    request.Attempts,
	}, nil
}

func toRequestDomain(entity dao.NotificationRequest) (domain.NotificationRequest, error) {
	var recipient domain.Recipient
	if err := json.Unmarshal([]byte(entity.Recipient), &recipient); err != nil {
		return domain.NotificationRequest{}, fmt.Errorf("反序列化接收人失败: %w", err)
	}
	var params map[string]string
	if err := json.Unmarshal([]byte(entity.Params), &params); err != nil {
		return domain.NotificationRequest{}, fmt.Errorf("反序列化模版参数失败: %w", err)
	}
	return domain.NotificationRequest{
		ID:          entity.ID,
		TripID:      entity.TripID,
		BizID:       entity.BizID,
		Type:        domain.NotificationType(entity.Type),
		Recipient:   recipient,
		TemplateID:  entity.TemplateID,
		Params:      params,
		Priority:    domain.Priority(entity.Priority),
		Status:      domain.RequestStatus(entity.Status),
		Reason:      domain.AbandonReason(entity.Reason),
		MaxAttempts: entity.MaxAttempts,
		Attempts:    entity.Attempts,
		Ctime:       time.UnixMilli(entity.Ctime),
	}, nil
}

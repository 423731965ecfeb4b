package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/event/settlement"
	"gitee.com/flycash/trip-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
	"github.com/sony/sonyflake"
)

// 单渠道默认最大尝试次数
const defaultMaxAttempts = 3

// Dispatcher 通知分发入口，状态流转成功后把落库的请求交给它
type Dispatcher interface {
	Enqueue(ctx context.Context, req domain.NotificationRequest) error
}

// Service 行程生命周期控制器，状态机的唯一入口。
// 状态变更、审计记录、通知请求落库对调用方是一个原子动作；
// 入队和结算事件在事务提交后执行，失败只记日志，绝不把行程状态回滚
//
//go:generate mockgen -source=./lifecycle.go -destination=./mocks/lifecycle.mock.go -package=lifecyclemocks -typed Service
type Service interface {
	CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetTrip(ctx context.Context, id int64) (domain.Trip, error)
	ListTransitions(ctx context.Context, tripID int64) ([]domain.TripStateTransition, error)

	// Apply 对行程应用一次触发器。
	// expectedVersion 不匹配返回 errs.ErrVersionMismatch；
	// 触发器在当前状态下不合法返回 errs.ErrInvalidTransition
	Apply(ctx context.Context, tripID int64, trigger domain.TripTrigger,
		payload domain.TriggerPayload, expectedVersion int) (domain.ApplyResult, error)
}

type service struct {
	repo         repository.TripRepository
	templateRepo repository.TemplateRepository
	dispatcher   Dispatcher
	settlement   settlement.TripSettledEventProducer
	idGenerator  *sonyflake.Sonyflake
	nowFn        func() time.Time
	logger       *elog.Component
}

type Option func(*service)

// WithNow 注入时钟，测试用
func WithNow(nowFn func() time.Time) Option {
	return func(s *service) {
		s.nowFn = nowFn
	}
}

func NewService(
	repo repository.TripRepository,
	templateRepo repository.TemplateRepository,
	dispatcher Dispatcher,
	settlementProducer settlement.TripSettledEventProducer,
	idGenerator *sonyflake.Sonyflake,
	opts ...Option,
) Service {
	s := &service{
		repo:         repo,
		templateRepo: templateRepo,
		dispatcher:   dispatcher,
		settlement:   settlementProducer,
		idGenerator:  idGenerator,
		nowFn:        time.Now,
		logger:       elog.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, err
	}
	trip.Status = domain.TripStatusPending
	trip.Version = 1
	return s.repo.Create(ctx, trip)
}

func (s *service) GetTrip(ctx context.Context, id int64) (domain.Trip, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListTransitions(ctx context.Context, tripID int64) ([]domain.TripStateTransition, error) {
	return s.repo.ListTransitions(ctx, tripID)
}

func (s *service) Apply(ctx context.Context, tripID int64, trigger domain.TripTrigger,
	payload domain.TriggerPayload, expectedVersion int,
) (domain.ApplyResult, error) {
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	// 预检，真正的防线是数据库里的CAS
	if trip.Version != expectedVersion {
		return domain.ApplyResult{}, fmt.Errorf("%w: id = %d, expectedVersion = %d, current = %d",
			errs.ErrVersionMismatch, tripID, expectedVersion, trip.Version)
	}
	to, err := nextStatus(trip.Status, trigger)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	from := trip.Status
	trip.Status = to
	if trigger == domain.TriggerModificationRequested {
		if err := s.applyModification(&trip, payload); err != nil {
			return domain.ApplyResult{}, err
		}
	}

	requests, err := s.buildRequests(ctx, trip, trigger, payload)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	requestIDs := make([]uint64, 0, len(requests))
	for i := range requests {
		requestIDs = append(requestIDs, requests[i].ID)
	}
	transition := domain.TripStateTransition{
		TripID:     trip.ID,
		FromStatus: from,
		ToStatus:   to,
		Trigger:    trigger,
		Actor:      payload.Actor,
		RequestIDs: requestIDs,
	}
	if err := s.repo.Transition(ctx, trip, expectedVersion, transition, requests); err != nil {
		return domain.ApplyResult{}, err
	}
	trip.Version = expectedVersion + 1

	// 事务已提交，下面的失败都不回传给触发方
	for i := range requests {
		if err := s.dispatcher.Enqueue(ctx, requests[i]); err != nil {
			s.logger.Error("通知请求入队失败",
				elog.FieldErr(err),
				elog.Any("requestID", requests[i].ID))
		}
	}
	s.emitSettlement(ctx, trip, payload)

	return domain.ApplyResult{Trip: trip, RequestIDs: requestIDs}, nil
}

func (s *service) applyModification(trip *domain.Trip, payload domain.TriggerPayload) error {
	if payload.NewStartTime.IsZero() || payload.NewEndTime.IsZero() ||
		!payload.NewEndTime.After(payload.NewStartTime) {
		return fmt.Errorf("%w: 新行程时间非法 start = %v, end = %v",
			errs.ErrInvalidParameter, payload.NewStartTime, payload.NewEndTime)
	}
	trip.StartTime = payload.NewStartTime
	trip.EndTime = payload.NewEndTime
	return nil
}

// buildRequests 按触发器产出通知请求，ID在入库前就生成好
func (s *service) buildRequests(ctx context.Context, trip domain.Trip,
	trigger domain.TripTrigger, payload domain.TriggerPayload,
) ([]domain.NotificationRequest, error) {
	typ, priority, ok := notificationFor(trigger)
	if !ok {
		return nil, nil
	}
	params := map[string]string{
		"trip_id":    strconv.FormatInt(trip.ID, 10),
		"start_date": trip.StartTime.Format("2006-01-02 15:04"),
	}
	switch trigger {
	case domain.TriggerCancellationRequested:
		now := payload.Now
		if now.IsZero() {
			now = s.nowFn()
		}
		refund := RefundAmount(trip.PaidAmount, trip.DaysUntilStart(now))
		params["refund_amount"] = formatMoney(refund)
	case domain.TriggerRefundProcessed:
		refund, err := s.resolveRefund(ctx, trip, payload)
		if err != nil {
			return nil, err
		}
		params["refund_amount"] = formatMoney(refund)
	default:
	}

	tpl, err := s.templateRepo.GetByType(ctx, typ)
	if err != nil {
		return nil, err
	}
	id, err := s.idGenerator.NextID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrRequestIDGenerate, err)
	}
	return []domain.NotificationRequest{{
		ID:          id,
		TripID:      trip.ID,
		BizID:       trip.BizID,
		Type:        typ,
		Recipient:   trip.Recipient,
		TemplateID:  tpl.ID,
		Params:      params,
		Priority:    priority,
		Status:      domain.RequestStatusQueued,
		MaxAttempts: defaultMaxAttempts,
	}}, nil
}

// resolveRefund 实际退款金额。
// 支付回调没带金额时，按取消流转发生的时点套退款阶梯重算
func (s *service) resolveRefund(ctx context.Context, trip domain.Trip, payload domain.TriggerPayload) (int64, error) {
	if payload.RefundAmount > 0 {
		return payload.RefundAmount, nil
	}
	transitions, err := s.repo.ListTransitions(ctx, trip.ID)
	if err != nil {
		return 0, err
	}
	for i := len(transitions) - 1; i >= 0; i-- {
		if transitions[i].Trigger == domain.TriggerCancellationRequested {
			return RefundAmount(trip.PaidAmount, trip.DaysUntilStart(transitions[i].Ctime)), nil
		}
	}
	return 0, nil
}

func (s *service) emitSettlement(ctx context.Context, trip domain.Trip, payload domain.TriggerPayload) {
	if trip.Status != domain.TripStatusCompleted && trip.Status != domain.TripStatusRefunded {
		return
	}
	evt := settlement.TripSettledEvent{
		TripID:     trip.ID,
		BizID:      trip.BizID,
		Status:     trip.Status.String(),
		PaidAmount: trip.PaidAmount,
		Currency:   trip.Currency,
		SettledAt:  s.nowFn().UnixMilli(),
	}
	if trip.Status == domain.TripStatusRefunded {
		refund, err := s.resolveRefund(ctx, trip, payload)
		if err != nil {
			s.logger.Error("计算退款金额失败",
				elog.FieldErr(err),
				elog.Int64("tripID", trip.ID))
		}
		evt.RefundAmount = refund
	}
	if err := s.settlement.Produce(ctx, evt); err != nil {
		s.logger.Error("发送结算事件失败",
			elog.FieldErr(err),
			elog.Int64("tripID", trip.ID))
	}
}

// notificationFor 触发器对应的通知类型和优先级
func notificationFor(trigger domain.TripTrigger) (domain.NotificationType, domain.Priority, bool) {
	switch trigger {
	case domain.TriggerPaymentCompleted:
		return domain.NotificationTypeBookingConfirmed, domain.PriorityNormal, true
	case domain.TriggerScheduledReminderTick:
		return domain.NotificationTypeReminder, domain.PriorityNormal, true
	case domain.TriggerTourStart:
		return domain.NotificationTypeTripStarted, domain.PriorityLow, true
	case domain.TriggerTourEnd:
		return domain.NotificationTypeReviewRequest, domain.PriorityLow, true
	case domain.TriggerCancellationRequested:
		return domain.NotificationTypeCancellation, domain.PriorityHigh, true
	case domain.TriggerRefundProcessed:
		return domain.NotificationTypeRefundCompleted, domain.PriorityHigh, true
	case domain.TriggerNoShowDetected:
		return domain.NotificationTypeNoShowRecorded, domain.PriorityNormal, true
	case domain.TriggerModificationRequested:
		return domain.NotificationTypeItineraryUpdated, domain.PriorityNormal, true
	case domain.TriggerWaitlistPromotion, domain.TriggerPriorityAssignment:
		return domain.NotificationTypeAvailability, domain.PriorityNormal, true
	default:
		// modification_confirmed 只是确认回到待出行，不再发通知
		return "", "", false
	}
}

// formatMoney 分转成带两位小数的金额字符串
func formatMoney(cents int64) string {
	const centsPerUnit = 100
	return fmt.Sprintf("%d.%02d", cents/centsPerUnit, cents%centsPerUnit)
}

package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/errs"
)

// Channel 通知渠道
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP" // WhatsApp，免费
	ChannelEmail    Channel = "EMAIL"    // 邮件，免费
	ChannelSMS      Channel = "SMS"      // 短信，按条计费，受预算限制
)

func (c Channel) String() string {
	return string(c)
}

// IsPaid 是否计费渠道。计费渠道的每次发送都要先经过预算授权
func (c Channel) IsPaid() bool {
	return c == ChannelSMS
}

// Priority 通知优先级
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// Weight 权重，数字越小越先出队
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}

// RequestStatus 通知请求状态，只能向前流转
type RequestStatus string

const (
	RequestStatusQueued    RequestStatus = "QUEUED"     // 已入队
	RequestStatusSending   RequestStatus = "SENDING"    // 发送中
	RequestStatusDelivered RequestStatus = "DELIVERED"  // 已送达
	RequestStatusFailed    RequestStatus = "FAILED"     // 单渠道失败，等待重试
	RequestStatusAbandoned RequestStatus = "ABANDONED"  // 不再重试，仅供运营可见
)

func (s RequestStatus) String() string {
	return string(s)
}

// AbandonReason 放弃原因
type AbandonReason string

const (
	AbandonReasonBudgetExceeded    AbandonReason = "budget_exceeded"
	AbandonReasonRenderError       AbandonReason = "render_error"
	AbandonReasonSuperseded        AbandonReason = "superseded"
	AbandonReasonAllChannelsFailed AbandonReason = "all_channels_failed"
)

// NotificationType 通知业务类型，对应一个模版
type NotificationType string

const (
	NotificationTypeBookingConfirmed NotificationType = "booking_confirmed"
	NotificationTypeReminder         NotificationType = "reminder"
	NotificationTypeTripStarted      NotificationType = "trip_started"
	NotificationTypeReviewRequest    NotificationType = "review_request"
	NotificationTypeCancellation     NotificationType = "cancellation_confirmed"
	NotificationTypeRefundCompleted  NotificationType = "refund_completed"
	NotificationTypeNoShowRecorded   NotificationType = "no_show_recorded"
	NotificationTypeItineraryUpdated NotificationType = "itinerary_updated"
	NotificationTypeAvailability     NotificationType = "availability"
)

// NotificationRequest 一条待分发的通知，分发引擎的工作单元
type NotificationRequest struct {
	ID          uint64 // 雪花ID
	TripID      int64  // 关联行程，可以为0表示不关联
	BizID       int64
	Type        NotificationType
	Recipient   Recipient
	TemplateID  int64
	Params      map[string]string // 模版变量
	Priority    Priority
	Status      RequestStatus
	Reason      AbandonReason // 仅 ABANDONED 时有值
	MaxAttempts int8          // 单渠道最大尝试次数
	Attempts    int8          // 当前渠道已尝试次数
	Ctime       time.Time
}

func (n *NotificationRequest) Validate() error {
	if n.BizID <= 0 {
		return fmt.Errorf("%w: BizID = %d", errs.ErrInvalidParameter, n.BizID)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: Type 为空", errs.ErrInvalidParameter)
	}
	if n.TemplateID <= 0 {
		return fmt.Errorf("%w: TemplateID = %d", errs.ErrInvalidParameter, n.TemplateID)
	}
	if n.Recipient.CustomerID <= 0 {
		return fmt.Errorf("%w: Recipient.CustomerID = %d", errs.ErrInvalidParameter, n.Recipient.CustomerID)
	}
	if n.MaxAttempts <= 0 {
		return fmt.Errorf("%w: MaxAttempts = %d", errs.ErrInvalidParameter, n.MaxAttempts)
	}
	return nil
}

// AttemptOutcome 单次渠道尝试的结果
type AttemptOutcome string

const (
	AttemptOutcomeSuccess          AttemptOutcome = "SUCCESS"
	AttemptOutcomeTransientFailure AttemptOutcome = "TRANSIENT_FAILURE"
	AttemptOutcomePermanentFailure AttemptOutcome = "PERMANENT_FAILURE"
)

// ChannelAttempt 一次渠道执行记录，写入后不可变
type ChannelAttempt struct {
	ID        string // UUID
	RequestID uint64
	Channel   Channel
	Cost      int64 // 实际产生的费用，单位分
	Latency   time.Duration
	Outcome   AttemptOutcome
	Ctime     time.Time
}

// SendResponse 渠道适配器的发送结果
type SendResponse struct {
	RequestID uint64
	Cost      int64 // 本次发送费用，单位分
	Latency   time.Duration
}

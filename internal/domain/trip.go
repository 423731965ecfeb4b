package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/errs"
)

// TripStatus 行程状态
type TripStatus string

const (
	TripStatusPending     TripStatus = "PENDING"      // 待支付
	TripStatusUpcoming    TripStatus = "UPCOMING"     // 待出行
	TripStatusInProgress  TripStatus = "IN_PROGRESS"  // 行程中
	TripStatusCompleted   TripStatus = "COMPLETED"    // 已完成
	TripStatusCancelled   TripStatus = "CANCELLED"    // 已取消
	TripStatusRefunded    TripStatus = "REFUNDED"     // 已退款
	TripStatusNoShow      TripStatus = "NO_SHOW"      // 未到场
	TripStatusModified    TripStatus = "MODIFIED"     // 变更待确认
	TripStatusWaitingList TripStatus = "WAITING_LIST" // 候补
	TripStatusPriority    TripStatus = "PRIORITY"     // 优先候补
)

func (s TripStatus) String() string {
	return string(s)
}

// IsTerminal 终态判断。CANCELLED 仍然允许 REFUNDED 这一个出口
func (s TripStatus) IsTerminal() bool {
	switch s {
	case TripStatusCompleted, TripStatusRefunded, TripStatusNoShow:
		return true
	default:
		return false
	}
}

// TripTrigger 状态机触发器
type TripTrigger string

const (
	TriggerPaymentCompleted      TripTrigger = "payment_completed"
	TriggerScheduledReminderTick TripTrigger = "scheduled_reminder_tick"
	TriggerTourStart             TripTrigger = "tour_start"
	TriggerTourEnd               TripTrigger = "tour_end"
	TriggerCancellationRequested TripTrigger = "cancellation_requested"
	TriggerRefundProcessed       TripTrigger = "refund_processed"
	TriggerNoShowDetected        TripTrigger = "no_show_detected"
	TriggerModificationRequested TripTrigger = "modification_requested"
	TriggerModificationConfirmed TripTrigger = "modification_confirmed"
	TriggerWaitlistPromotion     TripTrigger = "waitlist_promotion"
	TriggerPriorityAssignment    TripTrigger = "priority_assignment"
)

func (t TripTrigger) String() string {
	return string(t)
}

// Recipient 通知接收人
type Recipient struct {
	CustomerID int64  // 客户ID
	Phone      string // 手机号
	Email      string // 邮箱
	Language   string // 首选语言
}

// Trip 行程领域模型
type Trip struct {
	ID         int64      // 行程唯一标识
	BizID      int64      // 业务方ID
	Status     TripStatus // 当前状态
	StartTime  time.Time  // 计划开始时间
	EndTime    time.Time  // 计划结束时间
	PaidAmount int64      // 已支付金额，单位分
	Currency   string     // 币种
	Recipient  Recipient  // 客户联系方式
	Version    int        // 版本号，状态变更时严格递增
	Ctime      time.Time
	Utime      time.Time
}

func (t *Trip) Validate() error {
	if t.BizID <= 0 {
		return fmt.Errorf("%w: BizID = %d", errs.ErrInvalidParameter, t.BizID)
	}
	if t.Recipient.CustomerID <= 0 {
		return fmt.Errorf("%w: Recipient.CustomerID = %d", errs.ErrInvalidParameter, t.Recipient.CustomerID)
	}
	if t.StartTime.IsZero() || t.EndTime.IsZero() || !t.EndTime.After(t.StartTime) {
		return fmt.Errorf("%w: StartTime = %v, EndTime = %v", errs.ErrInvalidParameter, t.StartTime, t.EndTime)
	}
	if t.PaidAmount < 0 {
		return fmt.Errorf("%w: PaidAmount = %d", errs.ErrInvalidParameter, t.PaidAmount)
	}
	return nil
}

// DaysUntilStart 距离开始还有多少个整天，已开始则为0
func (t *Trip) DaysUntilStart(now time.Time) int {
	if !now.Before(t.StartTime) {
		return 0
	}
	return int(t.StartTime.Sub(now) / (24 * time.Hour))
}

// TripStateTransition 状态流转审计记录，仅追加
type TripStateTransition struct {
	ID         int64
	TripID     int64
	FromStatus TripStatus
	ToStatus   TripStatus
	Trigger    TripTrigger
	Actor      string   // 操作来源：customer/operator/scheduler/payment
	RequestIDs []uint64 // 本次流转产生的通知请求ID
	Ctime      time.Time
}

// TriggerPayload 触发器携带的数据
type TriggerPayload struct {
	Actor string // 操作来源

	// cancellation_requested 计算退款用
	Now time.Time

	// refund_processed 实际退款金额（分），为0时按取消时点的退款政策重算
	RefundAmount int64

	// modification_requested 的新行程时间
	NewStartTime time.Time
	NewEndTime   time.Time
}

// ApplyResult Apply 成功之后的结果
type ApplyResult struct {
	Trip       Trip
	RequestIDs []uint64 // 本次流转入队的通知请求
}

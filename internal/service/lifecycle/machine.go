package lifecycle

import (
	"fmt"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
)

// transitionTable 触发器 -> 合法的起始状态 -> 目标状态。
// 查表即校验，表里没有的组合一律拒绝
var transitionTable = map[domain.TripTrigger]map[domain.TripStatus]domain.TripStatus{
	domain.TriggerPaymentCompleted: {
		domain.TripStatusPending: domain.TripStatusUpcoming,
	},
	// 提醒不改状态，只产生副作用
	domain.TriggerScheduledReminderTick: {
		domain.TripStatusUpcoming: domain.TripStatusUpcoming,
	},
	domain.TriggerTourStart: {
		domain.TripStatusUpcoming: domain.TripStatusInProgress,
	},
	domain.TriggerTourEnd: {
		domain.TripStatusInProgress: domain.TripStatusCompleted,
	},
	domain.TriggerCancellationRequested: {
		domain.TripStatusPending:  domain.TripStatusCancelled,
		domain.TripStatusUpcoming: domain.TripStatusCancelled,
	},
	// 取消后批准了退款，CANCELLED 是唯一可以离开的"终态"
	domain.TriggerRefundProcessed: {
		domain.TripStatusCancelled: domain.TripStatusRefunded,
	},
	domain.TriggerNoShowDetected: {
		domain.TripStatusUpcoming: domain.TripStatusNoShow,
	},
	domain.TriggerModificationRequested: {
		domain.TripStatusPending:  domain.TripStatusModified,
		domain.TripStatusUpcoming: domain.TripStatusModified,
	},
	// 新行程时间校验通过后回到待出行
	domain.TriggerModificationConfirmed: {
		domain.TripStatusModified: domain.TripStatusUpcoming,
	},
	// 候补转正：有了空位就回到待支付
	domain.TriggerWaitlistPromotion: {
		domain.TripStatusWaitingList: domain.TripStatusPending,
		domain.TripStatusPriority:    domain.TripStatusPending,
	},
	// 普通候补升级为优先候补
	domain.TriggerPriorityAssignment: {
		domain.TripStatusWaitingList: domain.TripStatusPriority,
	},
}

// nextStatus 查找从 from 经 trigger 到达的状态
func nextStatus(from domain.TripStatus, trigger domain.TripTrigger) (domain.TripStatus, error) {
	targets, ok := transitionTable[trigger]
	if !ok {
		return "", fmt.Errorf("%w: 未知触发器 %s", errs.ErrInvalidTransition, trigger)
	}
	to, ok := targets[from]
	if !ok {
		return "", fmt.Errorf("%w: %s 状态下不允许 %s", errs.ErrInvalidTransition, from, trigger)
	}
	return to, nil
}

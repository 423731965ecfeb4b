package domain

import (
	"time"
)

// BudgetPeriod 一个计费渠道在一个自然月内的预算账本
// 只由 BudgetGuard 修改，周期滚动时新建记录，永不覆盖
type BudgetPeriod struct {
	ID          int64
	Channel     Channel
	PeriodStart time.Time // 周期起点，自然月第一天零点
	PeriodEnd   time.Time // 周期终点，下个月第一天零点
	Ceiling     int64     // 授权上限，单位分
	Spent       int64     // 已花费（含预留），单位分
	AlertFired  bool      // 阈值告警是否已触发，每个周期只告警一次
	Ctime       time.Time
	Utime       time.Time
}

// Remaining 剩余可授权额度
func (b *BudgetPeriod) Remaining() int64 {
	return b.Ceiling - b.Spent
}

// Usage 已用比例，0~1
func (b *BudgetPeriod) Usage() float64 {
	if b.Ceiling <= 0 {
		return 1
	}
	return float64(b.Spent) / float64(b.Ceiling)
}

package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/errs"
	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

// BudgetPeriod 预算周期表
// 一个计费渠道一个自然月一行，滚动时新建，永不覆盖
type BudgetPeriod struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;comment:'预算周期ID'"`
	Channel     string `gorm:"type:ENUM('WHATSAPP','EMAIL','SMS');NOT NULL;uniqueIndex:idx_channel_period,priority:1;comment:'计费渠道'"`
	PeriodStart int64  `gorm:"NOT NULL;uniqueIndex:idx_channel_period,priority:2;comment:'周期起点，毫秒时间戳'"`
	PeriodEnd   int64  `gorm:"NOT NULL;comment:'周期终点，毫秒时间戳'"`
	Ceiling     int64  `gorm:"NOT NULL;comment:'授权上限，单位分'"`
	Spent       int64  `gorm:"NOT NULL;DEFAULT:0;comment:'已花费（含预留），单位分'"`
	AlertFired  bool   `gorm:"NOT NULL;DEFAULT:0;comment:'阈值告警是否已触发'"`
	Ctime       int64
	Utime       int64
}

func (BudgetPeriod) TableName() string {
	return "budget_periods"
}

type BudgetPeriodDAO interface {
	// Create 周期滚动时新建，(channel, period_start) 唯一
	Create(ctx context.Context, period BudgetPeriod) (BudgetPeriod, error)
	// GetCurrent 取覆盖 now 的那个周期
	GetCurrent(ctx context.Context, channel string, now int64) (BudgetPeriod, error)

	// IncrSpent 条件扣减：只有 spent + amount <= ceiling 才会成功
	// 上层已经用锁串行化了，这里的条件只是保底
	IncrSpent(ctx context.Context, id int64, amount int64) error
	// DecrSpent 释放预留额度
	DecrSpent(ctx context.Context, id int64, amount int64) error
	MarkAlertFired(ctx context.Context, id int64) error
}

type budgetPeriodDAO struct {
	db *egorm.Component
}

func NewBudgetPeriodDAO(db *egorm.Component) BudgetPeriodDAO {
	return &budgetPeriodDAO{db: db}
}

func (d *budgetPeriodDAO) Create(ctx context.Context, period BudgetPeriod) (BudgetPeriod, error) {
	now := time.Now().UnixMilli()
	period.Ctime, period.Utime = now, now
	if err := d.db.WithContext(ctx).Create(&period).Error; err != nil {
		if isUniqueConstraintError(err) {
			return BudgetPeriod{}, fmt.Errorf("%w: channel = %s", errs.ErrBudgetPeriodDuplicate, period.Channel)
		}
		return BudgetPeriod{}, err
	}
	return period, nil
}

func (d *budgetPeriodDAO) GetCurrent(ctx context.Context, channel string, now int64) (BudgetPeriod, error) {
	var period BudgetPeriod
	err := d.db.WithContext(ctx).
		Where("channel = ? AND period_start <= ? AND period_end > ?", channel, now, now).
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BudgetPeriod{}, fmt.Errorf("%w: channel = %s", errs.ErrBudgetPeriodNotFound, channel)
		}
		return BudgetPeriod{}, err
	}
	return period, nil
}

func (d *budgetPeriodDAO) IncrSpent(ctx context.Context, id int64, amount int64) error {
	res := d.db.WithContext(ctx).Model(&BudgetPeriod{}).
		Where("id = ? AND spent + ? <= ceiling", id, amount).
		Updates(map[string]any{
			"spent": gorm.Expr("`spent` + ?", amount),
			"utime": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id = %d, amount = %d", errs.ErrNoBudget, id, amount)
	}
	return nil
}

func (d *budgetPeriodDAO) DecrSpent(ctx context.Context, id int64, amount int64) error {
	return d.db.WithContext(ctx).Model(&BudgetPeriod{}).
		Where("id = ? AND spent >= ?", id, amount).
		Updates(map[string]any{
			"spent": gorm.Expr("`spent` - ?", amount),
			"utime": time.Now().UnixMilli(),
		}).Error
}

func (d *budgetPeriodDAO) MarkAlertFired(ctx context.Context, id int64) error {
	return d.db.WithContext(ctx).Model(&BudgetPeriod{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"alert_fired": true,
			"utime":       time.Now().UnixMilli(),
		}).Error
}

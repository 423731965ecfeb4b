package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/errs"
	"github.com/ego-component/egorm"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Trip 行程表
type Trip struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;comment:'行程ID'"`
	BizID      int64  `gorm:"type:BIGINT;NOT NULL;index:idx_biz_id;comment:'业务方ID'"`
	Status     string `gorm:"type:ENUM('PENDING','UPCOMING','IN_PROGRESS','COMPLETED','CANCELLED','REFUNDED','NO_SHOW','MODIFIED','WAITING_LIST','PRIORITY');NOT NULL;DEFAULT:'PENDING';index:idx_status_stime,priority:1;comment:'行程状态'"`
	StartTime  int64  `gorm:"NOT NULL;index:idx_status_stime,priority:2;comment:'计划开始时间，毫秒时间戳'"`
	EndTime    int64  `gorm:"NOT NULL;comment:'计划结束时间，毫秒时间戳'"`
	PaidAmount int64  `gorm:"NOT NULL;DEFAULT:0;comment:'已支付金额，单位分'"`
	Currency   string `gorm:"type:VARCHAR(8);NOT NULL;DEFAULT:'CNY';comment:'币种'"`
	Recipient  string `gorm:"type:TEXT;NOT NULL;comment:'客户联系方式，JSON'"`
	// 提醒扫描任务用，避免同一行程重复发提醒
	ReminderSent bool `gorm:"NOT NULL;DEFAULT:0;comment:'T-2天提醒是否已触发'"`
	Version      int  `gorm:"type:INT;NOT NULL;DEFAULT:1;comment:'版本号，用于CAS操作'"`
	Ctime        int64
	Utime        int64
}

func (Trip) TableName() string {
	return "trips"
}

// TripStateTransition 行程状态流转审计表，仅追加
type TripStateTransition struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;comment:'审计记录ID'"`
	TripID     int64  `gorm:"type:BIGINT;NOT NULL;index:idx_trip_id;comment:'关联行程ID'"`
	FromStatus string `gorm:"type:VARCHAR(16);NOT NULL;comment:'流转前状态'"`
	ToStatus   string `gorm:"type:VARCHAR(16);NOT NULL;comment:'流转后状态'"`
	Trigger    string `gorm:"column:trigger_name;type:VARCHAR(32);NOT NULL;comment:'触发器'"`
	Actor      string `gorm:"type:VARCHAR(32);NOT NULL;comment:'操作来源'"`
	RequestIDs string `gorm:"type:TEXT;NOT NULL;comment:'本次流转产生的通知请求ID，JSON数组'"`
	Ctime      int64
}

func (TripStateTransition) TableName() string {
	return "trip_state_transitions"
}

type TripDAO interface {
	// Create 创建行程，初始状态 PENDING，版本号1
	Create(ctx context.Context, trip Trip) (Trip, error)
	GetByID(ctx context.Context, id int64) (Trip, error)

	// Transition 在一个事务里完成：行程状态CAS更新、审计记录插入、通知请求插入
	// 对调用方而言三者要么全部可见要么全都不可见
	Transition(ctx context.Context, trip Trip, expectedVersion int,
		transition TripStateTransition, requests []NotificationRequest) error

	// RecordSideEffect 状态不变、只有副作用的流转（比如提醒），仍然要求CAS版本递增并落审计
	// 语义与 Transition 一致，单独命名只是为了可读性
	RecordSideEffect(ctx context.Context, trip Trip, expectedVersion int,
		transition TripStateTransition, requests []NotificationRequest) error

	// FindUpcomingForReminder 找到进入提醒窗口且尚未提醒过的行程
	FindUpcomingForReminder(ctx context.Context, startAfter, startBefore int64, limit int) ([]Trip, error)
	// MarkReminderSent 提醒触发后打标，防止重复扫描
	MarkReminderSent(ctx context.Context, id int64) error

	ListTransitions(ctx context.Context, tripID int64) ([]TripStateTransition, error)
}

type tripDAO struct {
	db *egorm.Component
}

func NewTripDAO(db *egorm.Component) TripDAO {
	return &tripDAO{db: db}
}

func (d *tripDAO) Create(ctx context.Context, trip Trip) (Trip, error) {
	now := time.Now().UnixMilli()
	trip.Ctime, trip.Utime = now, now
	trip.Version = 1
	if err := d.db.WithContext(ctx).Create(&trip).Error; err != nil {
		if isUniqueConstraintError(err) {
			return Trip{}, fmt.Errorf("%w", errs.ErrTripDuplicate)
		}
		return Trip{}, fmt.Errorf("%w: %w", errs.ErrCreateTripFailed, err)
	}
	return trip, nil
}

func (d *tripDAO) GetByID(ctx context.Context, id int64) (Trip, error) {
	var trip Trip
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Trip{}, fmt.Errorf("%w: id = %d", errs.ErrTripNotFound, id)
		}
		return Trip{}, err
	}
	return trip, nil
}

func (d *tripDAO) Transition(ctx context.Context, trip Trip, expectedVersion int,
	transition TripStateTransition, requests []NotificationRequest,
) error {
	return d.transition(ctx, trip, expectedVersion, transition, requests)
}

func (d *tripDAO) RecordSideEffect(ctx context.Context, trip Trip, expectedVersion int,
	transition TripStateTransition, requests []NotificationRequest,
) error {
	return d.transition(ctx, trip, expectedVersion, transition, requests)
}

func (d *tripDAO) transition(ctx context.Context, trip Trip, expectedVersion int,
	transition TripStateTransition, requests []NotificationRequest,
) error {
	now := time.Now().UnixMilli()
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 乐观锁：只有版本号匹配才会更新，版本号严格加一
		updates := map[string]any{
			"status":     trip.Status,
			"start_time": trip.StartTime,
			"end_time":   trip.EndTime,
			"version":    gorm.Expr("`version` + 1"),
			"utime":      now,
		}
		res := tx.Model(&Trip{}).
			Where("id = ? AND version = ?", trip.ID, expectedVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 区分是版本冲突还是行程不存在
			var cnt int64
			if err := tx.Model(&Trip{}).Where("id = ?", trip.ID).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return fmt.Errorf("%w: id = %d", errs.ErrTripNotFound, trip.ID)
			}
			return fmt.Errorf("%w: id = %d, expectedVersion = %d", errs.ErrVersionMismatch, trip.ID, expectedVersion)
		}

		transition.Ctime = now
		if err := tx.Create(&transition).Error; err != nil {
			return err
		}

		for i := range requests {
			requests[i].Ctime, requests[i].Utime = now, now
		}
		if len(requests) > 0 {
			if err := tx.Create(&requests).Error; err != nil {
				if isUniqueConstraintError(err) {
					return fmt.Errorf("%w", errs.ErrRequestDuplicate)
				}
				return err
			}
		}
		return nil
	})
}

func (d *tripDAO) FindUpcomingForReminder(ctx context.Context, startAfter, startBefore int64, limit int) ([]Trip, error) {
	var trips []Trip
	err := d.db.WithContext(ctx).
		Where("status = ? AND reminder_sent = ? AND start_time > ? AND start_time <= ?",
			"UPCOMING", false, startAfter, startBefore).
		Limit(limit).
		Find(&trips).Error
	return trips, err
}

func (d *tripDAO) MarkReminderSent(ctx context.Context, id int64) error {
	return d.db.WithContext(ctx).Model(&Trip{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reminder_sent": true,
			"utime":         time.Now().UnixMilli(),
		}).Error
}

func (d *tripDAO) ListTransitions(ctx context.Context, tripID int64) ([]TripStateTransition, error) {
	var transitions []TripStateTransition
	err := d.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("id ASC").
		Find(&transitions).Error
	return transitions, err
}

// isUniqueConstraintError 检查是否是唯一索引冲突错误
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	me := new(mysql.MySQLError)
	if ok := errors.As(err, &me); ok {
		const uniqueIndexErrNo uint16 = 1062
		return me.Number == uniqueIndexErrNo
	}
	return false
}

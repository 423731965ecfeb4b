package dao

import (
	"context"
	"time"

	"github.com/ego-component/egorm"
)

// ChannelAttempt 渠道尝试流水表，仅追加
type ChannelAttempt struct {
	ID        string `gorm:"primaryKey;type:VARCHAR(36);comment:'UUID'"`
	RequestID uint64 `gorm:"type:BIGINT UNSIGNED;NOT NULL;index:idx_request_id;comment:'关联通知请求ID'"`
	Channel   string `gorm:"type:ENUM('WHATSAPP','EMAIL','SMS');NOT NULL;comment:'执行渠道'"`
	Cost      int64  `gorm:"NOT NULL;DEFAULT:0;comment:'本次尝试产生的费用，单位分'"`
	LatencyMs int64  `gorm:"NOT NULL;DEFAULT:0;comment:'本次尝试耗时，毫秒'"`
	Outcome   string `gorm:"type:ENUM('SUCCESS','TRANSIENT_FAILURE','PERMANENT_FAILURE');NOT NULL;comment:'尝试结果'"`
	Ctime     int64  `gorm:"index:idx_ctime"`
}

func (ChannelAttempt) TableName() string {
	return "channel_attempts"
}

// TypeCount 按通知类型统计的送达数
type TypeCount struct {
	Type  string
	Count int64
}

type ChannelAttemptDAO interface {
	Create(ctx context.Context, attempt ChannelAttempt) error
	ListByRequestID(ctx context.Context, requestID uint64) ([]ChannelAttempt, error)

	// TotalCost 区间内所有尝试的总费用，无论结果
	TotalCost(ctx context.Context, start, end int64) (int64, error)
	// DeliveredCountByType 区间内送达请求数按通知类型分组
	DeliveredCountByType(ctx context.Context, start, end int64) ([]TypeCount, error)
}

type channelAttemptDAO struct {
	db *egorm.Component
}

func NewChannelAttemptDAO(db *egorm.Component) ChannelAttemptDAO {
	return &channelAttemptDAO{db: db}
}

func (d *channelAttemptDAO) Create(ctx context.Context, attempt ChannelAttempt) error {
	attempt.Ctime = time.Now().UnixMilli()
	return d.db.WithContext(ctx).Create(&attempt).Error
}

func (d *channelAttemptDAO) ListByRequestID(ctx context.Context, requestID uint64) ([]ChannelAttempt, error) {
	var attempts []ChannelAttempt
	err := d.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("ctime ASC").
		Find(&attempts).Error
	return attempts, err
}

func (d *channelAttemptDAO) TotalCost(ctx context.Context, start, end int64) (int64, error) {
	var total int64
	err := d.db.WithContext(ctx).Model(&ChannelAttempt{}).
		Select("COALESCE(SUM(cost), 0)").
		Where("ctime >= ? AND ctime < ?", start, end).
		Scan(&total).Error
	return total, err
}

func (d *channelAttemptDAO) DeliveredCountByType(ctx context.Context, start, end int64) ([]TypeCount, error) {
	var counts []TypeCount
	err := d.db.WithContext(ctx).Model(&ChannelAttempt{}).
		Select("notification_requests.type AS type, COUNT(DISTINCT channel_attempts.request_id) AS count").
		Joins("JOIN notification_requests ON notification_requests.id = channel_attempts.request_id").
		Where("channel_attempts.outcome = ? AND channel_attempts.ctime >= ? AND channel_attempts.ctime < ?",
			"SUCCESS", start, end).
		Group("notification_requests.type").
		Scan(&counts).Error
	return counts, err
}

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

// NotificationRequest 通知请求表
type NotificationRequest struct {
	ID          uint64 `gorm:"primaryKey;comment:'雪花算法ID'"`
	TripID      int64  `gorm:"type:BIGINT;NOT NULL;DEFAULT:0;index:idx_trip_id;comment:'关联行程ID，0表示不关联行程'"`
	BizID       int64  `gorm:"type:BIGINT;NOT NULL;index:idx_biz_id;comment:'业务方ID'"`
	Type        string `gorm:"type:VARCHAR(32);NOT NULL;comment:'通知业务类型'"`
	Recipient   string `gorm:"type:TEXT;NOT NULL;comment:'接收人联系方式，JSON'"`
	TemplateID  int64  `gorm:"type:BIGINT;NOT NULL;comment:'模板ID'"`
	Params      string `gorm:"NOT NULL;comment:'模版参数，JSON'"`
	Priority    string `gorm:"type:ENUM('URGENT','HIGH','NORMAL','LOW');NOT NULL;DEFAULT:'NORMAL';comment:'优先级'"`
	Status      string `gorm:"type:ENUM('QUEUED','SENDING','DELIVERED','FAILED','ABANDONED');NOT NULL;DEFAULT:'QUEUED';index:idx_status;comment:'请求状态'"`
	Reason      string `gorm:"type:VARCHAR(32);NOT NULL;DEFAULT:'';comment:'放弃原因，仅ABANDONED时有值'"`
	MaxAttempts int8   `gorm:"NOT NULL;DEFAULT:3;comment:'单渠道最大尝试次数'"`
	Attempts    int8   `gorm:"NOT NULL;DEFAULT:0;comment:'当前渠道已尝试次数'"`
	Ctime       int64
	Utime       int64
}

func (NotificationRequest) TableName() string {
	return "notification_requests"
}

type NotificationRequestDAO interface {
	Create(ctx context.Context, data NotificationRequest) (NotificationRequest, error)
	GetByID(ctx context.Context, id uint64) (NotificationRequest, error)

	// MarkSending QUEUED/FAILED -> SENDING，状态只向前走
	MarkSending(ctx context.Context, id uint64) error
	MarkDelivered(ctx context.Context, id uint64, attempts int8) error
	// MarkFailed 单渠道一次失败之后回到待重试
	MarkFailed(ctx context.Context, id uint64, attempts int8) error
	MarkAbandoned(ctx context.Context, id uint64, reason string) error

	// FindQueued 启动恢复用：捞出仍处于 QUEUED/FAILED 的请求重新入队
	FindQueued(ctx context.Context, offset, limit int) ([]NotificationRequest, error)
}

type notificationRequestDAO struct {
	db *egorm.Component
}

func NewNotificationRequestDAO(db *egorm.Component) NotificationRequestDAO {
	return &notificationRequestDAO{db: db}
}

func (d *notificationRequestDAO) Create(ctx context.Context, data NotificationRequest) (NotificationRequest, error) {
	now := time.Now().UnixMilli()
	data.Ctime, data.Utime = now, now
	if err := d.db.WithContext(ctx).Create(&data).Error; err != nil {
		if isUniqueConstraintError(err) {
			return NotificationRequest{}, fmt.Errorf("%w", errs.ErrRequestDuplicate)
		}
		return NotificationRequest{}, err
	}
	return data, nil
}

func (d *notificationRequestDAO) GetByID(ctx context.Context, id uint64) (NotificationRequest, error) {
	var data NotificationRequest
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&data).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotificationRequest{}, fmt.Errorf("%w: id = %d", errs.ErrRequestNotFound, id)
		}
		return NotificationRequest{}, err
	}
	return data, nil
}

func (d *notificationRequestDAO) MarkSending(ctx context.Context, id uint64) error {
	return d.updateStatus(ctx, id, "SENDING", map[string]any{}, "QUEUED", "FAILED")
}

func (d *notificationRequestDAO) MarkDelivered(ctx context.Context, id uint64, attempts int8) error {
	return d.updateStatus(ctx, id, "DELIVERED", map[string]any{"attempts": attempts}, "SENDING")
}

func (d *notificationRequestDAO) MarkFailed(ctx context.Context, id uint64, attempts int8) error {
	return d.updateStatus(ctx, id, "FAILED", map[string]any{"attempts": attempts}, "SENDING")
}

func (d *notificationRequestDAO) MarkAbandoned(ctx context.Context, id uint64, reason string) error {
	return d.updateStatus(ctx, id, "ABANDONED", map[string]any{"reason": reason}, "QUEUED", "SENDING", "FAILED")
}

func (d *notificationRequestDAO) updateStatus(ctx context.Context, id uint64, to string, extra map[string]any, from ...string) error {
	extra["status"] = to
	extra["utime"] = time.Now().UnixMilli()
	res := d.db.WithContext(ctx).Model(&NotificationRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(extra)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id = %d, to = %s", errs.ErrRequestNotFound, id, to)
	}
	return nil
}

func (d *notificationRequestDAO) FindQueued(ctx context.Context, offset, limit int) ([]NotificationRequest, error) {
	var requests []NotificationRequest
	err := d.db.WithContext(ctx).
		Where("status IN ?", []string{"QUEUED", "FAILED"}).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&requests).Error
	return requests, err
}

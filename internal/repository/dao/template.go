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

// MessageTemplate 消息模版表
type MessageTemplate struct {
	ID           int64  `gorm:"primaryKey;autoIncrement;comment:'模版ID'"`
	Type         string `gorm:"type:VARCHAR(32);NOT NULL;uniqueIndex:idx_type;comment:'通知业务类型'"`
	RequiredVars string `gorm:"type:TEXT;NOT NULL;comment:'必填变量名，JSON数组'"`
	Ctime        int64
	Utime        int64
}

func (MessageTemplate) TableName() string {
	return "message_templates"
}

// MessageTemplateVariant 模版的渠道内容变体表
type MessageTemplateVariant struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;comment:'变体ID'"`
	TemplateID int64  `gorm:"type:BIGINT;NOT NULL;uniqueIndex:idx_template_channel,priority:1;comment:'关联模版ID'"`
	Channel    string `gorm:"type:ENUM('WHATSAPP','EMAIL','SMS');NOT NULL;uniqueIndex:idx_template_channel,priority:2;comment:'渠道'"`
	Content    string `gorm:"type:TEXT;NOT NULL;comment:'内容模版，占位符形如${name}'"`
	Ctime      int64
	Utime      int64
}

func (MessageTemplateVariant) TableName() string {
	return "message_template_variants"
}

type MessageTemplateDAO interface {
	GetByID(ctx context.Context, id int64) (MessageTemplate, []MessageTemplateVariant, error)
	GetByType(ctx context.Context, typ string) (MessageTemplate, []MessageTemplateVariant, error)
	Create(ctx context.Context, tpl MessageTemplate, variants []MessageTemplateVariant) (MessageTemplate, error)
}

type messageTemplateDAO struct {
	db *egorm.Component
}

func NewMessageTemplateDAO(db *egorm.Component) MessageTemplateDAO {
	return &messageTemplateDAO{db: db}
}

func (d *messageTemplateDAO) GetByID(ctx context.Context, id int64) (MessageTemplate, []MessageTemplateVariant, error) {
	var tpl MessageTemplate
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MessageTemplate{}, nil, fmt.Errorf("%w: id = %d", errs.ErrTemplateNotFound, id)
		}
		return MessageTemplate{}, nil, err
	}
	variants, err := d.variants(ctx, tpl.ID)
	return tpl, variants, err
}

func (d *messageTemplateDAO) GetByType(ctx context.Context, typ string) (MessageTemplate, []MessageTemplateVariant, error) {
	var tpl MessageTemplate
	err := d.db.WithContext(ctx).Where("type = ?", typ).First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MessageTemplate{}, nil, fmt.Errorf("%w: type = %s", errs.ErrTemplateNotFound, typ)
		}
		return MessageTemplate{}, nil, err
	}
	variants, err := d.variants(ctx, tpl.ID)
	return tpl, variants, err
}

func (d *messageTemplateDAO) variants(ctx context.Context, templateID int64) ([]MessageTemplateVariant, error) {
	var variants []MessageTemplateVariant
	err := d.db.WithContext(ctx).Where("template_id = ?", templateID).Find(&variants).Error
	return variants, err
}

func (d *messageTemplateDAO) Create(ctx context.Context, tpl MessageTemplate, variants []MessageTemplateVariant) (MessageTemplate, error) {
	now := time.Now().UnixMilli()
	tpl.Ctime, tpl.Utime = now, now
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tpl).Error; err != nil {
			return err
		}
		for i := range variants {
			variants[i].TemplateID = tpl.ID
			variants[i].Ctime, variants[i].Utime = now, now
		}
		return tx.Create(&variants).Error
	})
	return tpl, err
}

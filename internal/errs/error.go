package errs

import (
	"errors"
)

// 定义统一的错误类型
var (
	ErrInvalidParameter = errors.New("参数错误")

	// 行程状态机
	ErrTripNotFound      = errors.New("行程记录不存在")
	ErrTripDuplicate     = errors.New("行程记录主键冲突")
	ErrInvalidTransition = errors.New("当前状态不允许该触发器")
	ErrVersionMismatch   = errors.New("行程版本不匹配")
	ErrCreateTripFailed  = errors.New("创建行程失败")

	// 通知分发
	ErrRequestNotFound        = errors.New("通知请求不存在")
	ErrRequestDuplicate       = errors.New("通知请求主键冲突")
	ErrRequestIDGenerate      = errors.New("通知请求ID生成失败")
	ErrSendNotificationFailed = errors.New("发送通知失败")
	ErrNoAvailableChannel     = errors.New("无可用渠道")
	ErrNoAvailableProvider    = errors.New("无可用供应商")

	// 预算
	ErrBudgetPeriodNotFound  = errors.New("预算周期不存在")
	ErrBudgetPeriodDuplicate = errors.New("预算周期已存在")
	ErrNoBudget              = errors.New("预算额度已经用完")

	// 模版
	ErrTemplateNotFound = errors.New("模版不存在")
	ErrMissingVariable  = errors.New("模版缺少必填变量")
)

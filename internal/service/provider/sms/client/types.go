package client

import (
	"errors"
)

var (
	ErrInvalidParameter = errors.New("参数错误")
	ErrSendFailed       = errors.New("短信发送失败")
)

const (
	// OK 供应商统一的成功码
	OK = "OK"
)

// SendReq 发送请求
// 各家供应商都要求走已报备的模版，这里统一使用单变量的通用通知模版，
// 渲染好的内容整体作为 content 变量传入
type SendReq struct {
	PhoneNumbers  []string
	SignName      string
	TemplateID    string
	TemplateParam map[string]string
}

// SendRespStatus 单个手机号的发送状态
type SendRespStatus struct {
	Code    string
	Message string
}

// SendResp 发送响应
type SendResp struct {
	RequestID    string
	PhoneNumbers map[string]SendRespStatus
}

// Client 短信供应商客户端
//
//go:generate mockgen -source=./types.go -destination=./mocks/client.mock.go -package=clientmocks -typed Client
type Client interface {
	// Name 供应商名字，记日志和指标用
	Name() string
	Send(req SendReq) (SendResp, error)
}

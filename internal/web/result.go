package web

// Result 统一的HTTP响应结构
type Result[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// 业务错误码
const (
	CodeOK                = 0
	CodeInvalidParameter  = 400001
	CodeNotFound          = 404001
	CodeVersionConflict   = 409001
	CodeInvalidTransition = 409002
	CodeInternal          = 500001
)

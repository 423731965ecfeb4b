package middleware

import (
	"net/http"

	"gitee.com/flycash/trip-platform/internal/pkg/ratelimit"
	"gitee.com/flycash/trip-platform/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
)

// NewRateLimit 全局限流中间件。
// 限流器自身出错时按保守策略拒绝请求
func NewRateLimit(limiter ratelimit.Limiter, limitedKey string) gin.HandlerFunc {
	logger := elog.DefaultLogger
	return func(ctx *gin.Context) {
		limited, err := limiter.Limit(ctx.Request.Context(), limitedKey)
		if err != nil {
			logger.Error("限流判定失败", elog.FieldErr(err))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests,
				web.Result[any]{Code: web.CodeInternal, Msg: "系统繁忙"})
			return
		}
		if limited {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests,
				web.Result[any]{Code: web.CodeInternal, Msg: "请求过于频繁"})
			return
		}
		ctx.Next()
	}
}

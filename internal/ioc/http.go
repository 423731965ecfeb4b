package ioc

import (
	"gitee.com/flycash/trip-platform/internal/pkg/ratelimit"
	"gitee.com/flycash/trip-platform/internal/web/middleware"
	reportweb "gitee.com/flycash/trip-platform/internal/web/report"
	tripweb "gitee.com/flycash/trip-platform/internal/web/trip"
	"github.com/gotomicro/ego/server/egin"
)

func InitHTTPServer(
	limiter ratelimit.Limiter,
	tripHandler *tripweb.Handler,
	reportHandler *reportweb.Handler,
) *egin.Component {
	server := egin.Load("server.http").Build()
	server.Use(middleware.NewRateLimit(limiter, "http_api"))
	tripHandler.PublicRoutes(server.Engine)
	reportHandler.PublicRoutes(server.Engine)
	return server
}

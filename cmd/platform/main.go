package main

import (
	"context"

	"gitee.com/flycash/trip-platform/cmd/platform/ioc"
	"github.com/gotomicro/ego"
	"github.com/gotomicro/ego/core/elog"
)

func main() {
	egoApp := ego.New()

	app, err := ioc.InitApp()
	if err != nil {
		elog.Panic("初始化失败", elog.FieldErr(err))
	}

	// 分发引擎、支付事件消费者、提醒调度器都是常驻任务
	if err := app.StartTasks(context.Background()); err != nil {
		elog.Panic("后台任务启动失败", elog.FieldErr(err))
	}
	defer app.Engine.Stop()

	if err := egoApp.
		Serve(app.HTTPServer).
		Cron(app.Crons...).
		Run(); err != nil {
		elog.Panic("startup", elog.Any("err", err))
	}
}

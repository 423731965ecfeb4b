package ioc

import (
	"context"

	"gitee.com/flycash/trip-platform/internal/event/payment"
	"gitee.com/flycash/trip-platform/internal/service/dispatch"
	"gitee.com/flycash/trip-platform/internal/service/scheduler"
	"github.com/gotomicro/ego/server/egin"
	"github.com/gotomicro/ego/task/ecron"
)

type App struct {
	HTTPServer *egin.Component
	Crons      []ecron.Ecron

	Engine            *dispatch.Engine
	ReminderScheduler *scheduler.ReminderScheduler
	PaymentConsumer   *payment.CompletedEventConsumer
}

// StartTasks 启动常驻后台任务，提醒调度器内部带分布式锁，会一直阻塞
func (a *App) StartTasks(ctx context.Context) error {
	if err := a.Engine.Start(ctx); err != nil {
		return err
	}
	a.PaymentConsumer.Start(ctx)
	go a.ReminderScheduler.Start(ctx)
	return nil
}

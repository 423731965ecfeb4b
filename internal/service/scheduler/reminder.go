package scheduler

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/pkg/loopjob"
	"gitee.com/flycash/trip-platform/internal/repository"
	"gitee.com/flycash/trip-platform/internal/service/lifecycle"
	"github.com/gotomicro/ego/core/elog"
	"github.com/meoying/dlock-go"
)

const (
	// 出发前多久触发提醒
	reminderWindow = 48 * time.Hour
	scanInterval   = 30 * time.Second
	scanBatch      = 100
)

// ReminderScheduler 扫描进入提醒窗口的行程并触发 scheduled_reminder_tick。
// 借分布式锁保证同一时刻只有一个实例在扫，
// 行程上的提醒标记保证进程重启后不会重复提醒
type ReminderScheduler struct {
	repo   repository.TripRepository
	svc    lifecycle.Service
	job    *loopjob.InfiniteLoop
	nowFn  func() time.Time
	logger *elog.Component
}

func NewReminderScheduler(dclient dlock.Client, repo repository.TripRepository, svc lifecycle.Service) *ReminderScheduler {
	s := &ReminderScheduler{
		repo:   repo,
		svc:    svc,
		nowFn:  time.Now,
		logger: elog.DefaultLogger,
	}
	s.job = loopjob.NewInfiniteLoop(dclient, s.scan, "trip_reminder_scheduler")
	return s
}

// Start 阻塞运行，直到 ctx 被取消
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.job.Run(ctx)
}

func (s *ReminderScheduler) scan(ctx context.Context) error {
	now := s.nowFn()
	trips, err := s.repo.FindUpcomingForReminder(ctx, now, now.Add(reminderWindow), scanBatch)
	if err != nil {
		return err
	}
	for i := range trips {
		s.remind(ctx, trips[i])
	}
	if len(trips) < scanBatch {
		// 没扫满一批，说明窗口里暂时没有存量，歇一会
		select {
		case <-ctx.Done():
		case <-time.After(scanInterval):
		}
	}
	return nil
}

func (s *ReminderScheduler) remind(ctx context.Context, trip domain.Trip) {
	_, err := s.svc.Apply(ctx, trip.ID, domain.TriggerScheduledReminderTick,
		domain.TriggerPayload{Actor: "scheduler"}, trip.Version)
	if err != nil {
		// 版本冲突说明行程刚好在流转，不是待出行了就没必要提醒，下一轮重扫
		if errors.Is(err, errs.ErrVersionMismatch) || errors.Is(err, errs.ErrInvalidTransition) {
			s.logger.Info("跳过本轮提醒",
				elog.FieldErr(err),
				elog.Int64("tripID", trip.ID))
			return
		}
		s.logger.Error("触发行程提醒失败",
			elog.FieldErr(err),
			elog.Int64("tripID", trip.ID))
		return
	}
	if err := s.repo.MarkReminderSent(ctx, trip.ID); err != nil {
		s.logger.Error("标记提醒已发送失败",
			elog.FieldErr(err),
			elog.Int64("tripID", trip.ID))
	}
}

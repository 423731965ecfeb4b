package budget

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
)

// RolloverConfig 预算滚动配置
type RolloverConfig struct {
	// Ceilings 渠道 -> 月度上限（分）
	Ceilings map[string]int64 `yaml:"ceilings"`
}

// RolloverCron 按自然月滚动预算周期。
// 每次执行为每个计费渠道确保当月和下月的周期存在，
// 周期已存在时静默跳过，多实例同时跑也只会建出一行
type RolloverCron struct {
	repo   repository.BudgetRepository
	cfg    RolloverConfig
	nowFn  func() time.Time
	logger *elog.Component
}

func NewRolloverCron(repo repository.BudgetRepository, cfg RolloverConfig) *RolloverCron {
	return &RolloverCron{
		repo:   repo,
		cfg:    cfg,
		nowFn:  time.Now,
		logger: elog.DefaultLogger,
	}
}

func (c *RolloverCron) Do(ctx context.Context) error {
	now := c.nowFn()
	for channelName, ceiling := range c.cfg.Ceilings {
		channel := domain.Channel(channelName)
		if !channel.IsPaid() {
			continue
		}
		for _, start := range []time.Time{monthStart(now), monthStart(now).AddDate(0, 1, 0)} {
			if err := c.ensurePeriod(ctx, channel, start, ceiling); err != nil {
				c.logger.Error("滚动预算周期失败",
					elog.FieldErr(err),
					elog.String("channel", channelName))
			}
		}
	}
	return nil
}

func (c *RolloverCron) ensurePeriod(ctx context.Context, channel domain.Channel, start time.Time, ceiling int64) error {
	const timeout = 3 * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := c.repo.Create(ctx, domain.BudgetPeriod{
		Channel:     channel,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
		Ceiling:     ceiling,
	})
	if errors.Is(err, errs.ErrBudgetPeriodDuplicate) {
		return nil
	}
	return err
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

package budget

import (
	"context"
	"sync"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/event/alert"
	"gitee.com/flycash/trip-platform/internal/repository"
	"github.com/gotomicro/ego/core/elog"
)

// 用量越过这条线就发一次告警
const alertThreshold = 0.8

// Reservation 一笔已授权、未落账的预算占用
type Reservation struct {
	PeriodID int64
	Channel  domain.Channel
	Amount   int64
}

// Guard 预算守卫，付费渠道发送前必须先授权。
// 两阶段：Authorize 占用额度，发送成功后 Commit，失败则 Release 退回。
// 占额条件写在 SQL 里，spent 永远不会越过 ceiling
//
//go:generate mockgen -source=./guard.go -destination=./mocks/guard.mock.go -package=budgetmocks -typed Guard
type Guard interface {
	// Authorize 占用 amount 的额度，额度不足返回 errs.ErrNoBudget
	Authorize(ctx context.Context, channel domain.Channel, amount int64) (Reservation, error)
	// Commit 落账并检查告警线
	Commit(ctx context.Context, r Reservation) error
	// Release 退回未用掉的占用
	Release(ctx context.Context, r Reservation) error
}

type guard struct {
	repo     repository.BudgetRepository
	producer alert.BudgetAlertProducer
	// 同一渠道的授权串行化，避免并发时重复发告警
	mu     map[domain.Channel]*sync.Mutex
	nowFn  func() time.Time
	logger *elog.Component
}

type GuardOption func(*guard)

// WithNow 注入时钟，测试用
func WithNow(nowFn func() time.Time) GuardOption {
	return func(g *guard) {
		g.nowFn = nowFn
	}
}

func NewGuard(repo repository.BudgetRepository, producer alert.BudgetAlertProducer, opts ...GuardOption) Guard {
	g := &guard{
		repo: repo,
		mu: map[domain.Channel]*sync.Mutex{
			domain.ChannelSMS: {},
		},
		producer: producer,
		nowFn:    time.Now,
		logger:   elog.DefaultLogger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *guard) Authorize(ctx context.Context, channel domain.Channel, amount int64) (Reservation, error) {
	if !channel.IsPaid() || amount <= 0 {
		// 免费渠道不走预算
		return Reservation{Channel: channel}, nil
	}
	mu, ok := g.mu[channel]
	if !ok {
		return Reservation{}, errs.ErrBudgetPeriodNotFound
	}
	mu.Lock()
	defer mu.Unlock()

	period, err := g.repo.GetCurrent(ctx, channel, g.nowFn())
	if err != nil {
		return Reservation{}, err
	}
	if err := g.repo.IncrSpent(ctx, period.ID, amount); err != nil {
		return Reservation{}, err
	}
	return Reservation{PeriodID: period.ID, Channel: channel, Amount: amount}, nil
}

func (g *guard) Commit(ctx context.Context, r Reservation) error {
	if r.PeriodID == 0 {
		return nil
	}
	// 占用在 Authorize 时已经计入 spent，落账只需要检查告警线。
	// 和授权共用渠道锁，并发落账时告警只发一次
	if mu, ok := g.mu[r.Channel]; ok {
		mu.Lock()
		defer mu.Unlock()
	}
	g.checkAlert(ctx, r)
	return nil
}

func (g *guard) Release(ctx context.Context, r Reservation) error {
	if r.PeriodID == 0 {
		return nil
	}
	return g.repo.DecrSpent(ctx, r.PeriodID, r.Amount)
}

func (g *guard) checkAlert(ctx context.Context, r Reservation) {
	period, err := g.repo.GetCurrent(ctx, r.Channel, g.nowFn())
	if err != nil || period.ID != r.PeriodID {
		return
	}
	if period.AlertFired || period.Usage() < alertThreshold {
		return
	}
	// 先抢标记再发事件，并发时只有一个调用会发出去
	if err := g.repo.MarkAlertFired(ctx, period.ID); err != nil {
		g.logger.Warn("标记预算告警失败",
			elog.FieldErr(err),
			elog.Int64("periodID", period.ID))
		return
	}
	err = g.producer.Produce(ctx, alert.BudgetAlertEvent{
		Channel:     r.Channel.String(),
		PeriodStart: period.PeriodStart.UnixMilli(),
		Spent:       period.Spent,
		Ceiling:     period.Ceiling,
		Usage:       period.Usage(),
	})
	if err != nil {
		g.logger.Error("发送预算告警事件失败",
			elog.FieldErr(err),
			elog.String("channel", r.Channel.String()))
	}
}

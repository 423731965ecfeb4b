package dispatch

import (
	"context"
	"errors"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/event/alert"
	"gitee.com/flycash/trip-platform/internal/pkg/retry"
	"gitee.com/flycash/trip-platform/internal/repository"
	"gitee.com/flycash/trip-platform/internal/service/budget"
	"gitee.com/flycash/trip-platform/internal/service/channel"
	"gitee.com/flycash/trip-platform/internal/service/ledger"
	"gitee.com/flycash/trip-platform/internal/service/template"
	"github.com/gotomicro/ego/core/elog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 4
	// 单次渠道尝试的硬超时，超时按瞬时失败处理
	attemptTimeout = 10 * time.Second
	recoverBatch   = 100
)

// Config 分发引擎配置
type Config struct {
	Workers int `yaml:"workers"`
	// SMSCost 短信单条预估费用（分），授权额度按这个数预留
	SMSCost int64        `yaml:"smsCost"`
	Backoff retry.Config `yaml:"backoff"`
}

// Engine 通知分发引擎。
// 多个 worker 从同一个优先级队列取任务，单条请求内渠道尝试严格串行。
// 分发错误从不传回触发方，失败结局只体现在流水和告警里
type Engine struct {
	queue    *TaskQueue
	cascade  *Cascade
	renderer template.Renderer
	guard    budget.Guard
	ledger   ledger.Service
	repo     repository.NotificationRequestRepository
	tripRepo repository.TripRepository
	alerter  alert.DispatchAlertProducer
	backoff  *retry.ExponentialBackoff
	workers  int
	smsCost  int64
	// 注入定时器，测试时可以立即触发
	afterFunc func(d time.Duration, f func()) *time.Timer
	eg        *errgroup.Group
	logger    *elog.Component
}

type EngineOption func(*Engine)

// WithAfterFunc 注入重试定时器，测试用
func WithAfterFunc(fn func(d time.Duration, f func()) *time.Timer) EngineOption {
	return func(e *Engine) {
		e.afterFunc = fn
	}
}

func WithBackoff(b *retry.ExponentialBackoff) EngineOption {
	return func(e *Engine) {
		e.backoff = b
	}
}

func NewEngine(
	cfg Config,
	cascade *Cascade,
	renderer template.Renderer,
	guard budget.Guard,
	ledgerSvc ledger.Service,
	repo repository.NotificationRequestRepository,
	tripRepo repository.TripRepository,
	alerter alert.DispatchAlertProducer,
	opts ...EngineOption,
) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	smsCost := cfg.SMSCost
	if smsCost <= 0 {
		smsCost = channel.DefaultSMSCost
	}
	e := &Engine{
		queue:     NewTaskQueue(),
		cascade:   cascade,
		renderer:  renderer,
		guard:     guard,
		ledger:    ledgerSvc,
		repo:      repo,
		tripRepo:  tripRepo,
		alerter:   alerter,
		backoff:   retry.NewBackoffFromConfig(cfg.Backoff),
		workers:   workers,
		smsCost:   smsCost,
		afterFunc: time.AfterFunc,
		logger:    elog.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start 恢复上次残留的任务并启动 worker
func (e *Engine) Start(ctx context.Context) error {
	if err := e.recover(ctx); err != nil {
		return err
	}
	e.eg = &errgroup.Group{}
	for i := 0; i < e.workers; i++ {
		e.eg.Go(func() error {
			e.work(ctx)
			return nil
		})
	}
	return nil
}

// Stop 关闭队列并等待 worker 退出，队列里未处理的任务留到下次启动恢复
func (e *Engine) Stop() {
	e.queue.Close()
	if e.eg != nil {
		_ = e.eg.Wait()
	}
}

// Enqueue 把一条已落库的请求交给引擎
func (e *Engine) Enqueue(_ context.Context, req domain.NotificationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return e.queue.Enqueue(Task{Req: req})
}

// Submit 落库并入队，给不经过行程状态机的调用方用
func (e *Engine) Submit(ctx context.Context, req domain.NotificationRequest) (domain.NotificationRequest, error) {
	if err := req.Validate(); err != nil {
		return domain.NotificationRequest{}, err
	}
	req.Status = domain.RequestStatusQueued
	created, err := e.repo.Create(ctx, req)
	if err != nil {
		return domain.NotificationRequest{}, err
	}
	return created, e.queue.Enqueue(Task{Req: created})
}

// recover 把库里 QUEUED/FAILED 的请求捞回队列，渠道游标从头开始
func (e *Engine) recover(ctx context.Context) error {
	offset := 0
	for {
		requests, err := e.repo.FindQueued(ctx, offset, recoverBatch)
		if err != nil {
			return err
		}
		for i := range requests {
			if err := e.queue.Enqueue(Task{Req: requests[i]}); err != nil {
				return err
			}
		}
		if len(requests) < recoverBatch {
			return nil
		}
		offset += len(requests)
	}
}

func (e *Engine) work(ctx context.Context) {
	for {
		task, err := e.queue.Dequeue()
		if err != nil {
			return
		}
		e.process(ctx, task)
	}
}

func (e *Engine) process(ctx context.Context, task Task) {
	req := task.Req

	if e.isSuperseded(ctx, req) {
		e.abandon(ctx, req, domain.AbandonReasonSuperseded, false)
		return
	}

	if err := e.repo.MarkSending(ctx, req.ID); err != nil {
		e.logger.Error("标记请求发送中失败",
			elog.FieldErr(err),
			elog.Any("requestID", req.ID))
		return
	}

	// 重试任务沿用首次解析的候选序列，保证重试落在失败的那个渠道上
	candidates := task.candidates
	if candidates == nil {
		candidates = e.cascade.Candidates(ctx, req.Recipient)
	}
	if len(candidates) == 0 {
		e.abandon(ctx, req, domain.AbandonReasonAllChannelsFailed, true)
		return
	}

	for idx := task.ChannelCursor; idx < len(candidates); idx++ {
		adapter := candidates[idx]

		content, err := e.renderer.Render(ctx, req, adapter.Channel())
		if err != nil {
			// 渲染失败换渠道也救不回来，直接放弃
			e.logger.Warn("渲染通知内容失败",
				elog.FieldErr(err),
				elog.Any("requestID", req.ID))
			e.abandon(ctx, req, domain.AbandonReasonRenderError, false)
			return
		}

		done, next := e.attemptChannel(ctx, &req, adapter, content)
		if done {
			return
		}
		if !next {
			// 瞬时失败且还有重试额度，退避后带着候选序列和游标回队列
			e.scheduleRetry(req, candidates, idx)
			return
		}
		// 换下一个渠道，尝试次数重新计
		req.Attempts = 0
	}

	e.abandon(ctx, req, domain.AbandonReasonAllChannelsFailed, true)
}

// attemptChannel 在单个渠道上做一次尝试。
// done 表示请求已有结局；next 表示应立刻切换到下一个候选渠道
func (e *Engine) attemptChannel(ctx context.Context, req *domain.NotificationRequest, adapter channel.Adapter, content string) (done, next bool) {
	ch := adapter.Channel()

	reservation, err := e.guard.Authorize(ctx, ch, e.estimatedCost(ch))
	if err != nil {
		// 预算拒绝是正常的控制流，不是异常
		if !errors.Is(err, errs.ErrNoBudget) && !errors.Is(err, errs.ErrBudgetPeriodNotFound) {
			e.logger.Error("预算授权失败",
				elog.FieldErr(err),
				elog.String("channel", ch.String()))
		}
		e.abandon(ctx, *req, domain.AbandonReasonBudgetExceeded, true)
		return true, false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	resp, sendErr := adapter.Send(attemptCtx, req.Recipient, content)
	cancel()

	req.Attempts++

	if sendErr == nil {
		e.recordAttempt(ctx, req.ID, ch, resp.Cost, resp.Latency, domain.AttemptOutcomeSuccess)
		if err := e.guard.Commit(ctx, reservation); err != nil {
			e.logger.Error("预算落账失败", elog.FieldErr(err))
		}
		if err := e.repo.MarkDelivered(ctx, req.ID, req.Attempts); err != nil {
			e.logger.Error("标记请求已送达失败",
				elog.FieldErr(err),
				elog.Any("requestID", req.ID))
		}
		return true, false
	}

	// 失败的尝试不产生费用，预留的额度退回
	if err := e.guard.Release(ctx, reservation); err != nil {
		e.logger.Error("释放预算额度失败", elog.FieldErr(err))
	}

	if channel.IsPermanent(sendErr) {
		e.recordAttempt(ctx, req.ID, ch, 0, 0, domain.AttemptOutcomePermanentFailure)
		return false, true
	}

	e.recordAttempt(ctx, req.ID, ch, 0, 0, domain.AttemptOutcomeTransientFailure)
	e.logger.Warn("渠道发送瞬时失败",
		elog.FieldErr(sendErr),
		elog.String("channel", ch.String()),
		elog.Any("requestID", req.ID))
	if req.Attempts >= req.MaxAttempts {
		return false, true
	}
	return false, false
}

func (e *Engine) scheduleRetry(req domain.NotificationRequest, candidates []channel.Adapter, cursor int) {
	if err := e.repo.MarkFailed(context.Background(), req.ID, req.Attempts); err != nil {
		e.logger.Error("标记请求待重试失败",
			elog.FieldErr(err),
			elog.Any("requestID", req.ID))
	}
	delay := e.backoff.Next(int(req.Attempts))
	e.afterFunc(delay, func() {
		if err := e.queue.Enqueue(Task{Req: req, candidates: candidates, ChannelCursor: cursor}); err != nil {
			e.logger.Error("重试任务入队失败",
				elog.FieldErr(err),
				elog.Any("requestID", req.ID))
		}
	})
}

// isSuperseded 提醒类通知在出队时行程已经不是待出行，说明内容已过时
func (e *Engine) isSuperseded(ctx context.Context, req domain.NotificationRequest) bool {
	if req.Type != domain.NotificationTypeReminder || req.TripID == 0 {
		return false
	}
	trip, err := e.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		e.logger.Warn("查询行程失败，跳过过时检查",
			elog.FieldErr(err),
			elog.Int64("tripID", req.TripID))
		return false
	}
	return trip.Status != domain.TripStatusUpcoming
}

func (e *Engine) abandon(ctx context.Context, req domain.NotificationRequest, reason domain.AbandonReason, raiseAlert bool) {
	if err := e.repo.MarkAbandoned(ctx, req.ID, reason); err != nil {
		e.logger.Error("标记请求已放弃失败",
			elog.FieldErr(err),
			elog.Any("requestID", req.ID))
	}
	if !raiseAlert {
		return
	}
	// 告警走旁路消息队列，不会再进本级联
	err := e.alerter.Produce(ctx, alert.DispatchAlertEvent{
		RequestID: req.ID,
		TripID:    req.TripID,
		Type:      string(req.Type),
		Reason:    string(reason),
	})
	if err != nil {
		e.logger.Error("发送分发告警失败",
			elog.FieldErr(err),
			elog.Any("requestID", req.ID))
	}
}

func (e *Engine) recordAttempt(ctx context.Context, requestID uint64, ch domain.Channel, cost int64, latency time.Duration, outcome domain.AttemptOutcome) {
	if _, err := e.ledger.RecordAttempt(ctx, requestID, ch, cost, latency, outcome); err != nil {
		e.logger.Error("记录投递流水失败",
			elog.FieldErr(err),
			elog.Any("requestID", requestID))
	}
}

// estimatedCost 授权时的预估费用，只有计费渠道非零
func (e *Engine) estimatedCost(ch domain.Channel) int64 {
	if ch.IsPaid() {
		return e.smsCost
	}
	return 0
}

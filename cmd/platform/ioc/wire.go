//go:build wireinject

package ioc

import (
	"time"

	"gitee.com/flycash/trip-platform/internal/event/alert"
	"gitee.com/flycash/trip-platform/internal/event/payment"
	"gitee.com/flycash/trip-platform/internal/event/settlement"
	"gitee.com/flycash/trip-platform/internal/ioc"
	"gitee.com/flycash/trip-platform/internal/pkg/idempotent"
	"gitee.com/flycash/trip-platform/internal/repository"
	"gitee.com/flycash/trip-platform/internal/repository/dao"
	"gitee.com/flycash/trip-platform/internal/service/budget"
	"gitee.com/flycash/trip-platform/internal/service/dispatch"
	"gitee.com/flycash/trip-platform/internal/service/ledger"
	"gitee.com/flycash/trip-platform/internal/service/lifecycle"
	"gitee.com/flycash/trip-platform/internal/service/scheduler"
	"gitee.com/flycash/trip-platform/internal/service/template"
	reportweb "gitee.com/flycash/trip-platform/internal/web/report"
	tripweb "gitee.com/flycash/trip-platform/internal/web/trip"
	"github.com/google/wire"
	"github.com/gotomicro/ego/core/econf"
	"github.com/redis/go-redis/v9"
	"github.com/sony/sonyflake"
)

var (
	BaseSet = wire.NewSet(
		ioc.InitDB,
		ioc.InitRedisClient,
		ioc.InitDistributedLock,
		ioc.InitIDGenerator,
		ioc.InitGoCache,
		ioc.InitReachabilityCache,
		ioc.InitMQ,
		ioc.InitSmsClients,
		ioc.InitChannelAdapters,
		ioc.InitLimiter,
	)
	tripSvcSet = wire.NewSet(
		newLifecycleService,
		repository.NewTripRepository,
		dao.NewTripDAO,
	)
	dispatchSvcSet = wire.NewSet(
		newDispatchEngine,
		dispatch.NewCascade,
		template.NewRenderer,
		repository.NewNotificationRequestRepository,
		dao.NewNotificationRequestDAO,
		repository.NewTemplateRepository,
		dao.NewMessageTemplateDAO,
		wire.Bind(new(lifecycle.Dispatcher), new(*dispatch.Engine)),
	)
	budgetSvcSet = wire.NewSet(
		newBudgetGuard,
		ioc.InitBudgetRolloverCron,
		repository.NewBudgetRepository,
		dao.NewBudgetPeriodDAO,
	)
	ledgerSvcSet = wire.NewSet(
		newLedgerService,
		repository.NewLedgerRepository,
		dao.NewChannelAttemptDAO,
	)
	eventSet = wire.NewSet(
		alert.NewBudgetAlertProducer,
		alert.NewDispatchAlertProducer,
		settlement.NewProducer,
		wire.Bind(new(settlement.TripSettledEventProducer), new(*settlement.Producer)),
		newIdempotentService,
		payment.NewCompletedEventConsumer,
	)
	webSet = wire.NewSet(
		tripweb.NewHandler,
		reportweb.NewHandler,
	)
)

func newLifecycleService(
	repo repository.TripRepository,
	templateRepo repository.TemplateRepository,
	dispatcher lifecycle.Dispatcher,
	settlementProducer settlement.TripSettledEventProducer,
	idGenerator *sonyflake.Sonyflake,
) lifecycle.Service {
	return lifecycle.NewService(repo, templateRepo, dispatcher, settlementProducer, idGenerator)
}

func newDispatchEngine(
	cascade *dispatch.Cascade,
	renderer template.Renderer,
	guard budget.Guard,
	ledgerSvc ledger.Service,
	repo repository.NotificationRequestRepository,
	tripRepo repository.TripRepository,
	alerter alert.DispatchAlertProducer,
) *dispatch.Engine {
	var cfg dispatch.Config
	if err := econf.UnmarshalKey("dispatch", &cfg); err != nil {
		panic(err)
	}
	return dispatch.NewEngine(cfg, cascade, renderer, guard, ledgerSvc, repo, tripRepo, alerter)
}

func newBudgetGuard(repo repository.BudgetRepository, producer alert.BudgetAlertProducer) budget.Guard {
	return budget.NewGuard(repo, producer)
}

func newLedgerService(repo repository.LedgerRepository) ledger.Service {
	var cfg ledger.Config
	if err := econf.UnmarshalKey("ledger", &cfg); err != nil {
		panic(err)
	}
	return ledger.NewService(repo, cfg)
}

func newIdempotentService(rdb *redis.Client) idempotent.Service {
	const paymentEventTTL = 24 * time.Hour
	return idempotent.NewRedisService(rdb, "payment_events:", paymentEventTTL)
}

func InitApp() (*ioc.App, error) {
	wire.Build(
		// 基础设施
		BaseSet,

		// --- 服务构建 ---

		// 行程生命周期
		tripSvcSet,

		// 通知分发
		dispatchSvcSet,

		// 预算
		budgetSvcSet,

		// 成本流水
		ledgerSvcSet,

		// 事件生产与消费
		eventSet,

		// 提醒调度
		scheduler.NewReminderScheduler,

		// HTTP服务器
		webSet,
		ioc.InitHTTPServer,
		ioc.Crons,
		wire.Struct(new(ioc.App), "*"),
	)

	return new(ioc.App), nil
}

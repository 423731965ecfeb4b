package ledger

import (
	"context"
	"fmt"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository"
	"github.com/gofrs/uuid"
)

// ROIReport 一段时间内的投入产出报表，金额单位分
type ROIReport struct {
	Start           time.Time
	End             time.Time
	TotalCost       int64
	EngagementValue int64
	// Delivered 类型 -> 成功送达的请求数
	Delivered map[domain.NotificationType]int64
}

// Config 报表配置
type Config struct {
	// EngagementValues 通知类型 -> 单次送达折算的业务价值（分）
	EngagementValues map[string]int64 `yaml:"engagementValues"`
}

// Service 投递流水账本。每次渠道尝试记一行，只追加不修改
//
//go:generate mockgen -source=./ledger.go -destination=./mocks/ledger.mock.go -package=ledgermocks -typed Service
type Service interface {
	// RecordAttempt 记录一次渠道尝试，返回生成的流水ID
	RecordAttempt(ctx context.Context, requestID uint64, channel domain.Channel, cost int64, latency time.Duration, outcome domain.AttemptOutcome) (string, error)
	ListByRequestID(ctx context.Context, requestID uint64) ([]domain.ChannelAttempt, error)
	// ROI 汇总 [start, end) 内的成本和折算收益
	ROI(ctx context.Context, start, end time.Time) (ROIReport, error)
}

type service struct {
	repo repository.LedgerRepository
	cfg  Config
}

func NewService(repo repository.LedgerRepository, cfg Config) Service {
	return &service{repo: repo, cfg: cfg}
}

func (s *service) RecordAttempt(ctx context.Context, requestID uint64, channel domain.Channel, cost int64, latency time.Duration, outcome domain.AttemptOutcome) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("生成流水ID失败: %w", err)
	}
	err = s.repo.Append(ctx, domain.ChannelAttempt{
		ID:        id.String(),
		RequestID: requestID,
		Channel:   channel,
		Cost:      cost,
		Latency:   latency,
		Outcome:   outcome,
	})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *service) ListByRequestID(ctx context.Context, requestID uint64) ([]domain.ChannelAttempt, error) {
	return s.repo.ListByRequestID(ctx, requestID)
}

func (s *service) ROI(ctx context.Context, start, end time.Time) (ROIReport, error) {
	totalCost, err := s.repo.TotalCost(ctx, start, end)
	if err != nil {
		return ROIReport{}, err
	}
	delivered, err := s.repo.DeliveredCountByType(ctx, start, end)
	if err != nil {
		return ROIReport{}, err
	}
	var value int64
	for typ, cnt := range delivered {
		value += cnt * s.cfg.EngagementValues[string(typ)]
	}
	return ROIReport{
		Start:           start,
		End:             end,
		TotalCost:       totalCost,
		EngagementValue: value,
		Delivered:       delivered,
	}, nil
}

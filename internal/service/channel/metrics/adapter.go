// Package metrics 为渠道适配器添加指标收集的装饰器
package metrics

import (
	"context"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/service/channel"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter 为渠道适配器添加指标收集的装饰器
type Adapter struct {
	adapter             channel.Adapter
	sendDurationSummary *prometheus.SummaryVec
	sendCounter         *prometheus.CounterVec
	sendCostCounter     *prometheus.CounterVec
}

// NewAdapter 创建一个新的带有指标收集的渠道适配器
func NewAdapter(a channel.Adapter) *Adapter {
	sendDurationSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "channel_send_duration_seconds",
			Help:       "渠道发送通知耗时统计（秒）",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
			MaxAge:     time.Minute * 5,
		},
		[]string{"channel", "status"},
	)

	sendCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_send_total",
			Help: "渠道发送通知总数",
		},
		[]string{"channel", "status"},
	)

	sendCostCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_send_cost_cents_total",
			Help: "渠道发送累计成本（分）",
		},
		[]string{"channel"},
	)

	// 注册指标
	prometheus.MustRegister(sendDurationSummary, sendCounter, sendCostCounter)

	return &Adapter{
		adapter:             a,
		sendDurationSummary: sendDurationSummary,
		sendCounter:         sendCounter,
		sendCostCounter:     sendCostCounter,
	}
}

func (a *Adapter) Channel() domain.Channel {
	return a.adapter.Channel()
}

// Send 发送通知并记录指标
func (a *Adapter) Send(ctx context.Context, recipient domain.Recipient, content string) (domain.SendResponse, error) {
	startTime := time.Now()

	response, err := a.adapter.Send(ctx, recipient, content)

	duration := time.Since(startTime).Seconds()
	status := "success"
	if err != nil {
		status = "failure"
		if channel.IsPermanent(err) {
			status = "permanent_failure"
		}
	}

	name := string(a.adapter.Channel())
	a.sendCounter.WithLabelValues(name, status).Inc()
	a.sendDurationSummary.WithLabelValues(name, status).Observe(duration)
	if err == nil && response.Cost > 0 {
		a.sendCostCounter.WithLabelValues(name).Add(float64(response.Cost))
	}

	return response, err
}

func (a *Adapter) Probe(ctx context.Context, recipient domain.Recipient) (bool, error) {
	return a.adapter.Probe(ctx, recipient)
}

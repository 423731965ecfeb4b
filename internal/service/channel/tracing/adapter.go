package tracing

import (
	"context"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/service/channel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Adapter 为渠道适配器添加链路追踪的装饰器
type Adapter struct {
	adapter channel.Adapter
	tracer  trace.Tracer
}

// NewAdapter 创建一个新的带有链路追踪的渠道适配器
func NewAdapter(a channel.Adapter) *Adapter {
	return &Adapter{
		adapter: a,
		tracer:  otel.Tracer("trip-platform/channel"),
	}
}

func (a *Adapter) Channel() domain.Channel {
	return a.adapter.Channel()
}

func (a *Adapter) Send(ctx context.Context, recipient domain.Recipient, content string) (domain.SendResponse, error) {
	ctx, span := a.tracer.Start(ctx, "Channel.Send",
		trace.WithAttributes(
			attribute.String("channel", string(a.adapter.Channel())),
			attribute.Int64("recipient.customerId", recipient.CustomerID),
		))
	defer span.End()

	response, err := a.adapter.Send(ctx, recipient, content)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int64("send.cost", response.Cost),
			attribute.Int64("send.latencyMs", response.Latency.Milliseconds()),
		)
	}

	return response, err
}

func (a *Adapter) Probe(ctx context.Context, recipient domain.Recipient) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "Channel.Probe",
		trace.WithAttributes(
			attribute.String("channel", string(a.adapter.Channel())),
		))
	defer span.End()

	reachable, err := a.adapter.Probe(ctx, recipient)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("probe.reachable", reachable))
	}
	return reachable, err
}

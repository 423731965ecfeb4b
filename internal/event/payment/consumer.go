package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/pkg/idempotent"
	"gitee.com/flycash/trip-platform/internal/service/lifecycle"
	"github.com/ecodeclub/mq-api"
	"github.com/gotomicro/ego/core/elog"
)

// 版本冲突时的重试上限，支付回调和其他触发器撞车的窗口很小
const maxApplyRetries = 3

// CompletedEventConsumer 消费支付完成事件，驱动行程从待支付到待出行。
// 支付回调会重发，用支付单号做幂等
type CompletedEventConsumer struct {
	svc        lifecycle.Service
	consumer   mq.Consumer
	idempotent idempotent.Service
	logger     *elog.Component
}

func NewCompletedEventConsumer(svc lifecycle.Service, q mq.MQ, idem idempotent.Service) (*CompletedEventConsumer, error) {
	const groupID = "trip_lifecycle"
	consumer, err := q.Consumer(eventName, groupID)
	if err != nil {
		return nil, err
	}
	return &CompletedEventConsumer{
		svc:        svc,
		consumer:   consumer,
		idempotent: idem,
		logger:     elog.DefaultLogger,
	}, nil
}

func (c *CompletedEventConsumer) Start(ctx context.Context) {
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if er := c.Consume(ctx); er != nil {
				c.logger.Error("消费支付完成事件失败", elog.FieldErr(er))
			}
		}
	}()
}

func (c *CompletedEventConsumer) Consume(ctx context.Context) error {
	msgCh, err := c.consumer.ConsumeChan(ctx)
	if err != nil {
		return fmt.Errorf("获取消息失败: %w", err)
	}
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			var evt CompletedEvent
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				c.logger.Warn("解析消息失败",
					elog.FieldErr(err),
					elog.Any("msg", msg.Value))
				continue
			}
			if err := c.handleEvent(ctx, evt); err != nil {
				c.logger.Warn("处理支付完成事件失败",
					elog.FieldErr(err),
					elog.Any("evt", evt))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *CompletedEventConsumer) handleEvent(ctx context.Context, evt CompletedEvent) error {
	seen, err := c.idempotent.SeenBefore(ctx, evt.PaymentID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	payload := domain.TriggerPayload{Actor: "payment"}
	for i := 0; i < maxApplyRetries; i++ {
		trip, err := c.svc.GetTrip(ctx, evt.TripID)
		if err != nil {
			return err
		}
		_, err = c.svc.Apply(ctx, evt.TripID, domain.TriggerPaymentCompleted, payload, trip.Version)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errs.ErrVersionMismatch):
			continue
		case errors.Is(err, errs.ErrInvalidTransition):
			// 已经不是待支付了，大概率是重复回调，不算失败
			c.logger.Info("行程状态已变，忽略支付回调",
				elog.Int64("tripID", evt.TripID),
				elog.String("paymentID", evt.PaymentID))
			return nil
		default:
			return err
		}
	}
	return fmt.Errorf("%w: tripID = %d", errs.ErrVersionMismatch, evt.TripID)
}

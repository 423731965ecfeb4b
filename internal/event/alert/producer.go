package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ecodeclub/mq-api"
)

//go:generate mockgen -source=./producer.go -package=evtmocks -destination=../mocks/alert_producer.mock.go -typed BudgetAlertProducer,DispatchAlertProducer

type BudgetAlertProducer interface {
	Produce(ctx context.Context, evt BudgetAlertEvent) error
}

type DispatchAlertProducer interface {
	Produce(ctx context.Context, evt DispatchAlertEvent) error
}

type budgetAlertProducer struct {
	producer mq.Producer
}

func NewBudgetAlertProducer(q mq.MQ) (BudgetAlertProducer, error) {
	producer, err := q.Producer(BudgetAlertTopic)
	if err != nil {
		return nil, err
	}
	return &budgetAlertProducer{producer: producer}, nil
}

func (p *budgetAlertProducer) Produce(ctx context.Context, evt BudgetAlertEvent) error {
	evtStr, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化预算告警事件失败: %w", err)
	}
	_, err = p.producer.Produce(ctx, &mq.Message{
		Topic: BudgetAlertTopic,
		Value: evtStr,
	})
	return err
}

type dispatchAlertProducer struct {
	producer mq.Producer
}

func NewDispatchAlertProducer(q mq.MQ) (DispatchAlertProducer, error) {
	producer, err := q.Producer(DispatchAlertTopic)
	if err != nil {
		return nil, err
	}
	return &dispatchAlertProducer{producer: producer}, nil
}

func (p *dispatchAlertProducer) Produce(ctx context.Context, evt DispatchAlertEvent) error {
	evtStr, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化分发告警事件失败: %w", err)
	}
	_, err = p.producer.Produce(ctx, &mq.Message{
		Topic: DispatchAlertTopic,
		Value: evtStr,
	})
	return err
}

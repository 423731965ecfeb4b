package settlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ecodeclub/mq-api"
)

//go:generate mockgen -source=./producer.go -package=evtmocks -destination=../mocks/settlement_producer.mock.go -typed TripSettledEventProducer
type TripSettledEventProducer interface {
	Produce(ctx context.Context, evt TripSettledEvent) error
}

type Producer struct {
	producer mq.Producer
}

func NewProducer(q mq.MQ) (*Producer, error) {
	producer, err := q.Producer(eventName)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: producer}, nil
}

func (p *Producer) Produce(ctx context.Context, evt TripSettledEvent) error {
	evtStr, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化结算事件失败: %w", err)
	}
	_, err = p.producer.Produce(ctx, &mq.Message{
		Topic: eventName,
		Value: evtStr,
	})
	return err
}

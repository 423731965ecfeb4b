package ioc

import (
	"context"
	"sync"

	"gitee.com/flycash/trip-platform/internal/event/alert"
	"github.com/ecodeclub/mq-api"
	"github.com/ecodeclub/mq-api/memory"
)

var (
	q          mq.MQ
	mqInitOnce sync.Once
)

// InitMQ 目前用内存实现，topic在启动时建好
// TODO: 接入真实Kafka集群后改为从配置读取broker地址
func InitMQ() mq.MQ {
	mqInitOnce.Do(func() {
		topics := []string{
			"payment_completed_events",
			"trip_settlement_events",
			alert.BudgetAlertTopic,
			alert.DispatchAlertTopic,
		}
		qq := memory.NewMQ()
		for _, t := range topics {
			if err := qq.CreateTopic(context.Background(), t, 1); err != nil {
				panic(err)
			}
		}
		q = qq
	})
	return q
}


package ioc

import (
	"gitee.com/flycash/trip-platform/internal/repository"
	"gitee.com/flycash/trip-platform/internal/service/budget"
	"github.com/gotomicro/ego/core/econf"
	"github.com/gotomicro/ego/task/ecron"
)

func InitBudgetRolloverCron(repo repository.BudgetRepository) *budget.RolloverCron {
	var cfg budget.RolloverConfig
	err := econf.UnmarshalKey("budget.rollover", &cfg)
	if err != nil {
		panic(err)
	}
	return budget.NewRolloverCron(repo, cfg)
}

func Crons(rollover *budget.RolloverCron) []ecron.Ecron {
	c1 := ecron.Load("cron").Build(ecron.WithJob(rollover.Do))
	return []ecron.Ecron{c1}
}

package repository

import (
	"context"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/repository/dao"
)

type BudgetRepository interface {
	Create(ctx context.Context, period domain.BudgetPeriod) (domain.BudgetPeriod, error)
	GetCurrent(ctx context.Context, channel domain.Channel, now time.Time) (domain.BudgetPeriod, error)

	IncrSpent(ctx context.Context, id int64, amount int64) error
	DecrSpent(ctx context.Context, id int64, amount int64) error
	MarkAlertFired(ctx context.Context, id int64) error
}

type budgetRepository struct {
	dao dao.BudgetPeriodDAO
}

func NewBudgetRepository(d dao.BudgetPeriodDAO) BudgetRepository {
	return &budgetRepository{dao: d}
}

func (repo *budgetRepository) Create(ctx context.Context, period domain.BudgetPeriod) (domain.BudgetPeriod, error) {
	created, err := repo.dao.Create(ctx, dao.BudgetPeriod{
		Channel:     period.Channel.String(),
		PeriodStart: period.PeriodStart.UnixMilli(),
		PeriodEnd:   period.PeriodEnd.UnixMilli(),
		Ceiling:     period.Ceiling,
		Spent:       period.Spent,
	})
	if err != nil {
		return domain.BudgetPeriod{}, err
	}
	return toBudgetDomain(created), nil
}

func (repo *budgetRepository) GetCurrent(ctx context.Context, channel domain.Channel, now time.Time) (domain.BudgetPeriod, error) {
	entity, err := repo.dao.GetCurrent(ctx, channel.String(), now.UnixMilli())
	if err != nil {
		return domain.BudgetPeriod{}, err
	}
	return toBudgetDomain(entity), nil
}

func (repo *budgetRepository) IncrSpent(ctx context.Context, id int64, amount int64) error {
	return repo.dao.IncrSpent(ctx, id, amount)
}

func (repo *budgetRepository) DecrSpent(ctx context.Context, id int64, amount int64) error {
	return repo.dao.DecrSpent(ctx, id, amount)
}

func (repo *budgetRepository) MarkAlertFired(ctx context.Context, id int64) error {
	return repo.dao.MarkAlertFired(ctx, id)
}

func toBudgetDomain(entity dao.BudgetPeriod) domain.BudgetPeriod {
	return domain.BudgetPeriod{
		ID:          entity.ID,
		Channel:     domain.Channel(entity.Channel),
		PeriodStart: time.UnixMilli(entity.PeriodStart),
		PeriodEnd:   time.UnixMilli(entity.PeriodEnd),
		Ceiling:     entity.Ceiling,
		Spent:       entity.Spent,
		AlertFired:  entity.AlertFired,
		Ctime:       time.UnixMilli(entity.Ctime),
		Utime:       time.UnixMilli(entity.Utime),
	}
}

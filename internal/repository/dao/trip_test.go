package dao

import (
	"testing"

	"gitee.com/flycash/trip-platform/internal/errs"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock
}

func testTransitionInput() (Trip, TripStateTransition, []NotificationRequest) {
	trip := Trip{ID: 1, Status: "UPCOMING", StartTime: 1000, EndTime: 2000}
	transition := TripStateTransition{
		TripID:     1,
		FromStatus: "PENDING",
		ToStatus:   "UPCOMING",
		Trigger:    "payment_completed",
		Actor:      "payment",
		RequestIDs: "[2001]",
	}
	requests := []NotificationRequest{{
		ID:     2001,
		TripID: 1,
		BizID:  7,
	}}
	return trip, transition, requests
}

func TestTripDAOTransitionCommitsOnVersionMatch(t *testing.T) {
	t.Parallel()

	gormDB, mock := newMockDB(t)
	d := NewTripDAO(gormDB)
	trip, transition, requests := testTransitionInput()

	mock.ExpectBegin()
	// 版本号匹配，CAS更新命中一行
	mock.ExpectExec("UPDATE `trips`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `trip_state_transitions`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec("INSERT INTO `notification_requests`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.Transition(t.Context(), trip, 3, transition, requests)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTripDAOTransitionVersionMismatchRollsBack(t *testing.T) {
	t.Parallel()

	gormDB, mock := newMockDB(t)
	d := NewTripDAO(gormDB)
	trip, transition, requests := testTransitionInput()

	mock.ExpectBegin()
	// 并发流转已经把版本号推走，条件更新零行命中
	mock.ExpectExec("UPDATE `trips`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	// 审计和通知请求跟着整个事务一起回滚
	mock.ExpectRollback()

	err := d.Transition(t.Context(), trip, 3, transition, requests)
	assert.ErrorIs(t, err, errs.ErrVersionMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTripDAOTransitionMissingTrip(t *testing.T) {
	t.Parallel()

	gormDB, mock := newMockDB(t)
	d := NewTripDAO(gormDB)
	trip, transition, requests := testTransitionInput()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `trips`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectRollback()

	err := d.Transition(t.Context(), trip, 3, transition, requests)
	assert.ErrorIs(t, err, errs.ErrTripNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"context"
	"errors"
	"testing"

	"waxworks/internal/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockedTransactionService(t *testing.T) (*TransactionService, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	require.NoError(t, err)

	return NewTransactionService(database.DB{SQL: gormDB}), mock
}

func TestTransactionExecute_CommitsOnSuccess(t *testing.T) {
	service, mock := newMockedTransactionService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	var gotTx *gorm.DB
	err := service.Execute(context.Background(), func(_ context.Context, tx *gorm.DB) error {
		gotTx = tx
		return nil
	})

	require.NoError(t, err)
	assert.NotNil(t, gotTx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionExecute_RollsBackOnError(t *testing.T) {
	service, mock := newMockedTransactionService(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("upsert failed")
	err := service.Execute(context.Background(), func(context.Context, *gorm.DB) error {
		return wantErr
	})

	// The callback's error comes back unwrapped so callers can match on it.
	require.ErrorIs(t, err, wantErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionExecute_RollsBackOnPanic(t *testing.T) {
	service, mock := newMockedTransactionService(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := service.Execute(context.Background(), func(context.Context, *gorm.DB) error {
		panic("short write")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic during transaction")
	assert.Contains(t, err.Error(), "short write")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionExecute_BeginFailure(t *testing.T) {
	service, mock := newMockedTransactionService(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := service.Execute(context.Background(), func(context.Context, *gorm.DB) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called, "callback must not run without an open transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

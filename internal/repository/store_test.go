package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	store := NewStore(sqlx.NewDb(db, "sqlmock"), time.Second)
	return store, mock, func() {
		db.Close()
	}
}

func TestStoreReturnsBusyWhenGuardHeld(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()
	store.lockTimeout = 20 * time.Millisecond

	require.NoError(t, store.guard.Acquire(context.Background(), 1))
	defer store.guard.Release(1)

	called := false
	err := store.exec(context.Background(), func(q sqlx.ExtContext) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreBusy))
	assert.False(t, called)
}

func TestStoreReturnsCallerCancellation(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()

	require.NoError(t, store.guard.Acquire(context.Background(), 1))
	defer store.guard.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.exec(ctx, func(q sqlx.ExtContext) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrStoreBusy))
}

func TestStoreReturnsCallerDeadline(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()
	store.lockTimeout = time.Minute

	require.NoError(t, store.guard.Acquire(context.Background(), 1))
	defer store.guard.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := store.exec(ctx, func(q sqlx.ExtContext) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrStoreBusy))
}

func TestStoreReportsWait(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()

	var observed []time.Duration
	store.ObserveWait(func(d time.Duration) { observed = append(observed, d) })

	require.NoError(t, store.exec(context.Background(), func(q sqlx.ExtContext) error { return nil }))
	assert.Len(t, observed, 1)
}

func TestStoreTxRollsBackOnError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.tx(context.Background(), func(tx *sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())

	// guard released after rollback
	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, store.tx(context.Background(), func(tx *sqlx.Tx) error { return nil }))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyPostgresConstraintErrors(t *testing.T) {
	assert.ErrorIs(t, classify(&pq.Error{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, classify(&pq.Error{Code: "23503"}), ErrReferenced)

	other := &pq.Error{Code: "42601"}
	assert.Equal(t, error(other), classify(other))
	assert.NoError(t, classify(nil))
}

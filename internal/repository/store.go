package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/sync/semaphore"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrStoreBusy is returned when the exclusive guard could not be acquired in time.
	ErrStoreBusy = errors.New("store busy")
	// ErrDuplicate is returned when an insert or update violates a unique key.
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenced is returned when a write breaks a foreign key.
	ErrReferenced = errors.New("foreign key violation")
)

// Store serialises every statement against the database through a single
// exclusive guard. Repositories share one Store.
type Store struct {
	db          *sqlx.DB
	guard       *semaphore.Weighted
	lockTimeout time.Duration
	onWait      func(time.Duration)
}

// NewStore wraps db. A zero lockTimeout waits until ctx is done.
func NewStore(db *sqlx.DB, lockTimeout time.Duration) *Store {
	return &Store{
		db:          db,
		guard:       semaphore.NewWeighted(1),
		lockTimeout: lockTimeout,
	}
}

// ObserveWait registers a callback receiving the time spent waiting for the guard.
func (s *Store) ObserveWait(fn func(time.Duration)) {
	s.onWait = fn
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks the connection under the guard.
func (s *Store) Ping(ctx context.Context) error {
	return s.exec(ctx, func(q sqlx.ExtContext) error {
		var one int
		return sqlx.GetContext(ctx, q, &one, "SELECT 1")
	})
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	waitCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.guard.Acquire(waitCtx, 1); err != nil {
		// the caller gave up; only our own deadline means busy
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreBusy, err)
	}
	if s.onWait != nil {
		s.onWait(time.Since(start))
	}
	return func() { s.guard.Release(1) }, nil
}

// exec runs fn holding the guard.
func (s *Store) exec(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(s.db)
}

// tx runs fn inside a transaction holding the guard. Any error from fn rolls back.
func (s *Store) tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func get(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func selectAll(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

func execAffecting(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, classify(err)
	}
	return result.RowsAffected()
}

func namedExec(ctx context.Context, q sqlx.ExtContext, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, q, query, arg)
	return classify(err)
}

// requireAffected turns a zero-row write into sql.ErrNoRows.
func requireAffected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// classify tags constraint violations from either driver with a sentinel.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case "23503":
			return fmt.Errorf("%w: %v", ErrReferenced, err)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrReferenced, err)
		}
	}
	return err
}

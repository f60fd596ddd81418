package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor and ports.HealthChecker over the
// pool. Every scope it opens bounds row-lock waits with a transaction-local
// lock_timeout.
type Transactor struct {
	pool        Pool
	lockTimeout time.Duration
}

// NewTransactor creates a new Transactor wrapping the connection pool.
// A zero lockTimeout leaves the server default in place.
func NewTransactor(pool Pool, lockTimeout time.Duration) *Transactor {
	return &Transactor{pool: pool, lockTimeout: lockTimeout}
}

// Begin starts a new database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, translate("begin transaction", err, nil)
	}

	if t.lockTimeout > 0 {
		_, err = tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", lockTimeoutSetting(t.lockTimeout))
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, translate("set lock timeout", err, nil)
		}
	}

	return tx, nil
}

// Ping checks that the pool can reach PostgreSQL.
func (t *Transactor) Ping(ctx context.Context) error {
	if err := t.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Name returns the dependency name.
func (t *Transactor) Name() string {
	return "postgres"
}

func lockTimeoutSetting(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("%dms", ms)
}

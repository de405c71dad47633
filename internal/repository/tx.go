package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	util "github.com/spec-kit/quotation-service/pkg/util"
)

// Querier is the subset of pgx operations repositories need; both a pool and
// an open transaction satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager runs a function inside one atomic unit of work. The open
// transaction travels in the context, so repositories called from fn
// automatically join it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// NewTxManager builds a pgx-backed transaction manager. lockTimeoutMilli
// bounds row-lock waits inside each transaction; exceeding it surfaces as
// LockTimeout via the 55P03 mapping.
func NewTxManager(pool *pgxpool.Pool, lockTimeoutMilli int) TxManager {
	return &pgTxManager{pool: pool, lockTimeoutMilli: lockTimeoutMilli}
}

type pgTxManager struct {
	pool             *pgxpool.Pool
	lockTimeoutMilli int
}

func (m *pgTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		// no-op when already committed
		_ = tx.Rollback(ctx)
	}()

	if m.lockTimeoutMilli > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeoutMilli)); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return util.MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querierFrom returns the transaction carried in ctx, falling back to pool.
func querierFrom(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

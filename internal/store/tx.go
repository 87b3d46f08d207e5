package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BeginRepeatableRead opens a transaction at REPEATABLE READ isolation.
// WithTx uses it; single statements issued directly on the pool run at the
// server's default isolation level.
func BeginRepeatableRead(ctx context.Context, pool *pgxpool.Pool) (pgx.Tx, error) {
	return pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
}

// WithTx begins a REPEATABLE READ transaction, runs fn, and commits on
// success or rolls back on error/panic. A rollback attempted after a
// successful commit is a harmless no-op by pgx's own contract.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := BeginRepeatableRead(ctx, pool)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

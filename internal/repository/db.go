package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes inspected by the repositories.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
	pgQueryCanceled    = "57014"
	pgDeadlock         = "40P01"
	pgSerialization    = "40001"
)

// TxOptions bounds waits inside a transaction.
type TxOptions struct {
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

// DefaultTxOptions returns sensible default transaction limits.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		LockTimeout:      5 * time.Second,
		StatementTimeout: 10 * time.Second,
	}
}

// beginTx starts a read-committed transaction and applies the local lock
// and statement timeouts so no row lock is waited on indefinitely.
func beginTx(ctx context.Context, pool *pgxpool.Pool, opts TxOptions) (pgx.Tx, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	settings := []string{
		fmt.Sprintf("SET LOCAL lock_timeout = %d", opts.LockTimeout.Milliseconds()),
		fmt.Sprintf("SET LOCAL statement_timeout = %d", opts.StatementTimeout.Milliseconds()),
	}
	for _, stmt := range settings {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to configure transaction: %w", err)
		}
	}

	return tx, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

// IsContention reports whether err came from a lock timeout, statement
// timeout, deadlock or serialization conflict.
func IsContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgLockNotAvailable, pgQueryCanceled, pgDeadlock, pgSerialization:
		return true
	}
	return false
}

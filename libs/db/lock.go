package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// AdvisoryXactLock takes a transaction-scoped advisory lock keyed by name.
// The lock is released on commit or rollback.
func AdvisoryXactLock(ctx context.Context, tx pgx.Tx, namespace, name string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, namespace+":"+name)
	return err
}

// Package postgres holds the pgx plumbing shared by every Postgres-backed store:
// pool construction, the transaction runner, error mapping and migrations.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	txcontext "fitgap/pkg/platform/tx"
)

// Querier is implemented by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFromCtx returns the transaction in ctx if present, otherwise fallback.
func QuerierFromCtx(ctx context.Context, fallback Querier) Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return fallback
}

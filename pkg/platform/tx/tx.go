// Package tx carries transaction state in a context so stores can join the
// caller's unit of work without changing their signatures.
//
// Two flavours exist: a pgx transaction for Postgres-backed stores and an undo
// Journal for in-memory stores. Both expose post-commit hooks.
package tx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type (
	pgxKey     struct{}
	journalKey struct{}
	hooksKey   struct{}
)

// Runner executes fn as a single atomic unit. Implementations must roll back
// every mutation made through ctx-aware stores when fn returns an error.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WithTx stores a pgx transaction in context for downstream store usage.
func WithTx(ctx context.Context, t pgx.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, pgxKey{}, t)
}

// From extracts a pgx transaction from context if present.
func From(ctx context.Context) (pgx.Tx, bool) {
	t, ok := ctx.Value(pgxKey{}).(pgx.Tx)
	return t, ok
}

// Hooks collects callbacks that run only after a successful commit.
type Hooks struct {
	afterCommit []func(ctx context.Context)
}

// WithHooks attaches a fresh hook set to ctx.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit registers fn to run once the surrounding transaction commits.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok {
		h.afterCommit = append(h.afterCommit, fn)
		return
	}
	fn(ctx)
}

// Run invokes registered hooks in registration order.
func (h *Hooks) Run(ctx context.Context) {
	for _, fn := range h.afterCommit {
		fn(ctx)
	}
}

package tx

import (
	"context"
	"sync"
)

// Journal records undo steps for in-memory stores participating in a
// MemoryRunner transaction.
type Journal struct {
	undo []func()
}

// OnRollback registers fn to restore state if the transaction fails.
func (j *Journal) OnRollback(fn func()) {
	j.undo = append(j.undo, fn)
}

func (j *Journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// JournalFrom extracts the undo journal from ctx if present.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok
}

// RecordUndo registers fn on the journal in ctx. It is a no-op outside a
// transaction.
func RecordUndo(ctx context.Context, fn func()) {
	if j, ok := JournalFrom(ctx); ok {
		j.OnRollback(fn)
	}
}

// MemoryRunner serializes in-memory transactions behind a single mutex, which
// gives the same observable guarantee as a row lock: only one caller can read
// and consume a given pending state.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

// RunInTx runs fn under the runner lock. A failing or panicking fn has its
// journaled mutations undone and the lock released; panics are re-raised.
// Hooks run after the lock is released.
func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hooks, err := r.run(ctx, fn)
	if err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

func (r *MemoryRunner) run(ctx context.Context, fn func(ctx context.Context) error) (hooks *Hooks, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j := &Journal{}
	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
	}()

	txCtx := context.WithValue(ctx, journalKey{}, j)
	txCtx, hooks = WithHooks(txCtx)
	if err := fn(txCtx); err != nil {
		j.rollback()
		return nil, err
	}
	return hooks, nil
}

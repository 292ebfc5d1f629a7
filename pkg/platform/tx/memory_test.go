package tx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls back journaled mutations in reverse order on error", func(t *testing.T) {
		runner := NewMemoryRunner()
		state := []string{"initial"}
		errBoom := errors.New("boom")

		err := runner.RunInTx(ctx, func(ctx context.Context) error {
			state = append(state, "a")
			RecordUndo(ctx, func() { state = state[:len(state)-1] })
			state = append(state, "b")
			RecordUndo(ctx, func() { state = state[:len(state)-1] })
			return errBoom
		})

		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, []string{"initial"}, state)
	})

	t.Run("panic rolls back and releases the runner", func(t *testing.T) {
		runner := NewMemoryRunner()
		state := []string{"initial"}
		var ran bool

		assert.PanicsWithValue(t, "store exploded", func() {
			_ = runner.RunInTx(ctx, func(ctx context.Context) error {
				state = append(state, "partial")
				RecordUndo(ctx, func() { state = state[:len(state)-1] })
				AfterCommit(ctx, func(context.Context) { ran = true })
				panic("store exploded")
			})
		})
		assert.Equal(t, []string{"initial"}, state)
		assert.False(t, ran)

		done := make(chan error, 1)
		go func() {
			done <- runner.RunInTx(ctx, func(context.Context) error { return nil })
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("runner still locked after a panicking transaction")
		}
	})

	t.Run("after-commit hooks run only on success", func(t *testing.T) {
		runner := NewMemoryRunner()
		var ran []string

		require.NoError(t, runner.RunInTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { ran = append(ran, "committed") })
			return nil
		}))
		_ = runner.RunInTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { ran = append(ran, "rolled back") })
			return errors.New("fail")
		})

		assert.Equal(t, []string{"committed"}, ran)
	})

	t.Run("after-commit outside a transaction runs immediately", func(t *testing.T) {
		called := false
		AfterCommit(ctx, func(context.Context) { called = true })
		assert.True(t, called)
	})

	t.Run("refuses cancelled contexts", func(t *testing.T) {
		runner := NewMemoryRunner()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := runner.RunInTx(cctx, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

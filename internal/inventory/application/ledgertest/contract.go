// Package ledgertest holds the behaviour every Ledger implementation must
// show, so each backend runs the same checks.
package ledgertest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmehra2102/myshop/internal/inventory/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Run(t *testing.T, newLedger func(t *testing.T) application.Ledger) {
	t.Run("reserve decrements", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t)
		require.NoError(t, l.SetStock(ctx, "p-1", 3))

		remaining, ok, err := l.TryReserve(ctx, "p-1", 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, remaining)

		stock, known, err := l.GetStock(ctx, "p-1")
		require.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, 2, stock)
	})

	t.Run("empty stock is not touched", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t)
		require.NoError(t, l.SetStock(ctx, "p-1", 0))

		_, ok, err := l.TryReserve(ctx, "p-1", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		stock, _, _ := l.GetStock(ctx, "p-1")
		assert.Equal(t, 0, stock)
	})

	t.Run("quantity larger than stock", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t)
		require.NoError(t, l.SetStock(ctx, "p-1", 2))

		_, ok, err := l.TryReserve(ctx, "p-1", 3)
		require.NoError(t, err)
		assert.False(t, ok)

		remaining, ok, err := l.TryReserve(ctx, "p-1", 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, remaining)
	})

	t.Run("unknown product", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t)

		_, ok, err := l.TryReserve(ctx, "nope", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		_, known, err := l.GetStock(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, known)
	})

	t.Run("release restores", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t)
		require.NoError(t, l.SetStock(ctx, "p-1", 1))

		_, ok, err := l.TryReserve(ctx, "p-1", 1)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, l.Release(ctx, "p-1", 1))

		stock, _, _ := l.GetStock(ctx, "p-1")
		assert.Equal(t, 1, stock)
	})

	t.Run("no oversell under contention", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t)
		const stock, attempts = 139, 1000
		require.NoError(t, l.SetStock(ctx, "p-1", stock))
		require.NoError(t, l.SetStock(ctx, "p-2", attempts))

		var succeeded, failed, negative atomic.Int32
		var wg sync.WaitGroup
		stop := make(chan struct{})

		// a reader that must never see a negative counter
		var readers sync.WaitGroup
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if s, _, err := l.GetStock(ctx, "p-1"); err == nil && s < 0 {
					negative.Add(1)
				}
			}
		}()

		for i := 0; i < attempts; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				remaining, ok, err := l.TryReserve(ctx, "p-1", 1)
				switch {
				case err != nil:
					t.Errorf("reserve: %v", err)
				case ok:
					if remaining < 0 {
						negative.Add(1)
					}
					succeeded.Add(1)
				default:
					failed.Add(1)
				}
			}()
			// an unrelated product reserved at the same time
			go func() {
				defer wg.Done()
				_, _, _ = l.TryReserve(ctx, "p-2", 1)
			}()
		}
		wg.Wait()
		close(stop)
		readers.Wait()

		assert.Equal(t, int32(stock), succeeded.Load())
		assert.Equal(t, int32(attempts-stock), failed.Load())
		assert.Zero(t, negative.Load())

		final, _, err := l.GetStock(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, stock-int(succeeded.Load()), final)

		other, _, _ := l.GetStock(ctx, "p-2")
		assert.Equal(t, 0, other)
	})
}

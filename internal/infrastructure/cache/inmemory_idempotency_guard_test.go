package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

func TestInMemoryIdempotencyGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("first acquire wins", func(t *testing.T) {
		g := NewInMemoryIdempotencyGuard()
		acq, err := g.Acquire(ctx, "invoice:O1")
		require.NoError(t, err)
		assert.True(t, acq.Acquired)

		status, ok := g.Status("invoice:O1")
		require.True(t, ok)
		assert.Equal(t, shared.IdempotencyStatusProcessing, status)
	})

	t.Run("processing and completed keys are not reacquired", func(t *testing.T) {
		g := NewInMemoryIdempotencyGuard()
		_, err := g.Acquire(ctx, "k")
		require.NoError(t, err)

		acq, err := g.Acquire(ctx, "k")
		require.NoError(t, err)
		assert.False(t, acq.Acquired)
		assert.Equal(t, shared.IdempotencyStatusProcessing, acq.Status)

		require.NoError(t, g.Mark(ctx, "k", shared.IdempotencyStatusCompleted, nil))
		acq, err = g.Acquire(ctx, "k")
		require.NoError(t, err)
		assert.False(t, acq.Acquired)
		assert.Equal(t, shared.IdempotencyStatusCompleted, acq.Status)
	})

	t.Run("failed keys are reacquired", func(t *testing.T) {
		g := NewInMemoryIdempotencyGuard()
		_, err := g.Acquire(ctx, "k")
		require.NoError(t, err)
		require.NoError(t, g.Mark(ctx, "k", shared.IdempotencyStatusFailed, assert.AnError))

		acq, err := g.Acquire(ctx, "k")
		require.NoError(t, err)
		assert.True(t, acq.Acquired)
	})

	t.Run("mark rejects an invalid status", func(t *testing.T) {
		g := NewInMemoryIdempotencyGuard()
		err := g.Mark(ctx, "k", shared.IdempotencyStatus("bogus"), nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("concurrent acquires yield exactly one winner", func(t *testing.T) {
		g := NewInMemoryIdempotencyGuard()
		const n = 16
		var wg sync.WaitGroup
		wins := make(chan struct{}, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				acq, err := g.Acquire(ctx, "k")
				if err == nil && acq.Acquired {
					wins <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(wins)
		count := 0
		for range wins {
			count++
		}
		assert.Equal(t, 1, count)
	})
}

package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	t.Run("returns as soon as the condition holds", func(t *testing.T) {
		calls := 0
		err := Poll(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("keeps polling until the condition holds", func(t *testing.T) {
		calls := 0
		err := Poll(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("checks once even without time left", func(t *testing.T) {
		calls := 0
		err := Poll(context.Background(), time.Millisecond, 0, func(ctx context.Context) (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("times out when the condition never holds", func(t *testing.T) {
		start := time.Now()
		err := Poll(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
			return false, nil
		})
		require.ErrorIs(t, err, ErrPollTimeout)
		require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("stops on a check error", func(t *testing.T) {
		boom := errors.New("boom")
		err := Poll(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
			return false, boom
		})
		require.ErrorIs(t, err, boom)
	})

	t.Run("returns the context error when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Poll(ctx, time.Millisecond, time.Minute, func(context.Context) (bool, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return false, nil
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSleep(t *testing.T) {
	t.Run("waits for the duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, sleep(context.Background(), 20*time.Millisecond))
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, sleep(ctx, time.Minute), context.Canceled)
	})
}

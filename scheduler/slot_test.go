package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlotPoolAcquireRelease(t *testing.T) {
	pool := NewSlotPool(2, 0)
	require.Equal(t, 2, pool.Size())

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first.Id(), second.Id())

	pool.Release(first)
	third, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.Id(), third.Id())
}

func TestSlotPoolWaitBudgetExceeded(t *testing.T) {
	pool := NewSlotPool(1, 50*time.Millisecond)
	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = pool.Acquire(context.Background())
	require.Error(t, err)
	var timeout SlotTimeoutError
	require.True(t, errors.As(err, &timeout))
	require.Less(t, time.Since(start), 2*time.Second)

	pool.Release(held)
	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(again)
}

func TestSlotPoolAcquireCancelled(t *testing.T) {
	pool := NewSlotPool(1, 0)
	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(held)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperr "github.com/readmate/readmate/internal/pkg/errors"
)

func TestLimiter_RejectsBeyondQueueCapacity(t *testing.T) {
	limiter := NewLimiter(1, 0)

	release, err := limiter.Acquire(context.Background())
	require.NoError(t, err)

	_, err = limiter.Acquire(context.Background())
	require.ErrorIs(t, err, apperr.ErrOverloaded)

	release()
	release2, err := limiter.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestLimiter_QueuedAcquireProceedsAfterRelease(t *testing.T) {
	limiter := NewLimiter(1, 1)

	release, err := limiter.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r, err := limiter.Acquire(context.Background())
		require.NoError(t, err)
		r()
	}()

	// The queued caller is waiting on the slot, not rejected.
	select {
	case <-done:
		t.Fatal("queued acquire finished before release")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued acquire never finished")
	}
}

func TestLimiter_AcquireHonorsContextCancel(t *testing.T) {
	limiter := NewLimiter(1, 1)

	release, err := limiter.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limiter.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned wait must not leak its queue slot.
	_, waiting, _ := limiter.Status()
	require.Zero(t, waiting)
}

func TestLimiter_StatusReportsActiveAndCapacity(t *testing.T) {
	limiter := NewLimiter(2, 4)

	active, waiting, capacity := limiter.Status()
	require.Zero(t, active)
	require.Zero(t, waiting)
	require.Equal(t, 2, capacity)

	release, err := limiter.Acquire(context.Background())
	require.NoError(t, err)
	active, _, _ = limiter.Status()
	require.Equal(t, 1, active)
	release()
}

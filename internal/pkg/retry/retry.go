package retry

import (
	"context"
	"time"

	apperr "github.com/readmate/readmate/internal/pkg/errors"
)

const (
	DefaultAttempts = 3
	baseDelay       = 200 * time.Millisecond
)

// Do runs fn up to attempts times with exponential backoff between tries.
// Only errors of the transient class are retried; anything else is returned
// as-is so caller faults surface immediately. Backoff waits respect ctx.
func Do(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !apperr.IsRetriable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// Package retry provides the shared retry-with-backoff wrapper used around
// every external collaborator call (LLM, file host, dispatcher).
package retry

import (
	"context"
	"time"
)

// Backoff controls how an operation is retried. The delay before attempt n+1
// is BaseDelay * 2^n; there is no delay after the final attempt.
type Backoff struct {
	Attempts  int
	BaseDelay time.Duration

	// Sleep is injectable for tests. Nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op up to b.Attempts times and returns the first success. If every
// attempt fails, the last error is returned unchanged.
func Do[T any](ctx context.Context, b Backoff, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, b.BaseDelay<<uint(i)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, b Backoff, op func(ctx context.Context) error) error {
	_, err := Do(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

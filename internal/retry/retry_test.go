package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fakeSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	calls := 0
	v, err := Do(context.Background(), Backoff{Attempts: 3, BaseDelay: time.Second, Sleep: fakeSleep(&delays)},
		func(context.Context) (int, error) {
			calls++
			return 42, nil
		})
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)
	require.Empty(t, delays)
}

func TestDoRetriesWithExponentialDelay(t *testing.T) {
	var delays []time.Duration
	calls := 0
	v, err := Do(context.Background(), Backoff{Attempts: 4, BaseDelay: 100 * time.Millisecond, Sleep: fakeSleep(&delays)},
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestDoExhaustedReturnsLastError(t *testing.T) {
	var delays []time.Duration
	wantErr := errors.New("still broken")
	calls := 0
	_, err := Do(context.Background(), Backoff{Attempts: 3, BaseDelay: time.Second, Sleep: fakeSleep(&delays)},
		func(context.Context) (int, error) {
			calls++
			return 0, wantErr
		})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, calls)
	// No sleep after the final attempt.
	require.Len(t, delays, 2)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Backoff{}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, Backoff{Attempts: 3, BaseDelay: time.Millisecond},
		func(context.Context) (int, error) {
			return 0, errors.New("transient")
		})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Run(context.Background(), Backoff{Attempts: 2, BaseDelay: time.Second, Sleep: fakeSleep(&delays)},
		func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

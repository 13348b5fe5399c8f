package poller

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWait_ReadyImmediately returns without sleeping when the artifact exists.
func TestWait_ReadyImmediately(t *testing.T) {
	t.Parallel()

	slept := 0
	p := New(Policy{Interval: time.Hour, MaxAttempts: 3},
		WithStat(func(string) (os.FileInfo, error) { return nil, nil }),
		WithSleep(func(context.Context, time.Duration) error {
			slept++
			return nil
		}))

	require.NoError(t, p.Wait(context.Background(), "artifact"))
	require.Zero(t, slept)
}

// TestWait_BecomesReadyAfterTicks transitions to ready on a later attempt.
func TestWait_BecomesReadyAfterTicks(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := New(Policy{Interval: time.Hour, MaxAttempts: 5},
		WithStat(func(string) (os.FileInfo, error) {
			attempts++
			if attempts < 3 {
				return nil, os.ErrNotExist
			}

			return nil, nil
		}),
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	require.NoError(t, p.Wait(context.Background(), "artifact"))
	require.Equal(t, 3, attempts)
}

// TestWait_TimesOutAfterBudget exhausts the tick budget without real sleeps.
func TestWait_TimesOutAfterBudget(t *testing.T) {
	t.Parallel()

	attempts := 0
	slept := 0
	p := New(Policy{Interval: time.Hour, MaxAttempts: 4},
		WithStat(func(string) (os.FileInfo, error) {
			attempts++
			return nil, os.ErrNotExist
		}),
		WithSleep(func(context.Context, time.Duration) error {
			slept++
			return nil
		}))

	err := p.Wait(context.Background(), "artifact")
	require.ErrorIs(t, err, ErrTimedOut)
	require.Equal(t, 4, attempts)
	// No sleep after the final attempt.
	require.Equal(t, 3, slept)
}

// TestWait_ContextCancellation stops the wait between ticks.
func TestWait_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Policy{Interval: time.Millisecond, MaxAttempts: 100},
		WithStat(func(string) (os.FileInfo, error) { return nil, os.ErrNotExist }))

	err := p.Wait(ctx, "artifact")
	require.ErrorIs(t, err, context.Canceled)
}

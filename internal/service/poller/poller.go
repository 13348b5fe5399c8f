package poller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/webtvmux/bundler/internal/logger"
)

// ErrTimedOut is returned when the artifact never appears within the tick budget.
var ErrTimedOut = errors.New("artifact never became ready")

// Policy bounds the wait for the upstream artifact: a fixed interval
// between checks and a maximum number of attempts.
type Policy struct {
	// Interval is the fixed delay between readiness checks.
	Interval time.Duration
	// MaxAttempts is the tick budget before the wait times out.
	MaxAttempts int
}

// Poller blocks until an expected path appears on disk, tolerating a late
// upstream build step. The stat and sleep functions are injectable so
// timeout behavior is testable without real sleeps.
type Poller struct {
	policy Policy
	stat   func(string) (os.FileInfo, error)
	sleep  func(context.Context, time.Duration) error
}

// Option customizes a Poller.
type Option func(*Poller)

// WithStat replaces the filesystem probe.
func WithStat(stat func(string) (os.FileInfo, error)) Option {
	return func(p *Poller) {
		p.stat = stat
	}
}

// WithSleep replaces the inter-tick delay.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

// New builds a Poller from the policy, applying defaults for zero values.
func New(policy Policy, options ...Option) *Poller {
	if policy.Interval <= 0 {
		policy.Interval = time.Second
	}

	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	p := &Poller{
		policy: policy,
		stat:   os.Stat,
		sleep:  sleepContext,
	}

	for _, option := range options {
		option(p)
	}

	return p
}

// Wait blocks until path exists, the tick budget is exhausted, or the
// context is canceled. It returns nil on the first successful check and
// wraps ErrTimedOut after the final failed one.
func (p *Poller) Wait(ctx context.Context, path string) error {
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		if _, err := p.stat(path); err == nil {
			logger.InfoKV(ctx, "Artifact is ready", "path", path, "attempt", attempt)
			return nil
		}

		logger.DebugKV(ctx, "Artifact not ready yet",
			"path", path, "attempt", attempt, "max_attempts", p.policy.MaxAttempts)

		if attempt == p.policy.MaxAttempts {
			break
		}

		if err := p.sleep(ctx, p.policy.Interval); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s after %d attempts: %w", path, p.policy.MaxAttempts, ErrTimedOut)
}

// sleepContext pauses for the duration unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

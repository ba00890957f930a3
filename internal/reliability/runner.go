package reliability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alabobai/media-bridge/internal/circuitbreaker"
)

// Operation is an opaque backend call. Callers close over their own
// parameters and are responsible for wrapping the call in a timeout.
type Operation func(ctx context.Context) (any, error)

// Outcome reports a successful run and how many attempts it took.
type Outcome struct {
	Value        any
	AttemptsUsed int
}

// RunOptions bound a single run.
type RunOptions struct {
	Attempts int
	Delay    DelayPolicy
}

// CircuitOpenError is the synthetic failure raised when the breaker for a key
// blocks an attempt. It costs no network call but consumes an attempt, so an
// open breaker exhausts the budget exactly like a failing backend.
type CircuitOpenError struct {
	Key         string
	LastFailure string
}

func (e *CircuitOpenError) Error() string {
	if e.LastFailure == "" {
		return fmt.Sprintf("circuit open for %s", e.Key)
	}
	return fmt.Sprintf("circuit open for %s (last failure: %s)", e.Key, e.LastFailure)
}

// Runner executes operations under a bounded-retry policy, consulting and
// updating the circuit breaker for the operation's key around every attempt.
type Runner struct {
	breakers *circuitbreaker.Registry
	logger   *slog.Logger
}

func NewRunner(breakers *circuitbreaker.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		breakers: breakers,
		logger:   logger,
	}
}

// Run invokes op up to opts.Attempts times, returning on the first success.
// After exhausting the budget it returns the most recent failure unchanged —
// fallback decisions belong entirely to the caller. The outcome is non-nil
// either way so callers can account for consumed attempts.
func (r *Runner) Run(ctx context.Context, key string, op Operation, opts RunOptions) (*Outcome, error) {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := opts.Delay
	if delay == nil {
		delay = NoDelay{}
	}

	var lastErr error
	used := 0

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return &Outcome{AttemptsUsed: used}, lastErr
		}

		used = attempt

		if !r.breakers.CanAttempt(key) {
			lastErr = &CircuitOpenError{Key: key, LastFailure: r.breakers.LastError(key)}
			r.logger.Warn("attempt blocked by open circuit",
				slog.String("key", key),
				slog.Int("attempt", attempt))
			if attempt < attempts {
				if err := sleep(ctx, delay.Delay(attempt)); err != nil {
					return &Outcome{AttemptsUsed: used}, lastErr
				}
			}
			continue
		}

		value, err := op(ctx)
		if err == nil {
			r.breakers.RecordSuccess(key)
			return &Outcome{Value: value, AttemptsUsed: attempt}, nil
		}

		r.breakers.RecordFailure(key, err)
		lastErr = err
		r.logger.Warn("attempt failed",
			slog.String("key", key),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt < attempts {
			if err := sleep(ctx, delay.Delay(attempt)); err != nil {
				return &Outcome{AttemptsUsed: used}, lastErr
			}
		}
	}

	return &Outcome{AttemptsUsed: used}, lastErr
}

// sleep waits for d, honoring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

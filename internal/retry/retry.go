// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Sentinel errors for retry operations.
var (
	ErrInvalidPolicy = errors.New("invalid retry policy")
	ErrExhausted     = errors.New("retry attempts exhausted")
)

// Policy configures Do.
type Policy struct {
	MaxAttempts  int           // Total attempts, at least 1
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound for any single delay
	Multiplier   float64       // Growth factor between delays, default 2
	Jitter       bool          // Add up to 25% random delay

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy suits startup work against a local resource.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

func (p Policy) normalized() (Policy, error) {
	if p.InitialDelay < 0 || p.MaxDelay < 0 || p.Multiplier < 0 {
		return p, fmt.Errorf("%w: negative value", ErrInvalidPolicy)
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier == 0 {
		p.Multiplier = 2
	}
	p.Multiplier = min(p.Multiplier, 1000)
	if p.MaxDelay < p.InitialDelay {
		return p, fmt.Errorf("%w: maxDelay %v below initialDelay %v", ErrInvalidPolicy, p.MaxDelay, p.InitialDelay)
	}
	return p, nil
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do calls fn until it succeeds, returns a Permanent error, the context is
// done, or MaxAttempts is reached. The exhausted error wraps both
// ErrExhausted and the last failure.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p, err := p.normalized()
	if err != nil {
		return err
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("canceled after %d attempts: %w", attempt-1, errors.Join(err, lastErr))
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := withJitter(delay, p.Jitter)
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("canceled after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr))
		case <-timer.C:
		}

		next := time.Duration(float64(delay) * p.Multiplier)
		if next <= 0 || next > p.MaxDelay {
			next = p.MaxDelay
		}
		delay = next
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}

func withJitter(d time.Duration, enabled bool) time.Duration {
	if !enabled || d < 4 {
		return d
	}
	return d + rand.N(d/4)
}

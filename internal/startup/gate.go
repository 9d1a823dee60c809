// Package startup runs one-time initialization steps with retry and
// publishes readiness.
package startup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vianubio/clubsite/internal/retry"
)

// ErrNotReady is returned by Err before the first attempt.
var ErrNotReady = errors.New("initialization has not completed")

// Step is one named initialization action. Steps must be safe to repeat:
// a failed round re-runs every step from the first.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Observer receives attempt outcomes. Metrics implement it.
type Observer interface {
	InitAttempt(step string, err error)
}

// Gate serializes initialization and remembers success.
type Gate struct {
	steps    []Step
	policy   retry.Policy
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex // serializes Run
	ready   atomic.Bool
	lastErr atomic.Pointer[error]
}

// Option configures a Gate.
type Option func(*Gate)

// WithPolicy sets the retry policy for one Run.
func WithPolicy(p retry.Policy) Option {
	return func(g *Gate) { g.policy = p }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver records each step attempt.
func WithObserver(o Observer) Option {
	return func(g *Gate) { g.observer = o }
}

// NewGate creates a gate over steps, run in the given order.
func NewGate(steps []Step, opts ...Option) *Gate {
	g := &Gate{
		steps:  append([]Step(nil), steps...),
		policy: retry.DefaultPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	notReady := ErrNotReady
	g.lastErr.Store(&notReady)
	return g
}

// Ready reports whether initialization has succeeded.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// Err returns the last failure, ErrNotReady before any attempt, or nil
// once ready.
func (g *Gate) Err() error {
	if g.ready.Load() {
		return nil
	}
	return *g.lastErr.Load()
}

// Run executes all steps under the retry policy. After a success further
// calls return nil without running anything. Concurrent callers wait for
// the one in progress.
func (g *Gate) Run(ctx context.Context) error {
	if g.ready.Load() {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready.Load() {
		return nil
	}

	policy := g.policy
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		g.logger.Warn("initialization attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err))
		if userHook != nil {
			userHook(attempt, err, wait)
		}
	}

	err := retry.Do(ctx, policy, g.runSteps)
	if err != nil {
		g.lastErr.Store(&err)
		return err
	}

	g.ready.Store(true)
	g.logger.Info("initialization complete", zap.Int("steps", len(g.steps)))
	return nil
}

func (g *Gate) runSteps(ctx context.Context) error {
	for _, step := range g.steps {
		err := step.Run(ctx)
		if g.observer != nil {
			g.observer.InitAttempt(step.Name, err)
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", step.Name, err)
			g.lastErr.Store(&err)
			return err
		}
		g.logger.Debug("initialization step done", zap.String("step", step.Name))
	}
	return nil
}

// RunInBackground calls Run in rounds, pausing between failed rounds, until
// it succeeds, a step fails permanently, or ctx is done. It returns nil on
// success, the permanent error (still reported by Err), or ctx.Err() on
// cancellation.
func (g *Gate) RunInBackground(ctx context.Context, pause time.Duration) error {
	for {
		err := g.Run(ctx)
		switch {
		case err == nil:
			return nil
		case retry.IsPermanent(err):
			g.logger.Error("initialization failed permanently", zap.Error(err))
			return err
		case ctx.Err() == nil:
			g.logger.Error("initialization round failed", zap.Duration("next_round_in", pause), zap.Error(err))
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var retries []int
	p := fastPolicy(5)
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		retries = append(retries, attempt)
		assert.Error(t, err)
		assert.Positive(t, wait)
	}

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_Exhausted(t *testing.T) {
	t.Parallel()

	cause := errors.New("unreachable")
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad schema")
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return Permanent(cause)
	})

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPermanent(err))
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}

	var calls atomic.Int32
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	cause := errors.New("down")
	err := Do(ctx, p, func(context.Context) error {
		calls.Add(1)
		return cause
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_ContextAlreadyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Do(ctx, fastPolicy(3), func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_InvalidPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Policy
	}{
		{"negative initial delay", Policy{InitialDelay: -1}},
		{"negative multiplier", Policy{Multiplier: -1}},
		{"max below initial", Policy{InitialDelay: time.Second, MaxDelay: time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Do(context.Background(), tt.p, func(context.Context) error { return nil })
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return errors.New("x")
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
}

func TestWithJitter(t *testing.T) {
	t.Parallel()

	d := 100 * time.Millisecond
	assert.Equal(t, d, withJitter(d, false))
	for range 50 {
		got := withJitter(d, true)
		assert.GreaterOrEqual(t, got, d)
		assert.Less(t, got, d+d/4)
	}
	assert.Equal(t, time.Duration(2), withJitter(2, true))
}

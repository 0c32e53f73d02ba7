package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

var errDown = errors.New("down")

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		OnStateChange:    func(_ string, s State) { transitions = append(transitions, s) },
	})
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	fail := func() error { return errDown }
	ok := func() error { return nil }

	require.ErrorIs(t, cb.Execute(fail), errDown)
	require.Equal(t, StateClosed, cb.State())
	require.ErrorIs(t, cb.Execute(fail), errDown)
	require.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Zero(t, calls)

	// A failed probe reopens the breaker for another cooldown.
	now = now.Add(time.Minute)
	require.ErrorIs(t, cb.Execute(fail), errDown)
	require.Equal(t, StateOpen, cb.State())
	require.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ok))
	require.Equal(t, StateClosed, cb.State())

	require.Equal(t, []State{StateOpen, StateHalfOpen, StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "write", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errDown
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryGivesUp(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "write", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		return errDown
	})
	require.ErrorIs(t, err, errDown)
	require.Equal(t, 2, attempts)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, apperrors.ErrInvalidInput) },
	}
	err := Retry(context.Background(), "write", cfg, func(context.Context) error {
		attempts++
		return apperrors.New(apperrors.ErrInvalidInput, "bad row")
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Equal(t, 1, attempts)
}

func TestRetryAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx, "write", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		cancel()
		return errDown
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithDeadline(t *testing.T) {
	err := WithDeadline(context.Background(), 10*time.Millisecond, "match", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, apperrors.ErrDeadlineExceeded)
	require.Equal(t, apperrors.ExitDeadline, apperrors.ExitCode(err))

	require.NoError(t, WithDeadline(context.Background(), 0, "match", func(context.Context) error { return nil }))
	require.ErrorIs(t, WithDeadline(context.Background(), time.Second, "match", func(context.Context) error { return errDown }), errDown)
}

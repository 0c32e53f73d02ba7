package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/resilience"
)

// Sink receives finished results.
type Sink interface {
	Name() string
	Write(ctx context.Context, r Result) error
	Close() error
}

// Pinger is implemented by sinks backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MultiSink writes every result to all of its sinks concurrently. Each
// write is retried with backoff, and a sink that keeps failing is skipped
// by its circuit breaker until the cooldown passes.
type MultiSink struct {
	sinks     []Sink
	breakers  map[string]*resilience.CircuitBreaker
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	closeOnce sync.Once
}

// MultiSinkOptions tunes the retry schedule and breaker of every sink.
type MultiSinkOptions struct {
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
	Metrics *metrics.Metrics
}

func NewMultiSink(sinks []Sink, opts MultiSinkOptions) *MultiSink {
	ms := &MultiSink{
		sinks:    sinks,
		breakers: make(map[string]*resilience.CircuitBreaker, len(sinks)),
		retry:    opts.Retry,
		metrics:  opts.Metrics,
		logger:   slog.Default().With("component", "result-sink"),
	}
	if ms.retry.Retryable == nil {
		ms.retry.Retryable = retryable
	}
	breaker := opts.Breaker
	breaker.OnStateChange = func(name string, s resilience.State) {
		ms.metrics.ObserveBreaker(name, int(s))
	}
	for _, s := range sinks {
		ms.breakers[s.Name()] = resilience.NewCircuitBreaker(s.Name(), breaker)
	}
	return ms
}

// retryable rejects errors a second attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, apperrors.ErrInvalidInput) &&
		!errors.Is(err, apperrors.ErrInvalidConfig) &&
		!errors.Is(err, context.Canceled)
}

func (ms *MultiSink) Name() string { return "multi" }

// Sinks returns the wrapped sinks.
func (ms *MultiSink) Sinks() []Sink {
	return ms.sinks
}

// Write fans r out to every sink. Failures of individual sinks are joined
// into one error that wraps ErrSinkUnavailable; the other sinks still
// receive the result.
func (ms *MultiSink) Write(ctx context.Context, r Result) error {
	errs := make([]error, len(ms.sinks))
	var g errgroup.Group
	for i, s := range ms.sinks {
		g.Go(func() error {
			errs[i] = ms.writeOne(ctx, s, r)
			return nil
		})
	}
	g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err)
	}
	return nil
}

func (ms *MultiSink) writeOne(ctx context.Context, s Sink, r Result) error {
	err := ms.breakers[s.Name()].Execute(func() error {
		return resilience.Retry(ctx, "write "+s.Name(), ms.retry, func(ctx context.Context) error {
			return s.Write(ctx, r)
		})
	})
	ms.metrics.ObserveSinkWrite(s.Name(), err)
	if err != nil {
		ms.logger.Error("result write failed", "sink", s.Name(), "run_id", r.RunID, "error", err)
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	ms.logger.Debug("result written", "sink", s.Name(), "run_id", r.RunID)
	return nil
}

// RegisterHealth adds a readiness check for every sink that can be pinged.
func (ms *MultiSink) RegisterHealth(checker *health.Checker) {
	for _, s := range ms.sinks {
		p, ok := s.(Pinger)
		if !ok {
			continue
		}
		name := s.Name()
		checker.Register(name, func(ctx context.Context) health.ComponentHealth {
			if err := p.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			if ms.breakers[name].State() != resilience.StateClosed {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit breaker not closed"}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
}

// Close closes every sink once and joins their errors.
func (ms *MultiSink) Close() error {
	var err error
	ms.closeOnce.Do(func() {
		errs := make([]error, 0, len(ms.sinks))
		for _, s := range ms.sinks {
			if cerr := s.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", s.Name(), cerr))
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

// Package resilience provides the fault-tolerance primitives result sinks
// are wrapped in: a circuit breaker, exponential-backoff retry and a
// deadline wrapper for long computations.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while a breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls when a breaker opens and how long it stays
// open. OnStateChange, when set, is called with the new state after every
// transition, outside the breaker's lock.
type CircuitBreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	OnStateChange    func(name string, s State)
}

func defaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker opens after FailureThreshold consecutive failures. Once
// the cooldown has passed it lets a single probe through: success closes
// it, failure opens it for another cooldown.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewCircuitBreaker fills in defaults for zero config values.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	defaults := defaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	var changed bool
	defer func() {
		cb.mu.Unlock()
		if changed {
			cb.notify(StateHalfOpen)
		}
	}()

	switch cb.state {
	case StateOpen:
		wait := cb.cfg.Cooldown - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.state = StateHalfOpen
		changed = true
		cb.logger.Info("circuit half-open, probing")
		return nil
	case StateHalfOpen:
		return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	prev := cb.state
	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
	} else {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
	next := cb.state
	cb.mu.Unlock()

	if next == prev {
		return
	}
	if next == StateOpen {
		cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
	} else {
		cb.logger.Info("circuit closed")
	}
	cb.notify(next)
}

func (cb *CircuitBreaker) notify(s State) {
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, s)
	}
}

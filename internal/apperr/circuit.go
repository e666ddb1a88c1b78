package apperr

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a circuit breaker is open and a call is
// short-circuited without invoking the wrapped function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is one of the three circuit breaker states.
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

// CircuitBreaker implements the Closed/Open/HalfOpen state machine:
// failures accumulate in Closed until failureThreshold trips the breaker
// to Open; after timeout elapses the breaker admits probes in HalfOpen,
// and recoveryThreshold consecutive successes close it again. Any failure
// while HalfOpen immediately re-opens it.
type CircuitBreaker struct {
	name              string
	failureThreshold  int
	recoveryThreshold int
	timeout           time.Duration

	mu              sync.Mutex
	state           State
	failures        int
	halfOpenSuccess int
	openedAt        time.Time
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

func WithFailureThreshold(n int) Option {
	return func(cb *CircuitBreaker) { cb.failureThreshold = n }
}

func WithRecoveryThreshold(n int) Option {
	return func(cb *CircuitBreaker) { cb.recoveryThreshold = n }
}

func WithTimeout(d time.Duration) Option {
	return func(cb *CircuitBreaker) { cb.timeout = d }
}

// NewCircuitBreaker creates a breaker with defaults of 5 failures to open,
// 1 consecutive success to close, and a 30s open timeout.
func NewCircuitBreaker(name string, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:              name,
		failureThreshold:  5,
		recoveryThreshold: 1,
		timeout:           30 * time.Second,
		state:             StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state, resolving an elapsed Open timeout into
// HalfOpen without mutating internal counters.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.effectiveState()
}

func (cb *CircuitBreaker) effectiveState() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) > cb.timeout {
		return StateHalfOpen
	}
	return cb.state
}

// Failures returns the current consecutive-failure count while Closed.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Allow reports whether a call should be admitted right now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.effectiveState() != StateOpen
}

// Execute runs fn through the breaker. Returns ErrCircuitOpen without
// calling fn when the breaker is tripped and the timeout has not elapsed.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	state := cb.effectiveState()
	if state == StateOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	if state == StateHalfOpen {
		cb.state = StateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.recordFailureLocked()
		return err
	}
	cb.recordSuccessLocked()
	return nil
}

// ExecuteWithResult runs fn through the breaker, invoking fallback instead
// when the breaker short-circuits the call.
func ExecuteWithResult[T any](cb *CircuitBreaker, fn func() (T, error), fallback func() (T, error)) (T, error) {
	cb.mu.Lock()
	state := cb.effectiveState()
	if state == StateOpen {
		cb.mu.Unlock()
		return fallback()
	}
	if state == StateHalfOpen {
		cb.state = StateHalfOpen
	}
	cb.mu.Unlock()

	result, err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.recordFailureLocked()
		return result, err
	}
	cb.recordSuccessLocked()
	return result, nil
}

func (cb *CircuitBreaker) recordFailureLocked() {
	cb.halfOpenSuccess = 0
	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		return
	}
	cb.failures++
	if cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

func (cb *CircuitBreaker) recordSuccessLocked() {
	if cb.state == StateHalfOpen {
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.recoveryThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.halfOpenSuccess = 0
		}
		return
	}
	cb.failures = 0
}

// RecordSuccess and RecordFailure let callers outside Execute (e.g. async
// dispatch patterns) drive the state machine directly.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordSuccessLocked()
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordFailureLocked()
}

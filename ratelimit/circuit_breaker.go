package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BreakerState is one of the three classic circuit-breaker states.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker trips to Open after FailureThreshold consecutive
// failures, holds for ResetTimeout, then allows one HalfOpen probe
// before closing again on success.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	openedAt         time.Time
	probing          bool // a HalfOpen probe is in flight; blocks further probes until it resolves
}

// NewCircuitBreaker builds a breaker that opens after failureThreshold
// consecutive failures and stays open for resetTimeout.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{failureThreshold: failureThreshold, resetTimeout: resetTimeout}
}

var ErrCircuitOpen = fmt.Errorf("circuit breaker open")

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.probing = true
			return true
		}
		return false
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) onResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
		return
	}
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// RetryWithCircuitBreaker composes Retry with a breaker check: if the
// breaker is open, the call fails fast without invoking fn at all.
func RetryWithCircuitBreaker(ctx context.Context, cfg RetryConfig, cb *CircuitBreaker, classify Classifier, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := Retry(ctx, cfg, classify, fn)
	cb.onResult(err)
	return err
}

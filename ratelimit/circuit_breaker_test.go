package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	assert.Equal(t, StateClosed, cb.State())

	cb.onResult(assertErr)
	assert.Equal(t, StateClosed, cb.State())
	cb.onResult(assertErr)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	cb.onResult(assertErr)
	cb.onResult(nil)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.failures)
}

func TestCircuitBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Millisecond)
	cb.onResult(assertErr)
	require.Equal(t, StateOpen, cb.State())

	assert.False(t, cb.allow(), "should still be closed-for-traffic before the reset timeout elapses")
	time.Sleep(10 * time.Millisecond)
	assert.True(t, cb.allow(), "should allow a half-open probe after the reset timeout")
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Millisecond)
	cb.onResult(assertErr)
	time.Sleep(10 * time.Millisecond)
	require.True(t, cb.allow())
	cb.onResult(assertErr)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerHalfOpenAllowsOnlyOneConcurrentProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Millisecond)
	cb.onResult(assertErr)
	time.Sleep(10 * time.Millisecond)

	require.True(t, cb.allow(), "first caller after reset timeout should get the probe")
	assert.False(t, cb.allow(), "a second concurrent caller must not also get a probe")
	assert.False(t, cb.allow(), "must keep blocking until the in-flight probe resolves")

	cb.onResult(nil)
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.allow(), "once the probe resolves, the breaker accepts traffic again")
}

func TestRetryWithCircuitBreakerFailsFastWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Hour)
	cb.onResult(assertErr)
	require.Equal(t, StateOpen, cb.State())

	calls := 0
	err := RetryWithCircuitBreaker(context.Background(), fastRetryConfig(3), cb, func(error) bool { return true }, func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls)
}

func TestRetryWithCircuitBreakerRecordsSuccess(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)
	err := RetryWithCircuitBreaker(context.Background(), fastRetryConfig(3), cb, nil, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

var assertErr = errTransient

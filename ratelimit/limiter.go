// Package ratelimit implements the Rate Limiter + Retry component of
// spec.md §4.4/§C: a sliding 60-second-window RPM cap per provider, and
// exponential-backoff retry with jitter and an optional circuit breaker,
// grounded on resilience/retry.go.
package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Limiter enforces a sliding 60-second window cap on successful
// Acquire calls. Blocked callers are not queued: each re-checks the
// window when woken by SetRPM or by its own timer, so the order in which
// waiters acquire is not defined. RPM=0 blocks until SetRPM raises the cap
// or the context is canceled — spec.md §8's boundary behavior, not a
// crash.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	rpm    int
	times  *list.List // timestamps within the window, oldest at front
	waitCh chan struct{}
}

// NewLimiter builds a limiter capped at rpm requests per 60-second
// window.
func NewLimiter(rpm int) *Limiter {
	return &Limiter{
		window: 60 * time.Second,
		rpm:    rpm,
		times:  list.New(),
		waitCh: make(chan struct{}),
	}
}

// SetRPM updates the cap at runtime and wakes any blocked waiters.
func (l *Limiter) SetRPM(rpm int) {
	l.mu.Lock()
	l.rpm = rpm
	l.wake()
	l.mu.Unlock()
}

// wake must be called with mu held; it closes and replaces the signal
// channel so every current waiter's select fires once.
func (l *Limiter) wake() {
	close(l.waitCh)
	l.waitCh = make(chan struct{})
}

func (l *Limiter) prune(now time.Time) {
	for e := l.times.Front(); e != nil; {
		next := e.Next()
		if now.Sub(e.Value.(time.Time)) > l.window {
			l.times.Remove(e)
		} else {
			break // list is time-ordered; once we hit one in-window, the rest are too
		}
		e = next
	}
}

// Acquire blocks until a slot opens in the sliding window, or until ctx
// is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return err
		}
		now := time.Now()
		l.prune(now)

		if l.rpm > 0 && l.times.Len() < l.rpm {
			l.times.PushBack(now)
			l.mu.Unlock()
			return nil
		}

		// No slot yet: compute how long until the oldest entry falls out
		// of the window (so we wake promptly instead of polling), or fall
		// back to the window length if the cap itself is <= 0.
		var wait time.Duration
		if front := l.times.Front(); front != nil {
			wait = l.window - now.Sub(front.Value.(time.Time))
			if wait <= 0 {
				wait = time.Millisecond
			}
		} else {
			wait = l.window
		}
		ch := l.waitCh
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-ch:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Stats reports the current in-window request count.
func (l *Limiter) Stats() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return l.times.Len()
}

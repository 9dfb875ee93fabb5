package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig mirrors resilience/retry.go's RetryConfig: base delay,
// exponential factor, cap, jitter fraction, and max attempts, matching
// spec.md §4.4's (base=1s, factor=2, cap=60s, jitter=±25%, max 3).
type RetryConfig struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
	JitterFrac  float64
	MaxAttempts int
}

// DefaultRetryConfig is the bundle spec.md §4.4 names exactly.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    60 * time.Second,
		JitterFrac:  0.25,
		MaxAttempts: 3,
	}
}

// Classifier reports whether err is transient (worth retrying) as
// opposed to permanent (surface immediately).
type Classifier func(err error) bool

// Retry runs fn up to cfg.MaxAttempts times, backing off exponentially
// between attempts while err is transient per classify. A permanent
// error or a nil error returns immediately.
func Retry(ctx context.Context, cfg RetryConfig, classify Classifier, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if classify != nil && !classify(lastErr) {
			return lastErr // permanent: do not retry
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := jitter(delay, cfg.JitterFrac)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Factor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	spread := float64(d) * frac
	offset := (rand.Float64()*2 - 1) * spread // uniform in [-spread, +spread]
	result := float64(d) + offset
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}

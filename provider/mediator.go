package provider

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kazkozdev/promptstudio/cache"
	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/ratelimit"
)

// Mediator wraps a concrete Provider with the ordering spec.md §4.4
// mandates: (a) cache lookup keyed by the full parameter bundle,
// (b) rate limiter acquisition, (c) retry on transient errors. A cache
// hit returns immediately and never touches the limiter. Concurrent
// calls that miss the cache with the same key are collapsed by
// flight so only one of them reaches the limiter and the backend
// (spec.md §8 scenario 2).
type Mediator struct {
	inner   Provider
	cache   cache.Cache
	limiter *ratelimit.Limiter
	breaker *ratelimit.CircuitBreaker
	retry   ratelimit.RetryConfig
	logger  core.Logger
	telem   core.Telemetry
	flight  singleflight.Group
}

// NewMediator builds a Mediator around inner. cache and limiter may be
// nil to disable those layers (tests commonly disable the limiter).
func NewMediator(inner Provider, c cache.Cache, limiter *ratelimit.Limiter, logger core.Logger, telem core.Telemetry) *Mediator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if telem == nil {
		telem = core.NoOpTelemetry{}
	}
	return &Mediator{
		inner:   inner,
		cache:   c,
		limiter: limiter,
		breaker: ratelimit.NewCircuitBreaker(5, 30*time.Second),
		retry:   ratelimit.DefaultRetryConfig(),
		logger:  logger,
		telem:   telem,
	}
}

func (m *Mediator) Name() string  { return m.inner.Name() }
func (m *Mediator) Model() string { return m.inner.Model() }

func (m *Mediator) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	return m.invoke(ctx, prompt, nil, params)
}

func (m *Mediator) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	return m.invoke(ctx, "", messages, params)
}

func (m *Mediator) invoke(ctx context.Context, prompt string, messages []Message, params Params) (string, error) {
	cacheKey := m.keyFor(prompt, messages, params)

	if m.cache != nil {
		if v, ok := m.cache.Get(cacheKey); ok {
			m.telem.Counter("provider.cache", 1, "provider", m.Name(), "result", "hit")
			return v, nil
		}
	}

	// Concurrent callers that missed the cache on the same key share
	// this single call: only the leader acquires the limiter and
	// reaches the backend, and every follower gets its result.
	v, err, _ := m.flight.Do(cacheKey, func() (interface{}, error) {
		if m.cache != nil {
			if v, ok := m.cache.Get(cacheKey); ok {
				m.telem.Counter("provider.cache", 1, "provider", m.Name(), "result", "hit")
				return v, nil
			}
		}

		if m.limiter != nil {
			if err := m.limiter.Acquire(ctx); err != nil {
				return "", err
			}
		}

		var result string
		call := func(ctx context.Context) error {
			var err error
			if messages != nil {
				result, err = m.inner.Chat(ctx, messages, params)
			} else {
				result, err = m.inner.Complete(ctx, prompt, params)
			}
			return err
		}

		if err := ratelimit.RetryWithCircuitBreaker(ctx, m.retry, m.breaker, classifyTransient, call); err != nil {
			m.telem.Counter("provider.call", 1, "provider", m.Name(), "result", "error")
			return "", err
		}

		m.telem.Counter("provider.call", 1, "provider", m.Name(), "result", "success")
		if m.cache != nil {
			m.cache.Set(cacheKey, result)
		}
		return result, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Mediator) keyFor(prompt string, messages []Message, params Params) string {
	text := prompt
	if messages != nil {
		var b strings.Builder
		for _, msg := range messages {
			b.WriteString(msg.Role)
			b.WriteByte(':')
			b.WriteString(msg.Content)
			b.WriteByte('\n')
		}
		text = b.String()
	}
	return cache.Key(cache.KeyParams{
		Provider:    m.Name(),
		Model:       m.Model(),
		Prompt:      text,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
		Stop:        params.Stop,
		Seed:        params.Seed,
	})
}

func (m *Mediator) CountTokens(text string) int { return m.inner.CountTokens(text) }

func (m *Mediator) EstimateCost(inputTokens, outputTokens int) float64 {
	return m.inner.EstimateCost(inputTokens, outputTokens)
}

// classifyTransient distinguishes spec.md §4.4's transient faults
// (network reset, 5xx, 429) from permanent ones (auth, validation,
// other 4xx), which must not be retried.
func classifyTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout") {
		return true
	}
	return false
}

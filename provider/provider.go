// Package provider implements the Provider Abstraction of spec.md §4.4:
// a small capability interface unifying local and remote LM backends,
// mediated by caching, rate limiting, and retry.
package provider

import (
	"context"
	"fmt"
)

// Message is one chat turn.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Params bundles the generation parameters that are part of the cache
// key, per spec.md §4.4.
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stop        []string
	Seed        *int64
}

// Validate enforces spec.md §4.4's input contract.
func (p Params) Validate() error {
	if p.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be >= 1, got %d", p.MaxTokens)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0,2], got %v", p.Temperature)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("top_p must be in (0,1], got %v", p.TopP)
	}
	return nil
}

// DefaultParams returns the FAST_CHEAP profile bundle (spec.md §4.1
// Phase 2 table); callers override per quality_profile.
func DefaultParams() Params {
	return Params{Temperature: 0.1, TopP: 0.9, MaxTokens: 1024}
}

// Provider is the capability set every backend implements: no
// inheritance depth beyond this one interface (Design Notes §9).
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string, params Params) (string, error)
	Chat(ctx context.Context, messages []Message, params Params) (string, error)
	CountTokens(text string) int
	EstimateCost(inputTokens, outputTokens int) float64
}

package provider

import (
	"fmt"

	"github.com/kazkozdev/promptstudio/config"
)

// TargetLM is the closed set of target identifiers the Orchestrator
// accepts (spec.md §6.5); it resolves through config.Config.Models to a
// concrete (provider, model) pair. Open Question #1 in DESIGN.md covers
// why this stays closed at the boundary while the config map is open.
type TargetLM string

const (
	TargetGPT4o           TargetLM = "gpt-4o"
	TargetGPT4oMini       TargetLM = "gpt-4o-mini"
	TargetClaude35Sonnet  TargetLM = "claude-3-5-sonnet"
	TargetClaude35Haiku   TargetLM = "claude-3-5-haiku"
	TargetLlama3          TargetLM = "llama3"
)

var knownTargets = map[TargetLM]bool{
	TargetGPT4o:          true,
	TargetGPT4oMini:      true,
	TargetClaude35Sonnet: true,
	TargetClaude35Haiku:  true,
	TargetLlama3:         true,
}

// Resolve maps a TargetLM through cfg.Models. It fails closed: an
// identifier absent from either the enum or the config map is rejected,
// which the orchestrator's register_target_lm step turns into a failed
// result with error_type=invalid_format.
func Resolve(cfg *config.Config, target TargetLM) (config.ModelBinding, error) {
	if !knownTargets[target] {
		return config.ModelBinding{}, fmt.Errorf("unknown target_lm %q", target)
	}
	binding, ok := cfg.Resolve(string(target))
	if !ok {
		return config.ModelBinding{}, fmt.Errorf("target_lm %q has no configured binding", target)
	}
	return binding, nil
}

// ConfigFor builds the Factory.Create input for binding, carrying the
// API key, endpoint, tokenizer, and pricing cfg.Providers recorded for
// binding.Provider through to the factory. Resolve only hands back the
// (provider, model) pair; without this the credentials config.Load
// reads from the environment never reach the client constructor.
func ConfigFor(cfg *config.Config, binding config.ModelBinding) Config {
	pc := cfg.Providers[binding.Provider]
	opts := []Option{WithProviderAlias(binding.Provider), WithModel(binding.Model)}
	if pc.APIKey != "" {
		opts = append(opts, WithAPIKey(pc.APIKey))
	}
	if pc.Endpoint != "" {
		opts = append(opts, WithBaseURL(pc.Endpoint))
	}
	if pc.Tokenizer != "" {
		opts = append(opts, WithTokenizer(pc.Tokenizer))
	}
	if len(pc.Pricing) > 0 {
		opts = append(opts, WithPricing(pc.Pricing["input"], pc.Pricing["output"]))
	}
	return NewConfig(opts...)
}

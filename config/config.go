// Package config loads the single configuration document spec.md §6.4
// describes: providers, target-lm model bindings, rate limits, cache
// settings, and logging level. Priority, highest first: environment
// variables, a YAML file, then built-in defaults — the same three-tier
// shape as the teacher's core.Config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderConfig describes one registered LM backend.
type ProviderConfig struct {
	Endpoint  string             `yaml:"endpoint"`
	Tokenizer string             `yaml:"tokenizer"`
	Pricing   map[string]float64 `yaml:"pricing"` // per 1k tokens, keys "input"/"output"
	APIKey    string             `yaml:"api_key,omitempty"`
}

// ModelBinding maps a target_lm identifier to a concrete provider+model.
type ModelBinding struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// RateLimitConfig is the sliding-window shaping applied per provider.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// CacheConfig controls the two-tier response cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	Backend    string `yaml:"backend"` // "memory" (default) or "redis"
	RedisAddr  string `yaml:"redis_addr,omitempty"`
	DiskDir    string `yaml:"disk_dir,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig controls the Artifact & History Store.
type StoreConfig struct {
	RootDir      string `yaml:"root_dir"`
	SQLiteIndex  bool   `yaml:"sqlite_index"`
	RedisMirror  bool   `yaml:"redis_mirror"`
	RedisAddr    string `yaml:"redis_addr,omitempty"`
}

// Config is the top-level configuration document.
type Config struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Models     map[string]ModelBinding   `yaml:"models"`
	RateLimits RateLimitConfig           `yaml:"rate_limits"`
	Cache      CacheConfig               `yaml:"cache"`
	Logging    LoggingConfig             `yaml:"logging"`
	Store      StoreConfig               `yaml:"store"`
}

// Default returns the built-in configuration baseline.
func Default() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"openai":    {Tokenizer: "cl100k_base"},
			"anthropic": {Tokenizer: "claude"},
			"ollama":    {Endpoint: "http://localhost:11434", Tokenizer: "approx"},
		},
		Models: map[string]ModelBinding{
			"gpt-4o":            {Provider: "openai", Model: "gpt-4o"},
			"gpt-4o-mini":       {Provider: "openai", Model: "gpt-4o-mini"},
			"claude-3-5-sonnet": {Provider: "anthropic", Model: "claude-3-5-sonnet-latest"},
			"claude-3-5-haiku":  {Provider: "anthropic", Model: "claude-3-5-haiku-latest"},
			"llama3":            {Provider: "ollama", Model: "llama3"},
		},
		RateLimits: RateLimitConfig{RequestsPerMinute: 60},
		Cache:      CacheConfig{Enabled: true, TTLSeconds: 86400, Backend: "memory", DiskDir: ".studio-cache"},
		Logging:    LoggingConfig{Level: "info"},
		Store:      StoreConfig{RootDir: ".studio-store", SQLiteIndex: true},
	}
}

// Load reads defaults, then overlays a YAML file at path (if path is
// non-empty and exists), then overlays environment variables. Only a
// fixed set of STUDIO_<DOTTED_PATH> variables is read:
// STUDIO_RATE_LIMITS_REQUESTS_PER_MINUTE, STUDIO_CACHE_ENABLED,
// STUDIO_CACHE_TTL_SECONDS, STUDIO_CACHE_BACKEND, STUDIO_LOGGING_LEVEL
// and STUDIO_STORE_ROOT_DIR. Provider settings come only from
// OPENAI_API_KEY, ANTHROPIC_API_KEY and OLLAMA_BASE_URL; no other
// path, including providers.* and models.*, is read from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STUDIO_RATE_LIMITS_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimits.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("STUDIO_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("STUDIO_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("STUDIO_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("STUDIO_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STUDIO_STORE_ROOT_DIR"); v != "" {
		cfg.Store.RootDir = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		p := cfg.Providers["openai"]
		p.APIKey = v
		cfg.Providers["openai"] = p
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		p := cfg.Providers["anthropic"]
		p.APIKey = v
		cfg.Providers["anthropic"] = p
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		p := cfg.Providers["ollama"]
		p.Endpoint = v
		cfg.Providers["ollama"] = p
	}
}

// Resolve maps a closed target_lm identifier through Models to a
// (provider, model) pair. Unknown identifiers are the caller's problem
// to classify (the orchestrator's register_target_lm step turns this
// into a failed result with error_type invalid_format).
func (c *Config) Resolve(targetLM string) (ModelBinding, bool) {
	b, ok := c.Models[targetLM]
	return b, ok
}

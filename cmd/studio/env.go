package main

import (
	"context"
	"time"

	"github.com/kazkozdev/promptstudio/cache"
	"github.com/kazkozdev/promptstudio/config"
	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/logging"
	"github.com/kazkozdev/promptstudio/metrics"
	"github.com/kazkozdev/promptstudio/provider"
	"github.com/kazkozdev/promptstudio/store"
	"github.com/kazkozdev/promptstudio/telemetry"
)

// env bundles everything a subcommand needs, built once per invocation
// from the resolved configuration document (spec.md §6.4).
type env struct {
	cfg      *config.Config
	logger   core.ComponentAwareLogger
	telem    core.Telemetry
	shutdown func(context.Context) error
	registry *provider.Registry
	scorers  *metrics.Registry
	store    *store.Store
	respCache cache.Cache
}

func buildEnv(cfgPath string) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New()
	telem, shutdown, err := telemetry.New(telemetry.WithServiceName("promptstudio"))
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry(logger)
	registry.MustRegister(provider.NewOpenAIFactory())
	registry.MustRegister(provider.NewAnthropicFactory())
	registry.MustRegister(provider.NewOllamaFactory())

	scorers := metrics.NewDefaultRegistry()

	st, err := store.New(cfg.Store.RootDir)
	if err != nil {
		return nil, err
	}
	if cfg.Store.SQLiteIndex {
		idx, err := store.NewSQLiteIndex(cfg.Store.RootDir)
		if err == nil {
			st = st.WithSecondaryIndex(idx)
		} else {
			logger.Warn("failed to open sqlite secondary index, continuing without it", map[string]interface{}{"error": err.Error()})
		}
	}

	var respCache cache.Cache
	if cfg.Cache.Enabled {
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		var second cache.SecondTier
		switch cfg.Cache.Backend {
		case "redis":
			second = cache.NewRedisTier(cfg.Cache.RedisAddr, ttl)
		default:
			if cfg.Cache.DiskDir != "" {
				second = cache.NewDisk(cfg.Cache.DiskDir, ttl)
			}
		}
		respCache = cache.NewTwoTier(10_000, ttl, second)
	}

	return &env{
		cfg: cfg, logger: logger, telem: telem, shutdown: shutdown,
		registry: registry, scorers: scorers, store: st, respCache: respCache,
	}, nil
}

// resolveProvider builds the Provider for targetLM straight from its
// registered factory. The result is not wrapped in a provider.Mediator,
// so no response cache, rate limiter or Mediator retry sits in front of it.
func (e *env) resolveProvider(targetLM provider.TargetLM) (provider.Provider, error) {
	binding, err := provider.Resolve(e.cfg, targetLM)
	if err != nil {
		return nil, err
	}
	factory, ok := e.registry.Get(binding.Provider)
	if !ok {
		return nil, providerNotRegisteredError(binding.Provider)
	}
	pc := provider.ConfigFor(e.cfg, binding)
	p, err := factory.Create(pc)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func providerNotRegisteredError(name string) error {
	return core.NewStudioErrorID("resolveProvider", "validation", name, errProviderNotRegistered{name: name})
}

type errProviderNotRegistered struct{ name string }

func (e errProviderNotRegistered) Error() string { return "provider not registered: " + e.name }

package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kazkozdev/promptstudio/core"
)

// Factory builds a Provider and reports whether it can be used given
// the current environment (API keys, local endpoints).
type Factory interface {
	Create(cfg Config) (Provider, error)
	DetectEnvironment() (priority int, available bool)
	Name() string
	Description() string
}

// Registry holds registered provider factories and auto-detects the
// best available one, mirroring ai/registry.go's detectBestProvider.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    core.Logger
}

// NewRegistry builds an empty registry. Pass core.NoOpLogger{} for
// silent operation.
func NewRegistry(logger core.Logger) *Registry {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Registry{factories: make(map[string]Factory), logger: logger}
}

func (r *Registry) Register(f Factory) error {
	if f == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	name := f.Name()
	if name == "" {
		return fmt.Errorf("factory.Name() cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

func (r *Registry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(fmt.Sprintf("provider registry: %v", err))
	}
}

func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

type candidate struct {
	name     string
	priority int
}

// DetectBest selects the highest-priority available provider across
// all registered factories.
func (r *Registry) DetectBest() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []candidate
	for name, f := range r.factories {
		priority, available := f.DetectEnvironment()
		if available {
			candidates = append(candidates, candidate{name: name, priority: priority})
		}
	}
	if len(candidates) == 0 {
		r.logger.Error("no AI provider detected in environment", map[string]interface{}{
			"checked_providers": len(r.factories),
			"suggestion":        "set OPENAI_API_KEY, ANTHROPIC_API_KEY, or OLLAMA_BASE_URL",
		})
		return "", fmt.Errorf("no provider detected in environment")
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].priority > candidates[j].priority })
	selected := candidates[0].name
	r.logger.Info("AI provider selected", map[string]interface{}{
		"selected_provider": selected,
		"total_candidates":  len(candidates),
	})
	return selected, nil
}

// Names lists registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

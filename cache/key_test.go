package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsStableAndDeterministic(t *testing.T) {
	p := KeyParams{Provider: "openai", Model: "gpt-4o-mini", Prompt: "hello", Temperature: 0.1, TopP: 0.9, MaxTokens: 512}
	assert.Equal(t, Key(p), Key(p))
	assert.Len(t, Key(p), 64, "sha256 hex digest is 64 chars")
}

func TestKeyDiffersOnEachField(t *testing.T) {
	base := KeyParams{Provider: "openai", Model: "gpt-4o-mini", Prompt: "hello", Temperature: 0.1, TopP: 0.9, MaxTokens: 512}
	variants := []KeyParams{
		{Provider: "anthropic", Model: base.Model, Prompt: base.Prompt, Temperature: base.Temperature, TopP: base.TopP, MaxTokens: base.MaxTokens},
		{Provider: base.Provider, Model: "claude-3-5-sonnet", Prompt: base.Prompt, Temperature: base.Temperature, TopP: base.TopP, MaxTokens: base.MaxTokens},
		{Provider: base.Provider, Model: base.Model, Prompt: "goodbye", Temperature: base.Temperature, TopP: base.TopP, MaxTokens: base.MaxTokens},
		{Provider: base.Provider, Model: base.Model, Prompt: base.Prompt, Temperature: 0.9, TopP: base.TopP, MaxTokens: base.MaxTokens},
		{Provider: base.Provider, Model: base.Model, Prompt: base.Prompt, Temperature: base.Temperature, TopP: 0.5, MaxTokens: base.MaxTokens},
		{Provider: base.Provider, Model: base.Model, Prompt: base.Prompt, Temperature: base.Temperature, TopP: base.TopP, MaxTokens: 128},
	}
	baseKey := Key(base)
	for i, v := range variants {
		assert.NotEqual(t, baseKey, Key(v), "variant %d should produce a different key", i)
	}
}

func TestKeyStopListOrderIndependence(t *testing.T) {
	a := KeyParams{Provider: "openai", Model: "m", Prompt: "p", MaxTokens: 1, Stop: []string{"END", "STOP"}}
	b := KeyParams{Provider: "openai", Model: "m", Prompt: "p", MaxTokens: 1, Stop: []string{"STOP", "END"}}
	assert.Equal(t, Key(a), Key(b), "stop list is sorted before hashing, so order shouldn't matter")
}

func TestKeySeedParticipates(t *testing.T) {
	seed1 := int64(1)
	seed2 := int64(2)
	a := KeyParams{Provider: "openai", Model: "m", Prompt: "p", MaxTokens: 1, Seed: &seed1}
	b := KeyParams{Provider: "openai", Model: "m", Prompt: "p", MaxTokens: 1, Seed: &seed2}
	c := KeyParams{Provider: "openai", Model: "m", Prompt: "p", MaxTokens: 1}
	assert.NotEqual(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(c))
}

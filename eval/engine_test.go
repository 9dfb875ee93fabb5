package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/metrics"
	"github.com/kazkozdev/promptstudio/provider"
)

// scriptedProvider returns a canned response per call, optionally keyed
// by prompt text via responseFor; falls back to a fixed default.
type scriptedProvider struct {
	responseFor map[string]string
	defaultResp string
	err         error
	calls       int
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Complete(ctx context.Context, prompt string, params provider.Params) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if p.responseFor != nil {
		if r, ok := p.responseFor[prompt]; ok {
			return r, nil
		}
	}
	return p.defaultResp, nil
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []provider.Message, params provider.Params) (string, error) {
	return p.Complete(ctx, "", params)
}

func (p *scriptedProvider) CountTokens(text string) int { return len(text) / 4 }
func (p *scriptedProvider) EstimateCost(in, out int) float64 { return 0 }

func testDataset() core.Dataset {
	return core.Dataset{
		ID:   "ds1",
		Name: "test-dataset",
		Examples: []core.Example{
			{Input: map[string]interface{}{"text": "2+2"}, Expected: "4"},
			{Input: map[string]interface{}{"text": "3+3"}, Expected: "6"},
		},
	}
}

func TestRenderPromptSubstitutesFields(t *testing.T) {
	out := renderPrompt("Answer this: {text}", core.Example{Input: map[string]interface{}{"text": "2+2"}})
	assert.Equal(t, "Answer this: 2+2", out)
}

func TestRenderPromptLeavesUnknownPlaceholders(t *testing.T) {
	out := renderPrompt("Answer: {text} in {context}", core.Example{Input: map[string]interface{}{"text": "2+2"}})
	assert.Equal(t, "Answer: 2+2 in {context}", out)
}

func TestEvaluateReferenceBasedScoresEachCase(t *testing.T) {
	p := &scriptedProvider{defaultResp: "4"}
	e := New(p, metrics.NewDefaultRegistry(), DefaultConfig(), nil, nil)

	run, err := e.EvaluateReferenceBased(context.Background(), "prompt1", "Answer: {text}", testDataset())
	require.NoError(t, err)
	assert.Equal(t, 2, len(run.PerCase))
	assert.Equal(t, 0, run.ErroredCases)
	assert.Contains(t, run.Metrics, "exact_match")
	// First case ("4" expected, got "4") matches; second ("6" expected, got "4") doesn't.
	assert.InDelta(t, 0.5, run.Metrics["exact_match"], 1e-9)
}

func TestEvaluateReferenceBasedReportsFullDistributionPerMetric(t *testing.T) {
	p := &scriptedProvider{defaultResp: "4"}
	e := New(p, metrics.NewDefaultRegistry(), DefaultConfig(), nil, nil)

	run, err := e.EvaluateReferenceBased(context.Background(), "prompt1", "Answer: {text}", testDataset())
	require.NoError(t, err)
	for _, suffix := range []string{"_median", "_p95", "_min", "_max"} {
		assert.Contains(t, run.Metrics, "exact_match"+suffix)
	}
	// n=2, values {1, 0}: min=0, max=1.
	assert.Equal(t, 0.0, run.Metrics["exact_match_min"])
	assert.Equal(t, 1.0, run.Metrics["exact_match_max"])
}

func TestEvaluateReferenceBasedEmptyDataset(t *testing.T) {
	p := &scriptedProvider{defaultResp: "x"}
	e := New(p, metrics.NewDefaultRegistry(), DefaultConfig(), nil, nil)

	run, err := e.EvaluateReferenceBased(context.Background(), "p", "prompt", core.Dataset{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, run.PerCase)
	assert.NotEmpty(t, run.RunID)
}

func TestEvaluateReferenceBasedRecordsProviderErrors(t *testing.T) {
	p := &scriptedProvider{err: core.ErrConnectionFailed}
	e := New(p, metrics.NewDefaultRegistry(), DefaultConfig(), nil, nil)

	run, err := e.EvaluateReferenceBased(context.Background(), "p", "prompt: {text}", testDataset())
	require.NoError(t, err)
	assert.Equal(t, 2, run.ErroredCases)
	for _, pc := range run.PerCase {
		assert.Equal(t, "provider_transient", pc.Error)
	}
}

func TestNewAppliesDefaultConfigWhenInvalid(t *testing.T) {
	e := New(&scriptedProvider{}, metrics.NewRegistry(), Config{}, nil, nil)
	assert.Equal(t, DefaultConfig().Parallelism, e.cfg.Parallelism)
}

func TestClassifyCaseError(t *testing.T) {
	assert.Equal(t, "provider_transient", classifyCaseError(core.ErrTimeout))
	assert.Equal(t, "provider_permanent", classifyCaseError(core.ErrValidation))
}

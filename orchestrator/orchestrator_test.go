package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazkozdev/promptstudio/config"
	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/metrics"
	"github.com/kazkozdev/promptstudio/provider"
	"github.com/kazkozdev/promptstudio/store"
)

// stubOrchFactory hands back a fixed scriptedOrchProvider regardless of
// the requested provider.Config, so Invoke's Phase 2 LM binding has
// something to resolve against without touching a real API.
type stubOrchFactory struct {
	name string
	resp string
	err  error
}

func (f *stubOrchFactory) Create(cfg provider.Config) (provider.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &scriptedOrchProvider{defaultResp: f.resp}, nil
}
func (f *stubOrchFactory) DetectEnvironment() (int, bool) { return 1, true }
func (f *stubOrchFactory) Name() string                  { return f.name }
func (f *stubOrchFactory) Description() string            { return "stub" }

func classificationDataset() core.Dataset {
	return core.Dataset{
		ID:   "support-tickets",
		Seed: 1,
		Examples: []core.Example{
			{Input: map[string]interface{}{"text": "my card was charged twice"}, Expected: "billing"},
			{Input: map[string]interface{}{"text": "the app crashes on login"}, Expected: "bug"},
			{Input: map[string]interface{}{"text": "please refund my order"}, Expected: "billing"},
			{Input: map[string]interface{}{"text": "feature request: dark mode"}, Expected: "feature"},
		},
	}
}

func newTestOrchestrator(t *testing.T, resp string) *Orchestrator {
	t.Helper()
	registry := provider.NewRegistry(nil)
	require.NoError(t, registry.Register(&stubOrchFactory{name: "openai", resp: resp}))
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(registry, config.Default(), metrics.NewDefaultRegistry(), st, nil, nil, nil)
}

func TestInvokeRejectsEmptyDataset(t *testing.T) {
	o := newTestOrchestrator(t, "billing")
	result := o.Invoke(context.Background(), Request{
		BusinessTask: "Classify customer support tickets",
		TargetLM:     provider.TargetGPT4oMini,
		Dataset:      core.Dataset{},
	}, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "failure", result.Status)
	assert.Equal(t, ErrorInvalidFormat, result.ErrorType)
}

func TestInvokeFailsWhenTargetLMHasNoRegisteredFactory(t *testing.T) {
	registry := provider.NewRegistry(nil)
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	o := New(registry, config.Default(), metrics.NewDefaultRegistry(), st, nil, nil, nil)

	result := o.Invoke(context.Background(), Request{
		BusinessTask: "Classify customer support tickets",
		TargetLM:     provider.TargetGPT4oMini,
		Dataset:      classificationDataset(),
	}, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "failure", result.Status)
}

func TestInvokeFailsWhenTargetLMUnknown(t *testing.T) {
	o := newTestOrchestrator(t, "billing")
	result := o.Invoke(context.Background(), Request{
		BusinessTask: "Classify customer support tickets",
		TargetLM:     provider.TargetLM("not-a-real-target"),
		Dataset:      classificationDataset(),
	}, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "failure", result.Status)
}

func TestInvokeSucceedsEndToEnd(t *testing.T) {
	o := newTestOrchestrator(t, "billing")
	result := o.Invoke(context.Background(), Request{
		BusinessTask:  "Classify customer support tickets by category",
		TargetLM:      provider.TargetGPT4oMini,
		Dataset:       classificationDataset(),
		MaxIterations: 3,
	}, nil)

	require.Equal(t, "success", result.Status)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ArtifactID)
	assert.Equal(t, TaskClassification, result.TaskAnalysis.TaskType)
	assert.NotEmpty(t, result.Steps)

	loaded, err := o.st.LoadArtifact(result.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, result.ArtifactID, loaded.Metadata.ArtifactVersionID)
}

func TestInvokeStepsCoverValidateDatasetAndScoreCandidateConfig(t *testing.T) {
	o := newTestOrchestrator(t, "billing")
	result := o.Invoke(context.Background(), Request{
		BusinessTask:  "Classify customer support tickets by category",
		TargetLM:      provider.TargetGPT4oMini,
		Dataset:       classificationDataset(),
		MaxIterations: 3,
	}, nil)
	require.Equal(t, "success", result.Status)

	seen := map[string]int{}
	for _, s := range result.Steps {
		seen[s.Tool]++
	}
	assert.NotZero(t, seen[string(ToolValidateDataset)], "validate_dataset should be its own Step")
	assert.NotZero(t, seen[string(ToolScoreCandidateConfig)], "score_candidate_config should be its own Step per scored candidate")
}

func TestInvokeStreamsStepsWhenBufferProvided(t *testing.T) {
	o := newTestOrchestrator(t, "billing")
	buf := newStepBuffer(64)

	done := make(chan Result, 1)
	go func() {
		done <- o.Invoke(context.Background(), Request{
			BusinessTask:  "Classify customer support tickets",
			TargetLM:      provider.TargetGPT4oMini,
			Dataset:       classificationDataset(),
			MaxIterations: 3,
		}, buf)
	}()

	result := <-done
	buf.close()
	var seen []core.Step
	for s := range buf.Steps() {
		seen = append(seen, s)
	}
	require.Equal(t, "success", result.Status)
	assert.Equal(t, len(result.Steps)*2, len(seen)) // each step publishes twice: running, then final
}

func TestInvokeBudgetExhaustedWhenMetricNeverClearsThreshold(t *testing.T) {
	o := newTestOrchestrator(t, "nonsense output that never matches")
	result := o.Invoke(context.Background(), Request{
		BusinessTask:  "Classify customer support tickets",
		TargetLM:      provider.TargetGPT4oMini,
		Dataset:       classificationDataset(),
		MaxIterations: 2,
	}, nil)
	assert.False(t, result.Success)
	assert.Contains(t, []string{"budget_exhausted", "failure"}, result.Status)
}

func TestInvokeRespectsMaxWallTimeCancellation(t *testing.T) {
	o := newTestOrchestrator(t, "billing")
	result := o.Invoke(context.Background(), Request{
		BusinessTask:  "Classify customer support tickets",
		TargetLM:      provider.TargetGPT4oMini,
		Dataset:       classificationDataset(),
		MaxIterations: 20,
		MaxWallTime:   time.Nanosecond,
	}, nil)
	assert.False(t, result.Success)
}

func TestApplyFixSignatureAddsInputField(t *testing.T) {
	spec := core.ProgramSpec{}
	sig := core.Signature{}
	cfg := CompilerConfig{}
	applyFix(ProposedFix{Action: FixSignature, Parameters: map[string]interface{}{"add_input_field": "context"}}, &spec, &sig, &cfg)
	require.Len(t, sig.Inputs, 1)
	assert.Equal(t, "context", sig.Inputs[0].Name)
}

func TestApplyFixAdjustOptimOverridesStrategyAndCandidates(t *testing.T) {
	spec := core.ProgramSpec{}
	sig := core.Signature{}
	cfg := CompilerConfig{Optimizer: OptimizerCOPRO, MaxCandidates: 4}
	applyFix(ProposedFix{Action: FixAdjustOptim, Parameters: map[string]interface{}{"strategy": "bootstrap_fewshot", "max_candidates": 9}}, &spec, &sig, &cfg)
	assert.Equal(t, OptimizerKind("bootstrap_fewshot"), cfg.Optimizer)
	assert.Equal(t, 9, cfg.MaxCandidates)
}

func TestApplyFixAddTacticAppendsModuleAfterTerminal(t *testing.T) {
	spec := core.ProgramSpec{Modules: []core.Module{{Name: "predict", Kind: core.ModulePredict}}}
	sig := core.Signature{}
	cfg := CompilerConfig{}
	applyFix(ProposedFix{Action: FixAddTactic, Parameters: map[string]interface{}{"kind": core.ModuleChainOfThought}}, &spec, &sig, &cfg)
	require.Len(t, spec.Modules, 2)
	assert.Equal(t, core.ModuleChainOfThought, spec.Modules[1].Kind)
}

func TestDatasetFieldNamesEmptyDatasetIsNil(t *testing.T) {
	assert.Nil(t, datasetFieldNames(core.Dataset{}))
}

func TestDatasetFieldNamesCollectsUniqueKeysFromFirstExample(t *testing.T) {
	ds := core.Dataset{Examples: []core.Example{{Input: map[string]interface{}{"text": "x", "context": "y"}}}}
	names := datasetFieldNames(ds)
	assert.ElementsMatch(t, []string{"text", "context"}, names)
}

func TestSignatureFieldNamesExtractsInputNames(t *testing.T) {
	sig := core.Signature{Inputs: []core.Field{{Name: "text"}, {Name: "context"}}}
	assert.Equal(t, []string{"text", "context"}, signatureFieldNames(sig))
}

func TestRenderProgramPromptIncludesContextWhenSignatureHasIt(t *testing.T) {
	sig := core.Signature{Inputs: []core.Field{{Name: "context"}}}
	analysis := TaskAnalysis{TaskType: TaskRAG, Domain: "general", Flags: TaskFlags{NeedsChainOfThought: true}}
	out := renderProgramPrompt(core.ProgramSpec{}, sig, analysis)
	assert.Contains(t, out, "Context: {context}")
	assert.Contains(t, out, "step by step")
}

func TestRenderProgramPromptOmitsContextWhenSignatureLacksIt(t *testing.T) {
	analysis := TaskAnalysis{TaskType: TaskClassification, Domain: "general"}
	out := renderProgramPrompt(core.ProgramSpec{}, core.Signature{}, analysis)
	assert.NotContains(t, out, "Context:")
	assert.Contains(t, out, "Input: {text}")
}

func TestExecutionLevelsOfMatchesLinearSpec(t *testing.T) {
	spec := linearSpec()
	levels := executionLevelsOf(spec)
	assert.Len(t, levels, 2)
}

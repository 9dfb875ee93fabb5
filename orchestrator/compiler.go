package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/eval"
)

// CompilerStatus is run_compilation's terminal outcome.
type CompilerStatus string

const (
	CompileSuccess CompilerStatus = "success"
	CompileFailure CompilerStatus = "failure"
)

// CompilerConfig binds an optimizer kind, its parameters, and the
// target metric, per spec.md §4.1 Phase 5's configure_compiler.
type CompilerConfig struct {
	Optimizer     OptimizerKind
	MaxCandidates int
	MetricName    string
	Threshold     float64
}

// selectCompilerStrategy implements select_compiler_strategy: pick an
// optimizer kind and starting parameters from task type, complexity,
// dataset size, and quality profile.
func selectCompilerStrategy(taskType TaskType, complexity Complexity, datasetSize int, profile QualityProfile) CompilerConfig {
	cfg := CompilerConfig{Optimizer: OptimizerBootstrapFewShot, MaxCandidates: 8, MetricName: defaultMetricFor(taskType), Threshold: 0.7}

	switch {
	case datasetSize < 10:
		cfg.Optimizer = OptimizerBootstrapFewShot
		cfg.MaxCandidates = datasetSize
	case complexity == ComplexityHigh && profile == ProfileHighQuality:
		cfg.Optimizer = OptimizerMIPROv2
		cfg.MaxCandidates = 16
	case complexity == ComplexityHigh:
		cfg.Optimizer = OptimizerBootstrapFewShotRandom
		cfg.MaxCandidates = 12
	case profile == ProfileFastCheap:
		cfg.Optimizer = OptimizerBootstrapFewShot
		cfg.MaxCandidates = 4
	default:
		cfg.Optimizer = OptimizerCOPRO
		cfg.MaxCandidates = 8
	}
	return cfg
}

// configureCompiler implements configure_compiler: bind optimizer
// parameters and the success threshold explicitly, overriding the
// strategy's defaults where the caller supplies them.
func configureCompiler(base CompilerConfig, maxCandidates int, threshold float64) CompilerConfig {
	if maxCandidates > 0 {
		base.MaxCandidates = maxCandidates
	}
	if threshold > 0 {
		base.Threshold = threshold
	}
	return base
}

// CompilationResult is run_compilation's output.
type CompilationResult struct {
	Compiled    core.CompiledProgram
	EvalResults core.EvaluationRun
	Status      CompilerStatus
	ErrorLog    string
}

// scoreCandidateConfig implements score_candidate_config: evaluate one
// bootstrapped-demo candidate against the dev split and report its
// target metric and output-token cost. run_compilation calls this once
// per candidate it considers.
func scoreCandidateConfig(ctx context.Context, engine *eval.Engine, promptID, promptText string, demos, devSplit []core.Example, metricName string) (core.EvaluationRun, float64, int, error) {
	devDataset := core.Dataset{ID: "dev_split", Examples: devSplit}
	run, err := engine.EvaluateReferenceBased(ctx, promptID, withDemos(promptText, demos), devDataset)
	if err != nil {
		return core.EvaluationRun{}, 0, 0, err
	}
	return run, run.Metrics[metricName], outputTokenEstimate(run), nil
}

// runCompilation implements run_compilation: for every demo-set
// candidate up to MaxCandidates, score it via score_candidate_config and
// retain the highest-scoring configuration, tie-broken by lowest
// output-token count then earliest discovery order, per spec.md §4.1
// Phase 5's optimizer semantics. onCandidate, if non-nil, is invoked
// once per successfully scored candidate so the caller can surface it
// as its own Step (nil is fine when no Step trail is wanted, e.g. in
// tests).
func runCompilation(ctx context.Context, engine *eval.Engine, promptID, promptText string, trainSplit, devSplit []core.Example, cfg CompilerConfig, onCandidate func(order int, metric float64, tokenCount int)) CompilationResult {
	if len(devSplit) == 0 {
		return CompilationResult{Status: CompileFailure, ErrorLog: "optimizer: dev split is empty, cannot score any candidate"}
	}

	maxCandidates := cfg.MaxCandidates
	if maxCandidates < 1 {
		maxCandidates = 1
	}
	if maxCandidates > len(trainSplit)+1 {
		maxCandidates = len(trainSplit) + 1
	}

	type candidate struct {
		demos      []core.Example
		run        core.EvaluationRun
		metric     float64
		tokenCount int
		order      int
	}

	var candidates []candidate
	for k := 0; k < maxCandidates && k <= len(trainSplit); k++ {
		demos := bootstrapDemos(trainSplit, k)
		run, metric, tokenCount, err := scoreCandidateConfig(ctx, engine, promptID, promptText, demos, devSplit, cfg.MetricName)
		if err != nil {
			continue
		}
		if onCandidate != nil {
			onCandidate(k, metric, tokenCount)
		}
		candidates = append(candidates, candidate{
			demos:      demos,
			run:        run,
			metric:     metric,
			tokenCount: tokenCount,
			order:      k,
		})
	}

	if len(candidates) == 0 {
		return CompilationResult{Status: CompileFailure, ErrorLog: "optimizer: every candidate evaluation failed"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].metric != candidates[j].metric {
			return candidates[i].metric > candidates[j].metric
		}
		if candidates[i].tokenCount != candidates[j].tokenCount {
			return candidates[i].tokenCount < candidates[j].tokenCount
		}
		return candidates[i].order < candidates[j].order
	})
	best := candidates[0]

	compiled := core.CompiledProgram{
		ID:              fmt.Sprintf("compiled_%s", promptID),
		Demos:           best.demos,
		OptimizerConfig: map[string]interface{}{"optimizer": string(cfg.Optimizer), "max_candidates": cfg.MaxCandidates},
		MeasuredMetric:  best.metric,
	}

	status := CompileFailure
	errorLog := ""
	if best.metric >= cfg.Threshold {
		status = CompileSuccess
	} else {
		errorLog = fmt.Sprintf("low_metric: best candidate scored %.4f against threshold %.4f", best.metric, cfg.Threshold)
	}

	return CompilationResult{Compiled: compiled, EvalResults: best.run, Status: status, ErrorLog: errorLog}
}

// bootstrapDemos picks the first k train examples as few-shot
// demonstrations — BootstrapFewShot's simplest candidate generator.
// Randomized variants (...WithRandomSearch) would reseed this
// selection; kept deterministic here so compilation is reproducible
// per spec.md §8's replay invariant.
func bootstrapDemos(train []core.Example, k int) []core.Example {
	if k <= 0 || k > len(train) {
		if k > len(train) {
			k = len(train)
		} else {
			return nil
		}
	}
	return append([]core.Example(nil), train[:k]...)
}

// withDemos renders demonstrations ahead of the prompt template, the
// textual form of "seeding few-shot context" (GLOSSARY: Demonstration).
func withDemos(promptText string, demos []core.Example) string {
	if len(demos) == 0 {
		return promptText
	}
	out := ""
	for _, d := range demos {
		out += fmt.Sprintf("Example input: %s\nExample output: %v\n\n", d.Text(), d.Expected)
	}
	return out + promptText
}

func outputTokenEstimate(run core.EvaluationRun) int {
	total := 0
	for _, pc := range run.PerCase {
		total += len(pc.Prediction) / 4 // character-based approximation, consistent with provider.CountTokens
	}
	return total
}

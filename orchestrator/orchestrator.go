package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kazkozdev/promptstudio/cache"
	"github.com/kazkozdev/promptstudio/config"
	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/eval"
	"github.com/kazkozdev/promptstudio/metrics"
	"github.com/kazkozdev/promptstudio/provider"
	"github.com/kazkozdev/promptstudio/ratelimit"
	"github.com/kazkozdev/promptstudio/store"
)

// Request is orchestrate's sole input, per spec.md §4.1's public
// contract.
type Request struct {
	BusinessTask     string
	TargetLM         provider.TargetLM
	Dataset          core.Dataset
	QualityProfile   QualityProfile
	OptimizerStrategy OptimizerKind // empty means AUTO: select_compiler_strategy decides
	MaxIterations    int            // default 20
	MaxWallTime      time.Duration  // default 300s
}

// Result is orchestrate's output.
type Result struct {
	Success      bool
	ArtifactID   string
	ProgramCode  core.ProgramSpec
	TaskAnalysis TaskAnalysis
	EvalResults  core.EvaluationRun
	Steps        []core.Step
	TotalCost    float64
	Status       string // "success" | "budget_exhausted" | "failure"
	ErrorType    ErrorType
}

// Orchestrator ties the Provider Abstraction, Evaluation Engine, and
// Store behind the Reason->Act->Observe loop of spec.md §4.1.
type Orchestrator struct {
	registry *provider.Registry
	cfg      *config.Config
	scorers  *metrics.Registry
	st       *store.Store
	logger   core.Logger
	telem    core.Telemetry
	respCache cache.Cache // shared two-tier cache every resolved Provider is mediated through
}

// New builds an Orchestrator. logger/telem/respCache may be nil
// (respCache nil disables response caching for this instance).
func New(registry *provider.Registry, cfg *config.Config, scorers *metrics.Registry, st *store.Store, respCache cache.Cache, logger core.Logger, telem core.Telemetry) *Orchestrator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if telem == nil {
		telem = core.NoOpTelemetry{}
	}
	return &Orchestrator{registry: registry, cfg: cfg, scorers: scorers, st: st, respCache: respCache, logger: logger, telem: telem}
}

// Invoke runs the six-phase pipeline. Passing a non-nil streamTo lets
// the caller observe Step events as they're emitted (spec.md §4.1.6);
// pass nil to run without streaming.
func (o *Orchestrator) Invoke(ctx context.Context, req Request, streamTo *stepBuffer) Result {
	if req.MaxIterations <= 0 {
		req.MaxIterations = 20
	}
	if req.MaxWallTime <= 0 {
		req.MaxWallTime = 300 * time.Second
	}
	if req.QualityProfile == "" {
		req.QualityProfile = ProfileBalanced
	}

	ctx, cancel := context.WithTimeout(ctx, req.MaxWallTime)
	defer cancel()

	sess := &SessionState{BusinessTask: req.BusinessTask, TargetLM: string(req.TargetLM), IterationCount: 0}
	var steps []core.Step
	ordinal := 0
	run := func(tool ToolName, fn func() (string, error)) core.Step {
		ordinal++
		step := newStep(ordinal, tool)
		step.Status = core.StepRunning
		streamTo.publish(step)
		step = timed(step, fn)
		streamTo.publish(step)
		steps = append(steps, step)
		return step
	}

	validateStep := run(ToolValidateDataset, func() (string, error) {
		if err := req.Dataset.Validate(); err != nil {
			return "", err
		}
		if len(req.Dataset.Examples) == 0 {
			return "", fmt.Errorf("validate_dataset: dataset has no examples")
		}
		return fmt.Sprintf("%d examples", len(req.Dataset.Examples)), nil
	})
	if validateStep.Status == core.StepError {
		return Result{Success: false, Status: "failure", ErrorType: ErrorInvalidFormat, Steps: steps}
	}

	// Phase 1 — task analysis.
	var analysis TaskAnalysis
	run(ToolAnalyzeBusinessGoal, func() (string, error) {
		a, err := analyzeBusinessGoal(ctx, req.BusinessTask, nil)
		analysis = a
		sess.TaskAnalysis = &a
		return string(a.TaskType), err
	})

	// Phase 2 — LM binding.
	var lm provider.Provider
	step := run(ToolRegisterTargetLM, func() (string, error) {
		binding, err := provider.Resolve(o.cfg, req.TargetLM)
		if err != nil {
			return "", err
		}
		factory, ok := o.registry.Get(binding.Provider)
		if !ok {
			return "", fmt.Errorf("register_target_lm: no registered factory for provider %q", binding.Provider)
		}
		pc := provider.ConfigFor(o.cfg, binding)
		p, err := factory.Create(pc)
		if err != nil {
			return "", err
		}
		limiter := ratelimit.NewLimiter(o.cfg.RateLimits.RequestsPerMinute)
		lm = provider.NewMediator(p, o.respCache, limiter, o.logger, o.telem)
		return binding.Provider + "/" + binding.Model, nil
	})
	if step.Status == core.StepError {
		return Result{Success: false, Status: "failure", ErrorType: ErrorInvalidFormat, TaskAnalysis: analysis, Steps: steps}
	}

	params := profileTable[req.QualityProfile]
	run(ToolConfigureLMProfile, func() (string, error) {
		return fmt.Sprintf("temperature=%.2f max_tokens=%d top_p=%.2f", params.Temperature, params.MaxTokens, params.TopP), nil
	})

	// Phase 3 — signature + program construction.
	var sig core.Signature
	run(ToolDefineContractSig, func() (string, error) {
		sig = defineContractSignature(analysis)
		sess.CurrentSignature = &sig
		return sig.ID, nil
	})

	var spec core.ProgramSpec
	run(ToolAssembleProgramPipe, func() (string, error) {
		spec = assembleStarterPipeline(analysis.TaskType, analysis.Flags, analysis.Complexity)
		sess.CurrentSpec = &spec
		return fmt.Sprintf("%d modules", len(spec.Modules)), nil
	})

	finalizeStep := run(ToolFinalizeProgramAssembly, func() (string, error) {
		if err := validateDAG(spec); err != nil {
			return "", err
		}
		return "program assembly valid", nil
	})
	if finalizeStep.Status == core.StepError {
		return Result{Success: false, Status: "failure", ErrorType: ErrorSignatureMismatch, TaskAnalysis: analysis, ProgramCode: spec, Steps: steps}
	}

	// Phase 4 — eval setup.
	run(ToolLoadEvalData, func() (string, error) {
		return fmt.Sprintf("%d examples", len(req.Dataset.Examples)), nil
	})

	var split core.Split
	run(ToolPrepareEvalSplits, func() (string, error) {
		split = prepareEvalSplits(req.Dataset, SplitRandom, 0.6, 0.2, 0.2, req.Dataset.Seed)
		return fmt.Sprintf("train=%d dev=%d test=%d", len(split.Train), len(split.Dev), len(split.Test)), nil
	})

	metricName := defaultMetricFor(analysis.TaskType)
	run(ToolSetEvaluationMetric, func() (string, error) {
		metricName = defaultMetricFor(analysis.TaskType)
		return metricName, nil
	})

	engine := eval.New(lm, o.scorers, eval.DefaultConfig(), o.logger, o.telem)

	// Phase 5 — compilation, with Phase 6 self-correction on failure.
	var compilerCfg CompilerConfig
	run(ToolSelectCompilerStrategy, func() (string, error) {
		compilerCfg = selectCompilerStrategy(analysis.TaskType, analysis.Complexity, len(req.Dataset.Examples), req.QualityProfile)
		if req.OptimizerStrategy != "" {
			compilerCfg.Optimizer = req.OptimizerStrategy
		}
		return string(compilerCfg.Optimizer), nil
	})
	run(ToolConfigureCompiler, func() (string, error) {
		compilerCfg = configureCompiler(compilerCfg, compilerCfg.MaxCandidates, 0.7)
		return fmt.Sprintf("candidates=%d threshold=%.2f", compilerCfg.MaxCandidates, compilerCfg.Threshold), nil
	})

	var compilation CompilationResult
	var promptText string
	promptID := "orchestrated_" + string(req.TargetLM)

	for sess.IterationCount < req.MaxIterations {
		if ctx.Err() != nil {
			return o.budgetExhausted(sess, analysis, spec, compilation, steps)
		}
		sess.IterationCount++

		compileStep := run(ToolRunCompilation, func() (string, error) {
			promptText = renderProgramPrompt(spec, sig, analysis)
			compilation = runCompilation(ctx, engine, promptID, promptText, split.Train, split.Dev, compilerCfg, func(order int, metric float64, tokenCount int) {
				run(ToolScoreCandidateConfig, func() (string, error) {
					return fmt.Sprintf("candidate=%d metric=%.4f tokens=%d", order, metric, tokenCount), nil
				})
			})
			return string(compilation.Status), nil
		})
		_ = compileStep

		if compilation.Status == CompileSuccess {
			sess.EvalResults = &compilation.EvalResults
			break
		}

		var failure FailureAnalysis
		run(ToolAnalyzeFailure, func() (string, error) {
			failure = analyzeFailure(FailureContext{
				ErrorLog:        compilation.ErrorLog,
				MetricValue:     compilation.Compiled.MeasuredMetric,
				Threshold:       compilerCfg.Threshold,
				DatasetFields:   datasetFieldNames(req.Dataset),
				SignatureInputs: signatureFieldNames(sig),
			})
			sess.ErrorHistory = append(sess.ErrorHistory, failure)
			return string(failure.ErrorType), nil
		})

		if failure.Severity == SeverityCritical {
			return Result{
				Success: false, Status: "failure", ErrorType: failure.ErrorType,
				TaskAnalysis: analysis, ProgramCode: spec, Steps: steps,
			}
		}

		var plan []ProposedFix
		run(ToolProposePipelineFix, func() (string, error) {
			missing := findMissingField(FailureContext{DatasetFields: datasetFieldNames(req.Dataset), SignatureInputs: signatureFieldNames(sig)})
			plan = proposePipelineFix(failure, spec, sig, missing)
			if len(plan) == 0 {
				return "", fmt.Errorf("no applicable fix for %s", failure.ErrorType)
			}
			return fmt.Sprintf("%d candidate fixes", len(plan)), nil
		})
		if len(plan) == 0 {
			return Result{Success: false, Status: "failure", ErrorType: failure.ErrorType, TaskAnalysis: analysis, ProgramCode: spec, Steps: steps}
		}

		applyFix(plan[0], &spec, &sig, &compilerCfg)
		sess.CurrentSpec = &spec
		sess.CurrentSignature = &sig
	}

	if compilation.Status != CompileSuccess {
		return o.budgetExhausted(sess, analysis, spec, compilation, steps)
	}

	// Artifact emission.
	var artifactID string
	run(ToolLogArtifacts, func() (string, error) {
		id, err := o.st.SaveArtifact(compilation.Compiled, compilation.EvalResults, store.ArtifactMetadata{
			MeasuredMetric: compilation.Compiled.MeasuredMetric,
			TaskAnalysis: map[string]interface{}{
				"task_type":  string(analysis.TaskType),
				"domain":     analysis.Domain,
				"complexity": string(analysis.Complexity),
			},
		})
		if err != nil {
			return "", err
		}
		artifactID = id
		return id, nil
	})
	if _, err := o.st.SaveEvaluation(compilation.EvalResults); err != nil {
		o.logger.Warn("orchestrator: failed to save evaluation run", map[string]interface{}{"error": err.Error()})
	}

	run(ToolExportDeploymentPkg, func() (string, error) {
		return string(ExportSpec), nil
	})

	return Result{
		Success:      true,
		ArtifactID:   artifactID,
		ProgramCode:  spec,
		TaskAnalysis: analysis,
		EvalResults:  compilation.EvalResults,
		Steps:        steps,
		Status:       "success",
	}
}

func (o *Orchestrator) budgetExhausted(sess *SessionState, analysis TaskAnalysis, spec core.ProgramSpec, compilation CompilationResult, steps []core.Step) Result {
	return Result{
		Success:      false,
		TaskAnalysis: analysis,
		ProgramCode:  spec,
		EvalResults:  compilation.EvalResults,
		Steps:        steps,
		Status:       "budget_exhausted",
	}
}

// applyFix mutates spec/sig/compilerCfg in place per the highest
// priority ProposedFix, implementing Phase 6 step 3: "apply highest
// priority action by invoking the corresponding Phase-3 or Phase-5
// tool."
func applyFix(fix ProposedFix, spec *core.ProgramSpec, sig *core.Signature, compilerCfg *CompilerConfig) {
	switch fix.Action {
	case FixSignature:
		if field, ok := fix.Parameters["add_input_field"].(string); ok && field != "" {
			sig.Inputs = append(sig.Inputs, core.Field{Name: field, Type: core.TypeText, Required: false})
		}
	case FixAddTactic:
		if kind, ok := fix.Parameters["kind"].(core.ModuleKind); ok {
			terminal := terminalModules(*spec)
			anchor := ""
			if len(terminal) == 1 {
				anchor = spec.Modules[terminal[0]].Name
			}
			newSpec, err := addTactic(*spec, core.Module{Name: "fix_" + string(kind), Kind: kind}, PositionAfter, anchor)
			if err == nil {
				*spec = newSpec
			}
		}
	case FixAdjustOptim:
		if strategy, ok := fix.Parameters["strategy"].(string); ok && strategy != "" {
			compilerCfg.Optimizer = OptimizerKind(strategy)
		}
		if maxCand, ok := fix.Parameters["max_candidates"].(int); ok && maxCand > 0 {
			compilerCfg.MaxCandidates = maxCand
		}
	}
}

func datasetFieldNames(dataset core.Dataset) []string {
	if len(dataset.Examples) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for k := range dataset.Examples[0].Input {
		if !seen[k] {
			seen[k] = true
			names = append(names, k)
		}
	}
	return names
}

func signatureFieldNames(sig core.Signature) []string {
	names := make([]string, 0, len(sig.Inputs))
	for _, f := range sig.Inputs {
		names = append(names, f.Name)
	}
	return names
}

// renderProgramPrompt flattens a ProgramSpec + Signature into a single
// prompt template understood by Engine.renderPrompt's {field}
// substitution — the DAG's execution levels determine module order,
// but this implementation renders a single terminal-module prompt
// rather than executing each module as a separate LM call (multi-hop
// module execution is Open Question territory left to a future
// revision; see DESIGN.md).
func renderProgramPrompt(spec core.ProgramSpec, sig core.Signature, analysis TaskAnalysis) string {
	instruction := fmt.Sprintf("Task: %s (%s domain).\n", analysis.TaskType, analysis.Domain)
	if analysis.Flags.NeedsChainOfThought {
		instruction += "Think step by step before answering.\n"
	}
	body := "Input: {text}"
	if hasField(sig.Inputs, "context") {
		body = "Context: {context}\n" + body
	}
	return instruction + body + "\nAnswer:"
}

func hasField(fields []core.Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// executionLevelsOf exposes executionLevels for callers that need the
// DAG's topological generations without reaching into dag.go directly
// (kept for export_deployment_package's module-order rendering).
func executionLevelsOf(spec core.ProgramSpec) [][]int { return executionLevels(spec) }

package orchestrator

// ToolName is the closed catalog of spec.md §6.1: 19 tools, each a pure
// function with a declared input/output schema. Representing dispatch
// as a tagged sum type (Design Notes §9) means a planning layer cannot
// invoke an unknown tool name — Step.Tool is always one of these
// constants, and Invoke's run() helper is the only place a Step gets
// built, so every recorded Step.Tool traces back to one of them.
type ToolName string

const (
	ToolAnalyzeBusinessGoal    ToolName = "analyze_business_goal"
	ToolValidateDataset        ToolName = "validate_dataset"
	ToolRegisterTargetLM       ToolName = "register_target_lm"
	ToolConfigureLMProfile     ToolName = "configure_lm_profile"
	ToolDefineContractSig      ToolName = "define_contract_signature"
	ToolAssembleProgramPipe    ToolName = "assemble_program_pipeline"
	ToolAddTacticToProgram     ToolName = "add_tactic_to_program"
	ToolFinalizeProgramAssembly ToolName = "finalize_program_assembly"
	ToolLoadEvalData           ToolName = "load_eval_data"
	ToolPrepareEvalSplits      ToolName = "prepare_eval_splits"
	ToolSetEvaluationMetric    ToolName = "set_evaluation_metric"
	ToolSelectCompilerStrategy ToolName = "select_compiler_strategy"
	ToolConfigureCompiler      ToolName = "configure_compiler"
	ToolScoreCandidateConfig   ToolName = "score_candidate_config"
	ToolRunCompilation         ToolName = "run_compilation"
	ToolAnalyzeFailure         ToolName = "analyze_failure"
	ToolProposePipelineFix     ToolName = "propose_pipeline_fix"
	ToolLogArtifacts           ToolName = "log_artifacts"
	ToolExportDeploymentPkg    ToolName = "export_deployment_package"
)

// AllTools is the exhaustive, ordered 19-tool catalog. New tool kinds
// are not permitted at runtime (spec.md §6.1) — nothing in this
// package constructs a ToolName outside this list.
var AllTools = []ToolName{
	ToolAnalyzeBusinessGoal,
	ToolValidateDataset,
	ToolRegisterTargetLM,
	ToolConfigureLMProfile,
	ToolDefineContractSig,
	ToolAssembleProgramPipe,
	ToolAddTacticToProgram,
	ToolFinalizeProgramAssembly,
	ToolLoadEvalData,
	ToolPrepareEvalSplits,
	ToolSetEvaluationMetric,
	ToolSelectCompilerStrategy,
	ToolConfigureCompiler,
	ToolScoreCandidateConfig,
	ToolRunCompilation,
	ToolAnalyzeFailure,
	ToolProposePipelineFix,
	ToolLogArtifacts,
	ToolExportDeploymentPkg,
}

// QualityProfile selects among the predefined parameter bundles of
// spec.md §4.1 Phase 2's table.
type QualityProfile string

const (
	ProfileFastCheap    QualityProfile = "FAST_CHEAP"
	ProfileBalanced     QualityProfile = "BALANCED"
	ProfileHighQuality  QualityProfile = "HIGH_QUALITY"
)

// profileParams is Phase 2's table of temperature/max_tokens/top_p per
// profile.
type profileParams struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

var profileTable = map[QualityProfile]profileParams{
	ProfileFastCheap:   {Temperature: 0.1, MaxTokens: 1024, TopP: 0.9},
	ProfileBalanced:    {Temperature: 0.2, MaxTokens: 2048, TopP: 0.95},
	ProfileHighQuality: {Temperature: 0.3, MaxTokens: 4096, TopP: 0.98},
}

// OptimizerKind is Phase 5's compiler strategy enum.
type OptimizerKind string

const (
	OptimizerBootstrapFewShot          OptimizerKind = "BootstrapFewShot"
	OptimizerBootstrapFewShotRandom    OptimizerKind = "BootstrapFewShotWithRandomSearch"
	OptimizerMIPRO                     OptimizerKind = "MIPRO"
	OptimizerMIPROv2                   OptimizerKind = "MIPROv2"
	OptimizerCOPRO                     OptimizerKind = "COPRO"
	OptimizerBootstrapFinetune         OptimizerKind = "BootstrapFinetune"
)

// ExportFormat is export_deployment_package's target shape.
type ExportFormat string

const (
	ExportModule  ExportFormat = "module"
	ExportService ExportFormat = "service"
	ExportSpec    ExportFormat = "spec"
	ExportImage   ExportFormat = "image"
)

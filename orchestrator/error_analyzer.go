package orchestrator

import (
	"strings"

	"github.com/kazkozdev/promptstudio/core"
)

// ErrorType is the classification Phase 6's analyze_failure emits, per
// spec.md §4.1 Phase 6 / §7's error kinds.
type ErrorType string

const (
	ErrorSignatureMismatch ErrorType = "signature_mismatch"
	ErrorMissingField      ErrorType = "missing_field"
	ErrorInvalidFormat     ErrorType = "invalid_format"
	ErrorOptimizerFailure  ErrorType = "optimizer_failure"
	ErrorLowMetric         ErrorType = "low_metric"
	ErrorRuntimeError      ErrorType = "runtime_error"
	ErrorTimeout           ErrorType = "timeout"
)

// Severity bounds whether a fix is worth attempting at all.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FailureAnalysis is analyze_failure's output.
type FailureAnalysis struct {
	ErrorType     ErrorType
	Severity      Severity
	RootCause     string
	SuggestedFix  string
}

// FailureContext is what run_compilation's failure path hands to
// analyze_failure: the raw error log plus enough of the session to
// reason about it.
type FailureContext struct {
	ErrorLog       string
	MetricValue    float64
	Threshold      float64
	DatasetFields  []string
	SignatureInputs []string
}

// analyzeFailure implements spec.md §4.1 Phase 6 step 1. It is a
// deterministic classifier over the error log and session context,
// the implementer-permitted rules substitute for an LM call (Phase 1's
// same allowance extends here: the schema is the contract, not the
// mechanism).
func analyzeFailure(ctx FailureContext) FailureAnalysis {
	log := strings.ToLower(ctx.ErrorLog)

	switch {
	case strings.Contains(log, "timeout") || strings.Contains(log, "deadline exceeded"):
		return FailureAnalysis{
			ErrorType: ErrorTimeout, Severity: SeverityMedium,
			RootCause:    "the LM call exceeded its request timeout",
			SuggestedFix: "reduce max_tokens or switch to a faster quality profile",
		}
	case missingDatasetField(ctx):
		field := findMissingField(ctx)
		return FailureAnalysis{
			ErrorType: ErrorMissingField, Severity: SeverityHigh,
			RootCause:    "dataset example carries field " + field + " absent from the signature",
			SuggestedFix: "add_tactic: extend the signature with field " + field,
		}
	case strings.Contains(log, "signature") && (strings.Contains(log, "mismatch") || strings.Contains(log, "shape")):
		return FailureAnalysis{
			ErrorType: ErrorSignatureMismatch, Severity: SeverityHigh,
			RootCause:    "the program's declared signature does not match the dataset's example shape",
			SuggestedFix: "fix_signature: realign inputs/outputs to the observed example fields",
		}
	case strings.Contains(log, "invalid format") || strings.Contains(log, "parse"):
		return FailureAnalysis{
			ErrorType: ErrorInvalidFormat, Severity: SeverityMedium,
			RootCause:    "the LM output did not parse against the expected output shape",
			SuggestedFix: "add_tactic: wrap the terminal module in ChainOfThought or Retry",
		}
	case ctx.MetricValue > 0 && ctx.MetricValue < ctx.Threshold:
		return FailureAnalysis{
			ErrorType: ErrorLowMetric, Severity: SeverityMedium,
			RootCause:    "compiled metric fell below threshold",
			SuggestedFix: "adjust_optimizer: widen search (BootstrapFewShotWithRandomSearch) or raise demo count",
		}
	case strings.Contains(log, "optimizer"):
		return FailureAnalysis{
			ErrorType: ErrorOptimizerFailure, Severity: SeverityHigh,
			RootCause:    "the compiler strategy raised internally",
			SuggestedFix: "adjust_optimizer: fall back to BootstrapFewShot with a smaller candidate set",
		}
	default:
		return FailureAnalysis{
			ErrorType: ErrorRuntimeError, Severity: SeverityCritical,
			RootCause:    "unclassified runtime error",
			SuggestedFix: "no applicable automated fix",
		}
	}
}

func missingDatasetField(ctx FailureContext) bool {
	return findMissingField(ctx) != ""
}

func findMissingField(ctx FailureContext) string {
	known := make(map[string]bool, len(ctx.SignatureInputs))
	for _, f := range ctx.SignatureInputs {
		known[f] = true
	}
	for _, f := range ctx.DatasetFields {
		if !known[f] {
			return f
		}
	}
	return ""
}

// FixAction names the remediation families propose_pipeline_fix can
// choose among, per spec.md §4.1 Phase 6 step 2.
type FixAction string

const (
	FixSignature    FixAction = "fix_signature"
	FixAddTactic    FixAction = "add_tactic"
	FixAdjustOptim  FixAction = "adjust_optimizer"
)

// ProposedFix is one entry of the prioritized fix_plan.
type ProposedFix struct {
	Action     FixAction
	Parameters map[string]interface{}
	Priority   int // lower runs first
}

// proposePipelineFix implements Phase 6 step 2: turn a FailureAnalysis
// into a prioritized fix_plan. Exactly one highest-priority action is
// applied per iteration (step 3), so callers should take plan[0].
func proposePipelineFix(analysis FailureAnalysis, spec core.ProgramSpec, sig core.Signature, missingField string) []ProposedFix {
	switch analysis.ErrorType {
	case ErrorMissingField:
		return []ProposedFix{{
			Action:     FixSignature,
			Parameters: map[string]interface{}{"add_input_field": missingField},
			Priority:   0,
		}}
	case ErrorSignatureMismatch:
		return []ProposedFix{{
			Action:     FixSignature,
			Parameters: map[string]interface{}{"resync": true},
			Priority:   0,
		}}
	case ErrorInvalidFormat:
		return []ProposedFix{
			{Action: FixAddTactic, Parameters: map[string]interface{}{"kind": core.ModuleChainOfThought}, Priority: 0},
			{Action: FixAddTactic, Parameters: map[string]interface{}{"kind": core.ModuleRetry}, Priority: 1},
		}
	case ErrorLowMetric:
		return []ProposedFix{
			{Action: FixAdjustOptim, Parameters: map[string]interface{}{"strategy": "BootstrapFewShotWithRandomSearch"}, Priority: 0},
			{Action: FixAddTactic, Parameters: map[string]interface{}{"kind": core.ModuleChainOfThought}, Priority: 1},
		}
	case ErrorOptimizerFailure:
		return []ProposedFix{{
			Action:     FixAdjustOptim,
			Parameters: map[string]interface{}{"strategy": "BootstrapFewShot", "max_candidates": 4},
			Priority:   0,
		}}
	case ErrorTimeout:
		return []ProposedFix{{
			Action:     FixAdjustOptim,
			Parameters: map[string]interface{}{"reduce_max_tokens": true},
			Priority:   0,
		}}
	default:
		return nil // critical/runtime_error: no applicable fix
	}
}

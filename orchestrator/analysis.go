package orchestrator

import (
	"context"
	"strings"

	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/provider"
)

// TaskType is the business-goal classification of spec.md §4.1 Phase 1.
type TaskType string

const (
	TaskRAG            TaskType = "RAG"
	TaskClassification TaskType = "classification"
	TaskExtraction     TaskType = "extraction"
	TaskSummarization  TaskType = "summarization"
	TaskReasoning      TaskType = "reasoning"
	TaskRouting        TaskType = "routing"
	TaskHybrid         TaskType = "hybrid"
)

// Complexity is the coarse effort estimate Phase 1 emits.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// SafetyLevel flags outputs that warrant a Retry guard module.
type SafetyLevel string

const (
	SafetyStandard SafetyLevel = "standard"
	SafetyHigh     SafetyLevel = "high"
)

// TaskFlags carries the boolean needs_* outputs of analyze_business_goal.
type TaskFlags struct {
	NeedsRetrieval       bool
	NeedsChainOfThought  bool
	NeedsToolUse         bool
	SafetyLevel          SafetyLevel
}

// TaskAnalysis is the full output of analyze_business_goal.
type TaskAnalysis struct {
	TaskType    TaskType
	Domain      string
	InputRoles  []string
	OutputRoles []string
	Flags       TaskFlags
	Complexity  Complexity
}

var taskKeywords = map[TaskType][]string{
	TaskRAG:            {"retrieve", "document", "knowledge base", "context", "search", "rag"},
	TaskClassification: {"classify", "categorize", "label", "sentiment", "spam"},
	TaskExtraction:      {"extract", "parse", "field", "entity", "structured"},
	TaskSummarization:  {"summarize", "summary", "tl;dr", "condense"},
	TaskReasoning:      {"reason", "solve", "calculate", "think step by step", "chain of thought"},
	TaskRouting:        {"route", "dispatch", "triage", "direct to"},
}

// analyzeBusinessGoal implements Phase 1's analyze_business_goal tool.
// The implementer may replace the deterministic heuristic below with an
// LM call (planningLM, non-nil) as long as the output schema is
// preserved; when planningLM is nil this falls back to keyword rules.
func analyzeBusinessGoal(ctx context.Context, businessTask string, planningLM provider.Provider) (TaskAnalysis, error) {
	lower := strings.ToLower(businessTask)

	best := TaskHybrid
	bestScore := 0
	for t, keywords := range taskKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = t
		}
	}

	analysis := TaskAnalysis{
		TaskType:   best,
		Domain:     inferDomain(lower),
		InputRoles: []string{"text"},
		Flags: TaskFlags{
			NeedsRetrieval:      best == TaskRAG,
			NeedsChainOfThought: best == TaskReasoning,
			NeedsToolUse:        strings.Contains(lower, "tool") || strings.Contains(lower, "api"),
			SafetyLevel:         safetyLevelFor(lower),
		},
		Complexity: complexityFor(lower, bestScore),
	}
	switch best {
	case TaskClassification:
		analysis.OutputRoles = []string{"label"}
	case TaskExtraction:
		analysis.OutputRoles = []string{"fields"}
	case TaskSummarization:
		analysis.OutputRoles = []string{"summary"}
	default:
		analysis.OutputRoles = []string{"answer"}
	}
	if analysis.Flags.NeedsRetrieval {
		analysis.InputRoles = append(analysis.InputRoles, "context")
	}

	if planningLM != nil {
		// A planning LM call may refine the domain further; the
		// heuristic result above remains the floor so a provider error
		// never blocks Phase 1.
		refined, err := refineWithPlanningLM(ctx, planningLM, businessTask, analysis)
		if err == nil {
			analysis = refined
		}
	}
	return analysis, nil
}

func refineWithPlanningLM(ctx context.Context, lm provider.Provider, businessTask string, base TaskAnalysis) (TaskAnalysis, error) {
	prompt := "Classify this task's domain in two words: " + businessTask
	out, err := lm.Complete(ctx, prompt, provider.DefaultParams())
	if err != nil {
		return base, err
	}
	domain := strings.TrimSpace(out)
	if domain != "" {
		base.Domain = domain
	}
	return base, nil
}

func inferDomain(lower string) string {
	switch {
	case strings.Contains(lower, "legal"):
		return "legal"
	case strings.Contains(lower, "medical") || strings.Contains(lower, "health"):
		return "medical"
	case strings.Contains(lower, "finance") || strings.Contains(lower, "financial"):
		return "finance"
	case strings.Contains(lower, "customer") || strings.Contains(lower, "support"):
		return "customer_support"
	default:
		return "general"
	}
}

func safetyLevelFor(lower string) SafetyLevel {
	for _, kw := range []string{"medical", "legal", "financial", "safety", "compliance"} {
		if strings.Contains(lower, kw) {
			return SafetyHigh
		}
	}
	return SafetyStandard
}

func complexityFor(lower string, keywordScore int) Complexity {
	words := len(strings.Fields(lower))
	switch {
	case words > 40 || keywordScore >= 3:
		return ComplexityHigh
	case words > 15 || keywordScore >= 1:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// defaultMetricFor implements Phase 4's set_evaluation_metric default
// table: classification->accuracy, extraction->exact_match,
// summarization->rouge_l, reasoning->llm_judge, RAG->semantic_f1
// (approximated here by embedding_similarity, since this implementation
// does not model a dedicated semantic_f1 scorer).
func defaultMetricFor(taskType TaskType) string {
	switch taskType {
	case TaskClassification:
		return "classification_match"
	case TaskExtraction:
		return "exact_match"
	case TaskSummarization:
		return "rouge_l"
	case TaskReasoning:
		return "llm_judge"
	case TaskRAG:
		return "embedding_similarity"
	default:
		return "exact_match"
	}
}

// defineContractSignature implements define_contract_signature.
func defineContractSignature(analysis TaskAnalysis) core.Signature {
	sig := core.Signature{ID: "sig_" + string(analysis.TaskType)}
	for _, role := range analysis.InputRoles {
		sig.Inputs = append(sig.Inputs, core.Field{Name: role, Type: core.TypeText, Required: true})
	}
	for _, role := range analysis.OutputRoles {
		fieldType := core.TypeText
		if role == "label" {
			fieldType = core.TypeLabel
		}
		if role == "fields" {
			fieldType = core.TypeJSON
		}
		sig.Outputs = append(sig.Outputs, core.Field{Name: role, Type: fieldType, Required: true})
	}
	return sig
}

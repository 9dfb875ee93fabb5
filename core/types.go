// Package core holds the vocabulary shared by every other package in
// this module: the data model of spec.md §3, logging/telemetry
// contracts, and sentinel errors. It imports nothing from the rest of
// the module so every other package can depend on it without cycles.
package core

import (
	"fmt"
	"time"
)

// Example is one input/expected-output pair. Expected is optional; its
// absence selects label-free metrics.
type Example struct {
	Input    map[string]interface{} `json:"input"`
	Expected interface{}            `json:"expected,omitempty"`
	Metadata map[string]string      `json:"metadata,omitempty"`
}

// Text is the conventional "text" field most task types key off of.
func (e Example) Text() string {
	if v, ok := e.Input["text"].(string); ok {
		return v
	}
	return ""
}

// Dataset is a named, versioned, ordered sequence of Examples.
type Dataset struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Version  int       `json:"version"`
	Examples []Example `json:"examples"`
	Seed     int64     `json:"seed"`
}

// Validate enforces the Dataset invariant: every Example has a
// non-empty input.
func (d Dataset) Validate() error {
	for i, ex := range d.Examples {
		if ex.Text() == "" && len(ex.Input) == 0 {
			return NewStudioErrorID("Dataset.Validate", "validation", d.ID,
				&emptyInputError{index: i})
		}
	}
	return nil
}

type emptyInputError struct{ index int }

func (e *emptyInputError) Error() string {
	return fmt.Sprintf("example at index %d has empty input", e.index)
}

// Split holds a dataset's train/dev/test partition, as produced by the
// orchestrator's prepare_eval_splits step.
type Split struct {
	Train, Dev, Test []Example
}

// PromptStatus is the lifecycle state of a Prompt.
type PromptStatus string

const (
	PromptDraft      PromptStatus = "draft"
	PromptTesting    PromptStatus = "testing"
	PromptProduction PromptStatus = "production"
	PromptArchived   PromptStatus = "archived"
)

// Prompt is a versioned, linearly-numbered text with an optional parent
// for branching.
type Prompt struct {
	ID        string       `json:"id"`
	Version   int          `json:"version"`
	Text      string       `json:"text"`
	Category  string       `json:"category"`
	Technique string       `json:"technique"`
	Status    PromptStatus `json:"status"`
	ParentID  string       `json:"parent_id,omitempty"`
}

// SemanticType is the typed shape of a Signature field.
type SemanticType string

const (
	TypeString     SemanticType = "string"
	TypeText       SemanticType = "text"
	TypeListString SemanticType = "list<string>"
	TypeJSON       SemanticType = "json"
	TypeLabel      SemanticType = "label"
	TypeScore      SemanticType = "score"
)

// Field is one named, typed slot of a Signature.
type Field struct {
	Name        string       `json:"name"`
	Type        SemanticType `json:"type"`
	Description string       `json:"description"`
	Required    bool         `json:"required"`
}

// Signature is the declarative input/output contract of one LM step,
// content-addressed by its field schema via SignatureID.
type Signature struct {
	ID     string  `json:"id"`
	Inputs []Field `json:"inputs"`
	Outputs []Field `json:"outputs"`
}

// ModuleKind names the seven program-module kinds spec.md §3 allows.
type ModuleKind string

const (
	ModulePredict              ModuleKind = "Predict"
	ModuleChainOfThought       ModuleKind = "ChainOfThought"
	ModuleReAct                ModuleKind = "ReAct"
	ModuleRetrieve             ModuleKind = "Retrieve"
	ModuleProgramOfThought     ModuleKind = "ProgramOfThought"
	ModuleMultiChainComparison ModuleKind = "MultiChainComparison"
	ModuleRetry                ModuleKind = "Retry"
)

// Module is one node of a ProgramSpec's DAG, referenced by its index in
// ProgramSpec.Modules rather than by pointer (arena + indices, per
// Design Notes §9).
type Module struct {
	Name        string                 `json:"name"`
	Kind        ModuleKind             `json:"kind"`
	SignatureID string                 `json:"signature_id,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
}

// Edge maps one producer field to one consumer field, by module index.
type Edge struct {
	ProducerIdx   int    `json:"producer_idx"`
	ProducerField string `json:"producer_field"`
	ConsumerIdx   int    `json:"consumer_idx"`
	ConsumerField string `json:"consumer_field"`
}

// ProgramSpec is a DAG of Modules connected by Edges. It is an arena:
// all ownership is by index, never by pointer, so cloning and
// serializing it is a value copy.
type ProgramSpec struct {
	ID      string   `json:"id"`
	Modules []Module `json:"modules"`
	Edges   []Edge   `json:"edges"`
}

// CompiledProgram is a reproducible artifact: a pure function from
// dataset input to program output given the same LMBinding and Demos.
type CompiledProgram struct {
	ID              string                 `json:"id"`
	Spec            ProgramSpec            `json:"spec"`
	Signatures      []Signature            `json:"signatures"`
	Demos           []Example              `json:"demos"`
	OptimizerConfig map[string]interface{} `json:"optimizer_config"`
	MeasuredMetric  float64                `json:"measured_metric"`
	LMBinding       string                 `json:"lm_binding"`
}

// PerCaseResult is one dataset-index-aligned scoring outcome.
type PerCaseResult struct {
	Input    map[string]interface{} `json:"input"`
	Prediction string                `json:"prediction,omitempty"`
	Expected   interface{}           `json:"expected,omitempty"`
	Metrics    map[string]float64    `json:"metrics"`
	Error      string                `json:"error,omitempty"`
}

// EvaluationRun is the immutable record of one evaluation invocation.
type EvaluationRun struct {
	RunID       string                 `json:"run_id"`
	PromptID    string                 `json:"prompt_id"`
	PromptText  string                 `json:"prompt_text"`
	DatasetID   string                 `json:"dataset_id"`
	DatasetName string                 `json:"dataset_name"`
	Metrics     map[string]float64     `json:"metrics"`
	PerCase     []PerCaseResult        `json:"per_case"`
	Metadata    map[string]interface{} `json:"metadata"`
	ErroredCases int                   `json:"errored_cases"`
	Timestamp   time.Time              `json:"timestamp"`
}

// StepStatus is the lifecycle of one Orchestrator Step event.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

// Step is one emitted event of the Orchestrator's Reason→Act→Observe
// loop, per spec.md §4.1.6.
type Step struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Tool        string     `json:"tool"`
	Status      StepStatus `json:"status"`
	Thought     string     `json:"thought,omitempty"`
	Action      string     `json:"action,omitempty"`
	Observation string     `json:"observation,omitempty"`
	DurationMS  int64      `json:"duration_ms,omitempty"`
	Error       string     `json:"error,omitempty"`
}

package orchestrator

import (
	"strconv"
	"time"

	"github.com/kazkozdev/promptstudio/core"
)

// SessionState is the transient record of one compilation, per spec.md
// §3's Session State entry. It exists only for the duration of one
// Invoke call and is never persisted directly — log_artifacts derives
// a durable Evaluation Run and Compiled Program from it.
type SessionState struct {
	BusinessTask      string
	TargetLM          string
	DatasetPath       string
	TaskAnalysis      *TaskAnalysis
	CurrentSignature  *core.Signature
	CurrentSpec       *core.ProgramSpec
	CompilerConfigID  string
	EvalResults       *core.EvaluationRun
	IterationCount    int
	ErrorHistory      []FailureAnalysis
}

// stepBuffer is the bounded, drop-newest Step publisher of spec.md §5's
// suspension point (d): publishing to a slow consumer never blocks
// producer logic.
type stepBuffer struct {
	ch chan core.Step
}

func newStepBuffer(capacity int) *stepBuffer {
	if capacity < 1 {
		capacity = 64
	}
	return &stepBuffer{ch: make(chan core.Step, capacity)}
}

// publish enqueues a Step, dropping it silently if the channel is full
// — "delivery is best-effort; consumers that reconnect lose
// intermediate events" per spec.md §4.1.6.
func (b *stepBuffer) publish(step core.Step) {
	if b == nil {
		return
	}
	select {
	case b.ch <- step:
	default:
	}
}

func (b *stepBuffer) close() {
	if b == nil {
		return
	}
	close(b.ch)
}

// Steps exposes the read side of the stream to external consumers.
func (b *stepBuffer) Steps() <-chan core.Step {
	if b == nil {
		closed := make(chan core.Step)
		close(closed)
		return closed
	}
	return b.ch
}

// newStep builds a pending Step with a generated id/name from a tool
// name and ordinal.
func newStep(ordinal int, tool ToolName) core.Step {
	return core.Step{
		ID:     stepID(ordinal),
		Name:   string(tool),
		Tool:   string(tool),
		Status: core.StepPending,
	}
}

func stepID(ordinal int) string {
	return "step_" + strconv.Itoa(ordinal)
}

// timed runs fn, recording wall-clock duration on the returned Step.
func timed(step core.Step, fn func() (string, error)) core.Step {
	start := time.Now()
	observation, err := fn()
	step.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		step.Status = core.StepError
		step.Error = err.Error()
		return step
	}
	step.Status = core.StepSuccess
	step.Observation = observation
	return step
}

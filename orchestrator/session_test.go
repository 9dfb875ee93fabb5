package orchestrator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kazkozdev/promptstudio/core"
)

func TestNewStepBuildsPendingStep(t *testing.T) {
	step := newStep(3, ToolRegisterTargetLM)
	assert.Equal(t, "step_3", step.ID)
	assert.Equal(t, string(ToolRegisterTargetLM), step.Tool)
	assert.Equal(t, core.StepPending, step.Status)
}

func TestTimedRecordsSuccessAndDuration(t *testing.T) {
	step := newStep(1, ToolAnalyzeBusinessGoal)
	out := timed(step, func() (string, error) {
		time.Sleep(time.Millisecond)
		return "done", nil
	})
	assert.Equal(t, core.StepSuccess, out.Status)
	assert.Equal(t, "done", out.Observation)
	assert.GreaterOrEqual(t, out.DurationMS, int64(0))
}

func TestTimedRecordsError(t *testing.T) {
	step := newStep(1, ToolAnalyzeBusinessGoal)
	out := timed(step, func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Equal(t, core.StepError, out.Status)
	assert.Equal(t, "boom", out.Error)
}

func TestStepBufferPublishAndDrain(t *testing.T) {
	b := newStepBuffer(2)
	b.publish(core.Step{ID: "s1"})
	b.publish(core.Step{ID: "s2"})
	b.close()

	var got []core.Step
	for s := range b.Steps() {
		got = append(got, s)
	}
	assert.Len(t, got, 2)
}

func TestStepBufferDropsNewestWhenFull(t *testing.T) {
	b := newStepBuffer(1)
	b.publish(core.Step{ID: "keep"})
	b.publish(core.Step{ID: "dropped"}) // buffer full, dropped silently
	b.close()

	var got []core.Step
	for s := range b.Steps() {
		got = append(got, s)
	}
	require := assert.New(t)
	require.Len(got, 1)
	require.Equal("keep", got[0].ID)
}

func TestStepBufferNilIsSafeAndReturnsClosedChannel(t *testing.T) {
	var b *stepBuffer
	b.publish(core.Step{ID: "x"}) // must not panic
	_, ok := <-b.Steps()
	assert.False(t, ok)
}

func TestNewStepBufferDefaultsCapacityWhenInvalid(t *testing.T) {
	b := newStepBuffer(0)
	assert.Equal(t, 64, cap(b.ch))
}

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudioErrorFormatting(t *testing.T) {
	t.Run("op and err", func(t *testing.T) {
		err := NewStudioError("orchestrator.RegisterTargetLM", "validation", ErrUnknownTarget)
		assert.Equal(t, "orchestrator.RegisterTargetLM: unknown target lm", err.Error())
	})

	t.Run("op, id, and err", func(t *testing.T) {
		err := NewStudioErrorID("store.LoadArtifact", "not_found", "v_20260730_001", ErrNotFound)
		assert.Equal(t, "store.LoadArtifact [v_20260730_001]: not found", err.Error())
	})

	t.Run("message only", func(t *testing.T) {
		err := &StudioError{Kind: "validation", Message: "bad input"}
		assert.Equal(t, "bad input", err.Error())
	})

	t.Run("kind only", func(t *testing.T) {
		err := &StudioError{Kind: "optimizer"}
		assert.Equal(t, "optimizer error", err.Error())
	})
}

func TestStudioErrorUnwrap(t *testing.T) {
	err := NewStudioError("op", "validation", ErrValidation)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewStudioError("op", "provider_transient", errors.New("boom"))))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrConnectionFailed))
	assert.False(t, IsRetryable(ErrValidation))
	assert.False(t, IsRetryable(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrValidation))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrValidation))
	assert.True(t, IsValidation(NewStudioError("op", "validation", errors.New("boom"))))
	assert.False(t, IsValidation(ErrNotFound))
}

func TestIsBudgetExhausted(t *testing.T) {
	assert.True(t, IsBudgetExhausted(ErrBudgetExhausted))
	assert.False(t, IsBudgetExhausted(ErrTimeout))
}

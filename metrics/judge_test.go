package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazkozdev/promptstudio/provider"
)

type stubJudgeProvider struct {
	response string
	err      error
}

func (s stubJudgeProvider) Name() string  { return "stub-judge" }
func (s stubJudgeProvider) Model() string { return "stub-model" }
func (s stubJudgeProvider) Complete(ctx context.Context, prompt string, params provider.Params) (string, error) {
	return s.response, s.err
}
func (s stubJudgeProvider) Chat(ctx context.Context, messages []provider.Message, params provider.Params) (string, error) {
	return s.response, s.err
}
func (s stubJudgeProvider) CountTokens(text string) int                         { return len(text) / 4 }
func (s stubJudgeProvider) EstimateCost(inputTokens, outputTokens int) float64 { return 0 }

func TestJudgeScoresOverall(t *testing.T) {
	s := JudgeScores{Accuracy: 5, Helpfulness: 5, Harmlessness: 5, Honesty: 5}
	assert.Equal(t, 1.0, s.Overall())

	s = JudgeScores{Accuracy: 1, Helpfulness: 1, Harmlessness: 1, Honesty: 1}
	assert.Equal(t, 0.0, s.Overall())
}

func TestLLMJudgeScoreDetailedParsesCleanJSON(t *testing.T) {
	p := stubJudgeProvider{response: `{"accuracy": 4, "helpfulness": 5, "harmlessness": 5, "honesty": 4, "rationale": "solid answer"}`}
	j := LLMJudge{Judge: p}

	scores, err := j.ScoreDetailed(context.Background(), "task", "prediction", "expected")
	require.NoError(t, err)
	assert.Equal(t, 4, scores.Accuracy)
	assert.Equal(t, "solid answer", scores.Rationale)
}

func TestLLMJudgeScoreDetailedToleratesProseWrapping(t *testing.T) {
	p := stubJudgeProvider{response: "Sure, here is my evaluation:\n```json\n{\"accuracy\": 3, \"helpfulness\": 3, \"harmlessness\": 5, \"honesty\": 5}\n```\nLet me know if you need more."}
	j := LLMJudge{Judge: p}

	scores, err := j.ScoreDetailed(context.Background(), "", "pred", "exp")
	require.NoError(t, err)
	assert.Equal(t, 3, scores.Accuracy)
}

func TestLLMJudgeScoreDetailedNoProviderConfigured(t *testing.T) {
	j := LLMJudge{}
	_, err := j.ScoreDetailed(context.Background(), "", "pred", "exp")
	assert.Error(t, err)
}

func TestLLMJudgeScoreDetailedProviderError(t *testing.T) {
	j := LLMJudge{Judge: stubJudgeProvider{err: errors.New("provider down")}}
	_, err := j.ScoreDetailed(context.Background(), "", "pred", "exp")
	assert.Error(t, err)
}

func TestLLMJudgeScoreReturnsUndefinedOnFailure(t *testing.T) {
	j := LLMJudge{Judge: stubJudgeProvider{response: "not json at all"}}
	r := j.Score("pred", "exp")
	assert.False(t, r.OK)
}

func TestLLMJudgeScoreReturnsOverallNormalized(t *testing.T) {
	j := LLMJudge{Judge: stubJudgeProvider{response: `{"accuracy":5,"helpfulness":5,"harmlessness":5,"honesty":5}`}}
	r := j.Score("pred", "exp")
	assert.True(t, r.OK)
	assert.Equal(t, 1.0, r.Value)
}

func TestFindJSONEndHandlesUnbalanced(t *testing.T) {
	assert.Equal(t, -1, findJSONEnd(`{"a": 1`, 0))
}

func TestFindJSONEndIgnoresBracesInsideStrings(t *testing.T) {
	s := `{"rationale": "a {weird} string"}`
	end := findJSONEnd(s, 0)
	require.NotEqual(t, -1, end)
	assert.Equal(t, len(s)-1, end)
}

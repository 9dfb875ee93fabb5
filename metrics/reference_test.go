package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	m := ExactMatch{}
	assert.Equal(t, "exact_match", m.Name())

	r := m.Score("Paris", "paris")
	assert.True(t, r.OK)
	assert.Equal(t, 1.0, r.Value)

	r = m.Score("London", "Paris")
	assert.True(t, r.OK)
	assert.Equal(t, 0.0, r.Value)

	r = m.Score("anything", "")
	assert.False(t, r.OK)
}

func TestBLEUIdenticalTextScoresHigh(t *testing.T) {
	m := BLEU{}
	assert.Equal(t, "bleu", m.Name())

	r := m.Score("the quick brown fox jumps over the lazy dog", "the quick brown fox jumps over the lazy dog")
	assert.True(t, r.OK)
	assert.InDelta(t, 1.0, r.Value, 0.01)
}

func TestBLEUCompletelyDifferentTextScoresLow(t *testing.T) {
	m := BLEU{}
	r := m.Score("completely unrelated text here", "the quick brown fox jumps over the lazy dog")
	assert.True(t, r.OK)
	assert.Less(t, r.Value, 0.5)
}

func TestBLEUNoReferenceIsUndefined(t *testing.T) {
	r := BLEU{}.Score("anything", "")
	assert.False(t, r.OK)
}

func TestBLEUEmptyCandidateScoresZero(t *testing.T) {
	r := BLEU{}.Score("", "the quick brown fox")
	assert.True(t, r.OK)
	assert.Equal(t, 0.0, r.Value)
}

func TestRougeLIdenticalTextScoresOne(t *testing.T) {
	m := RougeL{}
	assert.Equal(t, "rouge_l", m.Name())

	r := m.Score("the cat sat on the mat", "the cat sat on the mat")
	assert.True(t, r.OK)
	assert.Equal(t, 1.0, r.Value)
}

func TestRougeLPartialOverlap(t *testing.T) {
	r := RougeL{}.Score("the cat sat", "the cat sat on the mat")
	assert.True(t, r.OK)
	assert.Greater(t, r.Value, 0.0)
	assert.Less(t, r.Value, 1.0)
}

func TestRougeLNoOverlapScoresZero(t *testing.T) {
	r := RougeL{}.Score("completely different", "the cat sat on the mat")
	assert.True(t, r.OK)
	assert.Equal(t, 0.0, r.Value)
}

func TestLCSLength(t *testing.T) {
	assert.Equal(t, 3, lcsLength([]string{"a", "b", "c"}, []string{"a", "x", "b", "y", "c"}))
	assert.Equal(t, 0, lcsLength([]string{"a"}, []string{"b"}))
}

package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazkozdev/promptstudio/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func runAt(promptID string, ts time.Time, metric string, value float64) core.EvaluationRun {
	return core.EvaluationRun{
		PromptID: promptID, DatasetID: "ds1", Timestamp: ts,
		Metrics: map[string]float64{metric: value},
	}
}

func TestSaveEvaluationAssignsIDAndTimestampWhenMissing(t *testing.T) {
	s := newTestStore(t)
	id, err := s.SaveEvaluation(core.EvaluationRun{PromptID: "p1", DatasetID: "d1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestSaveEvaluationPreservesExplicitID(t *testing.T) {
	s := newTestStore(t)
	id, err := s.SaveEvaluation(core.EvaluationRun{RunID: "fixed-id", PromptID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestGetPromptHistoryReturnsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC()
	_, err := s.SaveEvaluation(runAt("p1", base.Add(-2*time.Hour), "m", 1))
	require.NoError(t, err)
	_, err = s.SaveEvaluation(runAt("p1", base.Add(-1*time.Hour), "m", 2))
	require.NoError(t, err)
	_, err = s.SaveEvaluation(runAt("p1", base, "m", 3))
	require.NoError(t, err)

	runs, err := s.GetPromptHistory("p1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 3.0, runs[0].Metrics["m"])
	assert.Equal(t, 1.0, runs[2].Metrics["m"])
}

func TestGetPromptHistoryRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := s.SaveEvaluation(runAt("p1", base.Add(time.Duration(i)*time.Minute), "m", float64(i)))
		require.NoError(t, err)
	}
	runs, err := s.GetPromptHistory("p1", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetPromptHistoryFiltersByPromptID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveEvaluation(runAt("p1", time.Now().UTC(), "m", 1))
	require.NoError(t, err)
	_, err = s.SaveEvaluation(runAt("p2", time.Now().UTC(), "m", 2))
	require.NoError(t, err)

	runs, err := s.GetPromptHistory("p1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "p1", runs[0].PromptID)
}

func TestGetDatasetHistoryFiltersByDatasetID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveEvaluation(core.EvaluationRun{PromptID: "p1", DatasetID: "dsA", Timestamp: time.Now().UTC()})
	require.NoError(t, err)
	_, err = s.SaveEvaluation(core.EvaluationRun{PromptID: "p1", DatasetID: "dsB", Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	runs, err := s.GetDatasetHistory("dsA", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "dsA", runs[0].DatasetID)
}

func TestPruneTombstonesOldEntriesWithoutDeletingFiles(t *testing.T) {
	s := newTestStore(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	id, err := s.SaveEvaluation(runAt("p1", old, "m", 1))
	require.NoError(t, err)
	_, err = s.SaveEvaluation(runAt("p1", time.Now().UTC(), "m", 2))
	require.NoError(t, err)

	n, err := s.Prune(time.Now().UTC().Add(-1 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := s.GetPromptHistory("p1", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "tombstoned run should be excluded from history")

	// the record file itself still physically exists
	_, loadErr := s.loadRun(s.recordPath(id))
	assert.NoError(t, loadErr)
}

func TestPruneIsIdempotentWhenNothingToTombstone(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveEvaluation(runAt("p1", time.Now().UTC(), "m", 1))
	require.NoError(t, err)

	n, err := s.Prune(time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestVerifyReportsMissingRecordFiles(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveEvaluation(runAt("p1", time.Now().UTC(), "m", 1))
	require.NoError(t, err)
	// Corrupt the index by appending an entry pointing nowhere.
	entries, err := s.readIndex()
	require.NoError(t, err)
	entries = append(entries, IndexEntry{RunID: "ghost", Path: s.recordPath("ghost"), Timestamp: time.Now().UTC()})
	data, err := json.MarshalIndent(entries, "", "  ")
	require.NoError(t, err)
	require.NoError(t, atomicWrite(s.indexPath(), data))

	problems, err := s.Verify()
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "ghost")
}

func TestVerifyCleanStoreReportsNoProblems(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveEvaluation(runAt("p1", time.Now().UTC(), "m", 1))
	require.NoError(t, err)
	problems, err := s.Verify()
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestReadIndexOnFreshStoreReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.readIndex()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

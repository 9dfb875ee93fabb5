package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONDatasetParsesExamples(t *testing.T) {
	path := writeTempFile(t, "ds.json", `{
		"task_name": "support-tickets",
		"schema_version": "1",
		"examples": [
			{"input": {"text": "refund my order"}, "ideal_output": {"label": "billing"}},
			{"input": {"text": "app crashes", "context": "ios"}, "ideal_output": {"label": "bug"}}
		]
	}`)

	ds, err := loadJSONDataset(path)
	require.NoError(t, err)
	assert.Equal(t, "support-tickets", ds.ID)
	require.Len(t, ds.Examples, 2)
	assert.Equal(t, "refund my order", ds.Examples[0].Text())
	assert.Equal(t, "billing", ds.Examples[0].Expected)
	assert.Equal(t, "ios", ds.Examples[1].Input["context"])
}

func TestLoadJSONDatasetWithoutIdealOutputLeavesExpectedNil(t *testing.T) {
	path := writeTempFile(t, "ds.json", `{"task_name": "t", "examples": [{"input": {"text": "hi"}}]}`)
	ds, err := loadJSONDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Examples, 1)
	assert.Nil(t, ds.Examples[0].Expected)
}

func TestLoadJSONDatasetInvalidJSONFails(t *testing.T) {
	path := writeTempFile(t, "ds.json", `{not json`)
	_, err := loadJSONDataset(path)
	assert.Error(t, err)
}

func TestLoadJSONDatasetEmptyInputFailsValidation(t *testing.T) {
	path := writeTempFile(t, "ds.json", `{"task_name": "t", "examples": [{"input": {}}]}`)
	_, err := loadJSONDataset(path)
	assert.Error(t, err)
}

func TestLoadCSVDatasetParsesRowsAndMetadata(t *testing.T) {
	path := writeTempFile(t, "ds.csv", "input,expected_output,difficulty\nrefund my order,billing,easy\napp crashes,bug,hard\n")
	ds, err := loadCSVDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Examples, 2)
	assert.Equal(t, "refund my order", ds.Examples[0].Text())
	assert.Equal(t, "billing", ds.Examples[0].Expected)
	assert.Equal(t, "easy", ds.Examples[0].Metadata["difficulty"])
}

func TestLoadCSVDatasetEmptyFileFails(t *testing.T) {
	path := writeTempFile(t, "ds.csv", "")
	_, err := loadCSVDataset(path)
	assert.Error(t, err)
}

func TestLoadDatasetDispatchesOnExtension(t *testing.T) {
	jsonPath := writeTempFile(t, "ds.json", `{"task_name": "t", "examples": [{"input": {"text": "hi"}}]}`)
	ds, err := loadDataset(jsonPath)
	require.NoError(t, err)
	assert.Len(t, ds.Examples, 1)

	csvPath := writeTempFile(t, "ds.csv", "input,expected_output\nhi,ok\n")
	ds, err = loadDataset(csvPath)
	require.NoError(t, err)
	assert.Len(t, ds.Examples, 1)
}

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kazkozdev/promptstudio/core"
)

// datasetDoc mirrors spec.md §6.2's JSON dataset document.
type datasetDoc struct {
	TaskName      string `json:"task_name"`
	SchemaVersion string `json:"schema_version"`
	Examples      []struct {
		Input struct {
			Text     string                 `json:"text"`
			Context  interface{}            `json:"context,omitempty"`
			Metadata map[string]interface{} `json:"metadata,omitempty"`
		} `json:"input"`
		IdealOutput *struct {
			Label       interface{} `json:"label"`
			Explanation *string     `json:"explanation,omitempty"`
		} `json:"ideal_output,omitempty"`
	} `json:"examples"`
}

// loadDataset reads a dataset file, dispatching on extension: .json per
// the §6.2 document shape, .csv with a header row of
// input,expected_output,<metadata...>.
func loadDataset(path string) (core.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSVDataset(path)
	default:
		return loadJSONDataset(path)
	}
}

func loadJSONDataset(path string) (core.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Dataset{}, err
	}
	var doc datasetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}

	dataset := core.Dataset{ID: doc.TaskName, Name: doc.TaskName, Version: 1}
	for i, ex := range doc.Examples {
		if ex.Input.Text == "" {
			return core.Dataset{}, fmt.Errorf("dataset %s: example %d has empty input.text", path, i)
		}
		input := map[string]interface{}{"text": ex.Input.Text}
		if ex.Input.Context != nil {
			input["context"] = ex.Input.Context
		}
		for k, v := range ex.Input.Metadata {
			input[k] = v
		}
		example := core.Example{Input: input}
		if ex.IdealOutput != nil {
			example.Expected = ex.IdealOutput.Label
		}
		dataset.Examples = append(dataset.Examples, example)
	}
	return dataset, dataset.Validate()
}

func loadCSVDataset(path string) (core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Dataset{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return core.Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	if len(rows) == 0 {
		return core.Dataset{}, fmt.Errorf("dataset %s: empty CSV", path)
	}

	header := rows[0]
	dataset := core.Dataset{ID: filepath.Base(path), Name: filepath.Base(path), Version: 1}
	for _, row := range rows[1:] {
		example := core.Example{Input: map[string]interface{}{}}
		for i, col := range header {
			if i >= len(row) {
				continue
			}
			switch strings.ToLower(col) {
			case "input":
				example.Input["text"] = row[i]
			case "expected_output":
				example.Expected = row[i]
			default:
				if example.Metadata == nil {
					example.Metadata = map[string]string{}
				}
				example.Metadata[col] = row[i]
			}
		}
		dataset.Examples = append(dataset.Examples, example)
	}
	return dataset, dataset.Validate()
}

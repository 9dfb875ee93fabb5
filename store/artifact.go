package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kazkozdev/promptstudio/core"
)

// ArtifactIndexEntry is one line of artifacts/index.json.
type ArtifactIndexEntry struct {
	ArtifactVersionID string    `json:"artifact_version_id"`
	PromptID          string    `json:"prompt_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Path              string    `json:"path"`
	Tombstone         bool      `json:"tombstone,omitempty"`
}

// ArtifactMetadata is metadata.json within one artifact package.
type ArtifactMetadata struct {
	ArtifactVersionID string                 `json:"artifact_version_id"`
	PromptID          string                 `json:"prompt_id,omitempty"`
	MeasuredMetric    float64                `json:"measured_metric"`
	Cost              float64                `json:"cost"`
	TaskAnalysis      map[string]interface{} `json:"task_analysis,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

var artifactSeqMu sync.Mutex

// nextArtifactVersionID computes v_YYYYMMDD_NNN with NNN monotonic per
// day, per spec.md §6.3, by scanning the existing artifact index for
// today's highest sequence number.
func (s *Store) nextArtifactVersionID(now time.Time) (string, error) {
	artifactSeqMu.Lock()
	defer artifactSeqMu.Unlock()

	day := now.UTC().Format("20060102")
	entries, err := s.readArtifactIndex()
	if err != nil {
		return "", err
	}
	max := 0
	prefix := "v_" + day + "_"
	for _, e := range entries {
		if len(e.ArtifactVersionID) >= len(prefix) && e.ArtifactVersionID[:len(prefix)] == prefix {
			var n int
			fmt.Sscanf(e.ArtifactVersionID[len(prefix):], "%d", &n)
			if n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1), nil
}

func (s *Store) artifactsRoot() string      { return filepath.Join(s.root, "artifacts") }
func (s *Store) artifactIndexPath() string  { return filepath.Join(s.artifactsRoot(), "index.json") }
func (s *Store) artifactDir(id string) string {
	return filepath.Join(s.artifactsRoot(), id)
}

func (s *Store) readArtifactIndex() ([]ArtifactIndexEntry, error) {
	data, err := os.ReadFile(s.artifactIndexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []ArtifactIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("store: parse artifact index: %w", err)
	}
	return entries, nil
}

func (s *Store) appendArtifactIndex(entry ArtifactIndexEntry) error {
	entries, err := s.readArtifactIndex()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.artifactIndexPath(), data)
}

// SaveArtifact writes a Compiled Program as a package per spec.md
// §6.3's layout, returning its artifact_version_id.
func (s *Store) SaveArtifact(cp core.CompiledProgram, evalResults core.EvaluationRun, meta ArtifactMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	id, err := s.nextArtifactVersionID(now)
	if err != nil {
		return "", err
	}
	meta.ArtifactVersionID = id
	meta.CreatedAt = now

	dir := s.artifactDir(id)
	if err := os.MkdirAll(filepath.Join(dir, "demos"), 0o755); err != nil {
		return "", err
	}

	files := map[string]interface{}{
		"metadata.json":         meta,
		"signature.json":        cp.Signatures,
		"program.json":          cp.Spec,
		"optimizer_config.json": cp.OptimizerConfig,
		"eval_results.json":     evalResults,
	}
	for name, payload := range files {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", err
		}
		if err := atomicWrite(filepath.Join(dir, name), data); err != nil {
			return "", err
		}
	}
	// compiled_program.bin: the serialized optimizer output. This
	// implementation's "optimizer" is the bootstrap demo selector
	// (orchestrator package), so its binary form is just the Demos
	// slice gob-free JSON — kept as .bin per the §6.3 layout name, not
	// because the encoding is actually binary.
	demoData, err := json.Marshal(cp.Demos)
	if err != nil {
		return "", err
	}
	if err := atomicWrite(filepath.Join(dir, "compiled_program.bin"), demoData); err != nil {
		return "", err
	}
	for i, demo := range cp.Demos {
		data, err := json.MarshalIndent(demo, "", "  ")
		if err != nil {
			continue
		}
		_ = atomicWrite(filepath.Join(dir, "demos", fmt.Sprintf("%03d.json", i)), data)
	}

	entry := ArtifactIndexEntry{ArtifactVersionID: id, PromptID: meta.PromptID, Timestamp: now, Path: dir}
	if err := s.appendArtifactIndex(entry); err != nil {
		return "", err
	}
	return id, nil
}

// LoadedArtifact is the in-memory reconstruction of a saved package.
type LoadedArtifact struct {
	Metadata        ArtifactMetadata
	Spec            core.ProgramSpec
	Signatures      []core.Signature
	OptimizerConfig map[string]interface{}
	EvalResults     core.EvaluationRun
	Demos           []core.Example
}

// resolveArtifactDir finds the physical directory backing
// artifactVersionID, following the index rather than assuming a
// version ID always names its own directory — a rollback entry points
// at the directory of the artifact it rolls back to.
func (s *Store) resolveArtifactDir(artifactVersionID string) string {
	entries, err := s.readArtifactIndex()
	if err == nil {
		for _, e := range entries {
			if e.ArtifactVersionID == artifactVersionID {
				return e.Path
			}
		}
	}
	return s.artifactDir(artifactVersionID)
}

// LoadArtifact reconstructs the package at artifactVersionID.
func (s *Store) LoadArtifact(artifactVersionID string) (LoadedArtifact, error) {
	dir := s.resolveArtifactDir(artifactVersionID)
	var out LoadedArtifact

	if err := readJSON(filepath.Join(dir, "metadata.json"), &out.Metadata); err != nil {
		return out, err
	}
	if err := readJSON(filepath.Join(dir, "program.json"), &out.Spec); err != nil {
		return out, err
	}
	if err := readJSON(filepath.Join(dir, "signature.json"), &out.Signatures); err != nil {
		return out, err
	}
	if err := readJSON(filepath.Join(dir, "optimizer_config.json"), &out.OptimizerConfig); err != nil {
		return out, err
	}
	if err := readJSON(filepath.Join(dir, "eval_results.json"), &out.EvalResults); err != nil {
		return out, err
	}
	if err := readJSON(filepath.Join(dir, "compiled_program.bin"), &out.Demos); err != nil {
		return out, err
	}
	return out, nil
}

func readJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// ListArtifacts returns every non-tombstoned artifact entry, most
// recent first.
func (s *Store) ListArtifacts() ([]ArtifactIndexEntry, error) {
	entries, err := s.readArtifactIndex()
	if err != nil {
		return nil, err
	}
	var live []ArtifactIndexEntry
	for _, e := range entries {
		if !e.Tombstone {
			live = append(live, e)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Timestamp.After(live[j].Timestamp) })
	return live, nil
}

// Rollback marks toArtifactID as the active artifact for promptID by
// recording a new index entry pointing at the same package directory
// with an updated timestamp — history is never rewritten, a rollback
// is an append, not a mutation.
func (s *Store) Rollback(promptID, toArtifactID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.LoadArtifact(toArtifactID)
	if err != nil {
		return "", fmt.Errorf("store: rollback target %s: %w", toArtifactID, err)
	}
	now := time.Now().UTC()
	newID, err := s.nextArtifactVersionID(now)
	if err != nil {
		return "", err
	}

	// Point the new version at the same physical directory as the
	// rollback target: rollback is a pure index operation, it does not
	// duplicate artifact bytes.
	entry := ArtifactIndexEntry{
		ArtifactVersionID: newID,
		PromptID:          promptID,
		Timestamp:         now,
		Path:              s.resolveArtifactDir(toArtifactID),
	}
	if err := s.appendArtifactIndex(entry); err != nil {
		return "", err
	}
	_ = loaded // loaded is validated above; the rollback itself only needs the path
	return newID, nil
}

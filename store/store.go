// Package store implements the Artifact & History Store of spec.md
// §4.3: an append-only record of Evaluation Runs and Compiled Programs
// with atomic writes (temp file, fsync, rename, then index append) and
// indexed regression/trend queries.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kazkozdev/promptstudio/core"
)

// IndexEntry is one line of index.json: enough to locate and filter a
// run without reading its full record.
type IndexEntry struct {
	RunID     string    `json:"run_id"`
	PromptID  string    `json:"prompt_id"`
	DatasetID string    `json:"dataset_id"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Tombstone bool      `json:"tombstone,omitempty"`
}

// Store is a durable, append-only record rooted at a directory.
// Concurrent readers never block on writers; concurrent writers within
// one process are serialized by mu, per spec.md §4.3/§5. Cross-process
// coordination is out of scope (DESIGN.md Open Question #3).
type Store struct {
	root string
	mu   sync.Mutex

	secondary *sqliteIndex // optional, nil when disabled
}

// New opens (and if necessary creates) a Store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "artifacts"), 0o755); err != nil {
		return nil, fmt.Errorf("store: create artifacts dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// WithSecondaryIndex attaches an optional sqlite-backed index that
// SaveEvaluation feeds; DetectRegression and GetTrend do not read it.
// index.json stays the source of truth; this index is derived and
// rebuildable (DESIGN.md).
func (s *Store) WithSecondaryIndex(idx *sqliteIndex) *Store {
	s.secondary = idx
	return s
}

func (s *Store) indexPath() string    { return filepath.Join(s.root, "index.json") }
func (s *Store) recordsDir() string   { return filepath.Join(s.root, "runs") }
func (s *Store) recordPath(id string) string {
	return filepath.Join(s.recordsDir(), id+".json")
}

// atomicWrite writes data to path via a temp file, fsync, and rename,
// the two-step protocol spec.md §4.3 mandates so readers never observe
// a partial write.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("store: parse index: %w", err)
	}
	return entries, nil
}

func (s *Store) appendIndex(entry IndexEntry) error {
	entries, err := s.readIndex()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.indexPath(), data)
}

// SaveEvaluation persists run and appends it to the index, returning
// its run_id. Records are immutable once written: no update path
// exists, only supersession via a new run.
func (s *Store) SaveEvaluation(run core.EvaluationRun) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", err
	}
	path := s.recordPath(run.RunID)
	if err := atomicWrite(path, data); err != nil {
		return "", fmt.Errorf("store: write record: %w", err)
	}

	entry := IndexEntry{RunID: run.RunID, PromptID: run.PromptID, DatasetID: run.DatasetID, Timestamp: run.Timestamp, Path: path}
	if err := s.appendIndex(entry); err != nil {
		return "", fmt.Errorf("store: append index: %w", err)
	}
	if s.secondary != nil {
		_ = s.secondary.Index(run) // best-effort; index.json remains authoritative
	}
	return run.RunID, nil
}

func (s *Store) loadRun(path string) (core.EvaluationRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.EvaluationRun{}, err
	}
	var run core.EvaluationRun
	if err := json.Unmarshal(data, &run); err != nil {
		return core.EvaluationRun{}, err
	}
	return run, nil
}

// GetPromptHistory returns up to limit runs for promptID, most recent
// first.
func (s *Store) GetPromptHistory(promptID string, limit int) ([]core.EvaluationRun, error) {
	return s.history(func(e IndexEntry) bool { return e.PromptID == promptID }, limit)
}

// GetDatasetHistory returns up to limit runs for datasetID, most
// recent first.
func (s *Store) GetDatasetHistory(datasetID string, limit int) ([]core.EvaluationRun, error) {
	return s.history(func(e IndexEntry) bool { return e.DatasetID == datasetID }, limit)
}

func (s *Store) history(match func(IndexEntry) bool, limit int) ([]core.EvaluationRun, error) {
	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	var filtered []IndexEntry
	for _, e := range entries {
		if e.Tombstone {
			continue
		}
		if match(e) {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Timestamp.After(filtered[j].Timestamp) })
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	runs := make([]core.EvaluationRun, 0, len(filtered))
	for _, e := range filtered {
		run, err := s.loadRun(e.Path)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Prune tombstones every run recorded before cutoff. Tombstoned
// entries are never physically deleted; history never rewrites, per
// spec.md §4.3's invariant.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readIndex()
	if err != nil {
		return 0, err
	}
	pruned := 0
	for i := range entries {
		if !entries[i].Tombstone && entries[i].Timestamp.Before(cutoff) {
			entries[i].Tombstone = true
			pruned++
		}
	}
	if pruned == 0 {
		return 0, nil
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := atomicWrite(s.indexPath(), data); err != nil {
		return 0, err
	}
	return pruned, nil
}

// Verify confirms that every live index entry's record file exists and
// parses, returning one problem line per entry that fails. Record files
// that the index does not list are not detected.
func (s *Store) Verify() ([]string, error) {
	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	var problems []string
	for _, e := range entries {
		if e.Tombstone {
			continue
		}
		if _, err := s.loadRun(e.Path); err != nil {
			problems = append(problems, fmt.Sprintf("run %s: %v", e.RunID, err))
		}
	}
	return problems, nil
}

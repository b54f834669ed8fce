// Package priorityagent implements the PRIORITY agent variant: it wraps
// pkg/triage's impact scoring and flaky detection behind the scenario-step
// action vocabulary, persisting a JSON-file-backed history of past
// assignments keyed by scenario ID (spec.md §5/§6).
package priorityagent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentictest/orchestrator/pkg/triage"
)

// Store is a mutex-guarded, file-backed Record<scenarioId,
// PriorityAssignment[]> history, grounded on the teacher's queue/pool
// pattern of a mutex-guarded in-memory map with serialized writes flushed
// to disk (pkg/queue/pool.go's activeSessions map, generalized from
// in-memory-only to persisted).
type Store struct {
	path string

	mu      sync.Mutex
	records map[string][]triage.Assignment
	loaded  bool
}

// NewStore builds a Store backed by path. path defaults to
// "${cwd}/.priority-history.json" when empty.
func NewStore(path string) *Store {
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, ".priority-history.json")
		} else {
			path = ".priority-history.json"
		}
	}
	return &Store{path: path, records: map[string][]triage.Assignment{}}
}

// load reads the history file once, tolerating a missing file (empty
// history) but not a corrupt one.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &s.records)
}

// Append records a in scenarioId's history and flushes the whole store to
// disk, serialized against concurrent writers.
func (s *Store) Append(scenarioID string, a triage.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	s.records[scenarioID] = append(s.records[scenarioID], a)
	return s.flush()
}

// History returns a copy of scenarioID's recorded assignments, oldest first.
func (s *Store) History(scenarioID string) ([]triage.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	records := s.records[scenarioID]
	out := make([]triage.Assignment, len(records))
	copy(out, records)
	return out, nil
}

// Latest returns every scenario's most recent assignment.
func (s *Store) Latest() ([]triage.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]triage.Assignment, 0, len(s.records))
	for _, records := range s.records {
		if len(records) > 0 {
			out = append(out, records[len(records)-1])
		}
	}
	return out, nil
}

func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Package memory implements an in-process domain.RunStore used for tests and
// ephemeral runs.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"multicompare/pkg/domain"
)

var _ domain.RunStore = (*Store)(nil)

// Store keeps run records in memory. Records are stored encoded so callers
// can never alias stored maps or slices.
type Store struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string][]byte)}
}

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(_ context.Context, run domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.runs[run.ID] = payload
	s.mu.Unlock()
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(_ context.Context, id string) (domain.RunRecord, error) {
	s.mu.RLock()
	payload, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return domain.RunRecord{}, domain.NotFound(id)
	}
	var run domain.RunRecord
	if err := json.Unmarshal(payload, &run); err != nil {
		return domain.RunRecord{}, err
	}
	return run, nil
}

// ListRuns returns summaries of all runs, oldest first.
func (s *Store) ListRuns(_ context.Context) ([]domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RunSummary, 0, len(s.runs))
	for _, payload := range s.runs {
		var run domain.RunRecord
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, err
		}
		out = append(out, run.Summary())
	}
	domain.SortSummaries(out)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

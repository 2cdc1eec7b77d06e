package store

import (
	"sync"

	"github.com/osm-exports/exportctl/internal/models"
)

// RunStore caches the most recently fetched run list per job. Each fetch
// fully replaces the prior list for that job; there is no merge logic.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string][]*models.Run
}

// NewRunStore creates an empty store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string][]*models.Run)}
}

// SetRuns replaces the run list for a job.
func (s *RunStore) SetRuns(jobUID string, runs []*models.Run) {
	s.mu.Lock()
	s.runs[jobUID] = runs
	s.mu.Unlock()
}

// Runs returns the cached run list for a job, most recent first.
func (s *RunStore) Runs(jobUID string) []*models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.runs[jobUID]
	out := make([]*models.Run, len(runs))
	copy(out, runs)
	return out
}

// Seen reports whether a run list has been stored for the job yet.
func (s *RunStore) Seen(jobUID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.runs[jobUID]
	return ok
}

// Latest returns the most recent run for a job, or nil.
func (s *RunStore) Latest(jobUID string) *models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.LatestRun(s.runs[jobUID])
}

// Clear drops the cached runs for a job.
func (s *RunStore) Clear(jobUID string) {
	s.mu.Lock()
	delete(s.runs, jobUID)
	s.mu.Unlock()
}

package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
)

// Store is an in-memory implementation of RunStore.
// It keeps run history in memory and is safe for concurrent use.
// Data is lost on service restart - for persistence, use a database-backed store.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*jobs.Run
}

// NewStore creates a new in-memory run store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string]*jobs.Run),
	}
}

// SaveRun implements the RunStore interface.
// It saves or updates a run in memory.
func (s *Store) SaveRun(ctx context.Context, run *jobs.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Create a copy to avoid external modifications
	runCopy := *run
	s.runs[run.RunID] = &runCopy

	return nil
}

// GetRun implements the RunStore interface.
// It retrieves a run by ID from memory.
func (s *Store) GetRun(ctx context.Context, runID string) (*jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	// Return a copy to avoid external modifications
	runCopy := *run
	return &runCopy, nil
}

// ListRuns implements the RunStore interface.
// It retrieves runs with optional filtering from memory, newest first.
func (s *Store) ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.Run

	for _, run := range s.runs {
		// Apply filters
		if filter.JobName != "" && run.JobName != filter.JobName {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}

		// Create a copy to avoid external modifications
		runCopy := *run
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	// Apply limit and offset
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.Run{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Ensure Store implements RunStore interface.
var _ jobs.RunStore = (*Store)(nil)

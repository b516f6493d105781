// Package inmemory provides the in-memory store driver used by tests and
// local runs.
package inmemory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It keeps records in memory and is safe for concurrent use.
// Data is lost on restart - use the postgres or bigquery driver for persistence.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.Transaction
	order   []uuid.UUID
	batches [][]uuid.UUID
}

// NewStore creates a new in-memory transaction store.
func NewStore() *Store {
	return &Store{
		records: make(map[uuid.UUID]domain.Transaction),
	}
}

// BulkInsert implements the Store interface. Each batch commits as one unit
// under the write lock, and the identifiers it committed are recorded so the
// batching behavior can be observed.
func (s *Store) BulkInsert(ctx context.Context, records []domain.Transaction, batchSize int) (int, error) {
	return store.RunBatches(ctx, records, batchSize, 1, s.insertBatch)
}

func (s *Store) insertBatch(ctx context.Context, batch []domain.Transaction) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	committed := make([]uuid.UUID, 0, len(batch))
	for _, tx := range batch {
		// Identifiers already stored are filtered out, not overwritten.
		if _, exists := s.records[tx.ID]; exists {
			continue
		}
		s.records[tx.ID] = tx
		s.order = append(s.order, tx.ID)
		committed = append(committed, tx.ID)
	}
	s.batches = append(s.batches, committed)
	return len(committed), nil
}

// GetAll implements the Store interface. It returns copies in insertion
// order to avoid external modifications.
func (s *Store) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.records[id])
	}
	return result, nil
}

// GetAllIDs implements the Store interface.
func (s *Store) GetAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, len(s.order))
	copy(ids, s.order)
	return ids, nil
}

// Exists implements the Store interface.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.records[id]
	return exists, nil
}

// DeleteByID implements the Store interface. It reports false when the
// record is absent.
func (s *Store) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return false, nil
	}
	s.remove(id)
	return true, nil
}

// DeleteByIDs implements the Store interface.
func (s *Store) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, store.ErrNoIDs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, batch := range store.Chunk(ids, store.DeleteBatchSize) {
		for _, id := range batch {
			if _, exists := s.records[id]; !exists {
				continue
			}
			s.remove(id)
			deleted++
		}
	}
	return deleted, nil
}

// remove must be called with the write lock held.
func (s *Store) remove(id uuid.UUID) {
	delete(s.records, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Batches returns the identifier sets committed by each insert batch, in
// commit order.
func (s *Store) Batches() [][]uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]uuid.UUID, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]uuid.UUID(nil), b...)
	}
	return out
}

// Ensure Store implements the store contract.
var _ store.Store = (*Store)(nil)

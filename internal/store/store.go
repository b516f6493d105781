// Package store defines the bulk persistence contract for transactions and
// the batching helpers shared by its drivers.
package store

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// ErrNoIDs rejects delete calls carrying a nil or empty identifier collection.
var ErrNoIDs = errors.New("store: id collection must not be nil or empty")

// DeleteBatchSize bounds how many identifiers one delete statement carries.
const DeleteBatchSize = 1000

// Store persists transactions in bounded transactional batches.
type Store interface {
	// BulkInsert splits records into batchSize chunks. Records whose
	// identifier is already stored are filtered out per batch; each batch
	// commits on its own, so committed batches survive a sibling's failure.
	// Returns the number of rows actually inserted.
	BulkInsert(ctx context.Context, records []domain.Transaction, batchSize int) (int, error)
	// GetAll returns every stored record.
	GetAll(ctx context.Context) ([]domain.Transaction, error)
	// GetAllIDs returns identifiers only, for cheap purge planning.
	GetAllIDs(ctx context.Context) ([]uuid.UUID, error)
	// Exists reports whether a record with the identifier is stored.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteByID removes one record. An absent record reports false, not an
	// error.
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteByIDs removes records in batches and returns the true count of
	// rows actually deleted. Fails with ErrNoIDs when ids is nil or empty.
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Chunk splits items into consecutive slices of at most size. The final
// chunk carries the remainder. A non-positive size yields a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}

	numChunks := (len(items) + size - 1) / size
	result := make([][]T, 0, numChunks)

	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		result = append(result, items[i:end])
	}

	return result
}

// RunBatches splits records into batchSize chunks and calls insert once per
// chunk with at most workers running concurrently. Chunks are independent:
// ones that commit stay committed even when a sibling fails. Returns the
// total inserted across every chunk that reported success.
func RunBatches(ctx context.Context, records []domain.Transaction, batchSize, workers int, insert func(context.Context, []domain.Transaction) (int, error)) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if workers <= 0 {
		workers = 1
	}

	var inserted int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, batch := range Chunk(records, batchSize) {
		g.Go(func() error {
			n, err := insert(ctx, batch)
			if err != nil {
				return err
			}
			atomic.AddInt64(&inserted, int64(n))
			return nil
		})
	}
	err := g.Wait()
	return int(atomic.LoadInt64(&inserted)), err
}

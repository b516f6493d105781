// Package postgres provides the PostgreSQL store driver built on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
)

// schema statements run one at a time; pgx's extended protocol rejects
// multi-statement strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
	transaction_id UUID PRIMARY KEY,
	user_id        UUID NOT NULL,
	occurred_at    TIMESTAMPTZ NOT NULL,
	amount         NUMERIC,
	category       TEXT NOT NULL,
	description    TEXT NOT NULL,
	merchant       TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_id_idx ON transactions (user_id)`,
}

const insertSQL = `
INSERT INTO transactions (transaction_id, user_id, occurred_at, amount, category, description, merchant)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const selectColumns = `transaction_id, user_id, occurred_at, amount, category, description, merchant`

// Store is the PostgreSQL implementation of store.Store. Every insert batch
// runs in its own transaction on its own pooled connection.
type Store struct {
	pool    *pgxpool.Pool
	workers int
}

// New connects a pool to the given DSN. Every connection registers the
// shopspring decimal codecs so NUMERIC columns scan into decimal values.
func New(ctx context.Context, dsn string, workers int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	return &Store{pool: pool, workers: workers}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the transactions schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// BulkInsert implements the Store interface. Batches run concurrently with
// bounded workers; each one filters identifiers already stored, inserts the
// remainder and commits before releasing its connection.
func (s *Store) BulkInsert(ctx context.Context, records []domain.Transaction, batchSize int) (int, error) {
	return store.RunBatches(ctx, records, batchSize, s.workers, s.insertBatch)
}

func (s *Store) insertBatch(ctx context.Context, batch []domain.Transaction) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
	}

	existing, err := existingIDs(ctx, tx, ids)
	if err != nil {
		return 0, err
	}

	b := &pgx.Batch{}
	inserted := 0
	for _, rec := range batch {
		if existing[rec.ID] {
			continue
		}
		b.Queue(insertSQL, rec.ID, rec.UserID, rec.OccurredAt, rec.Amount, rec.Category, rec.Description, rec.Merchant)
		inserted++
	}

	if inserted > 0 {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return 0, fmt.Errorf("postgres: inserting batch: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return inserted, nil
}

func existingIDs(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := tx.Query(ctx, `SELECT transaction_id FROM transactions WHERE transaction_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying existing ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scanning existing id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating existing ids: %w", err)
	}
	return existing, nil
}

// GetAll implements the Store interface.
func (s *Store) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM transactions ORDER BY occurred_at, transaction_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying transactions: %w", err)
	}
	defer rows.Close()

	var records []domain.Transaction
	for rows.Next() {
		var rec domain.Transaction
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.OccurredAt, &rec.Amount, &rec.Category, &rec.Description, &rec.Merchant); err != nil {
			return nil, fmt.Errorf("postgres: scanning transaction: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating transactions: %w", err)
	}
	return records, nil
}

// GetAllIDs implements the Store interface.
func (s *Store) GetAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT transaction_id FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating ids: %w", err)
	}
	return ids, nil
}

// Exists implements the Store interface.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking existence: %w", err)
	}
	return exists, nil
}

// DeleteByID implements the Store interface. An absent record reports false.
func (s *Store) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByIDs implements the Store interface. Deletion runs in bounded
// batches and the returned count reflects rows actually removed.
func (s *Store) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, store.ErrNoIDs
	}

	var deleted int64
	for _, batch := range store.Chunk(ids, store.DeleteBatchSize) {
		tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = ANY($1)`, batch)
		if err != nil {
			return deleted, fmt.Errorf("postgres: deleting batch: %w", err)
		}
		deleted += tag.RowsAffected()
	}
	return deleted, nil
}

// Ensure Store implements the store contract.
var _ store.Store = (*Store)(nil)

// Package bigquery provides the BigQuery store driver. BigQuery has no
// client-side transactions, so each insert batch is a single streaming-insert
// call: the call itself is the atomic commit unit.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
)

// Store is the BigQuery implementation of store.Store.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	workers int
}

// New creates a Store for the given project, dataset and table. It assumes
// Application Default Credentials are configured.
func New(ctx context.Context, project, dataset, table string, workers int) (*Store, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery: creating client: %w", err)
	}
	return &Store{client: client, project: project, dataset: dataset, table: table, workers: workers}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// qualifiedTable returns the backtick-quoted table reference for SQL text.
func (s *Store) qualifiedTable() string {
	return "`" + s.project + "." + s.dataset + "." + s.table + "`"
}

// Migrate creates the dataset and transaction table if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		"CREATE SCHEMA IF NOT EXISTS `" + s.project + "." + s.dataset + "`",
		`CREATE TABLE IF NOT EXISTS ` + s.qualifiedTable() + ` (
			transaction_id STRING NOT NULL,
			user_id        STRING NOT NULL,
			occurred_at    TIMESTAMP NOT NULL,
			amount         NUMERIC,
			category       STRING,
			description    STRING,
			merchant       STRING
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.runDML(ctx, s.client.Query(stmt)); err != nil {
			return fmt.Errorf("bigquery: migrating schema: %w", err)
		}
	}
	return nil
}

// BulkInsert implements the Store interface. Batches run concurrently with
// bounded workers; each batch filters identifiers already stored and streams
// the remainder in one inserter call.
func (s *Store) BulkInsert(ctx context.Context, records []domain.Transaction, batchSize int) (int, error) {
	return store.RunBatches(ctx, records, batchSize, s.workers, s.insertBatch)
}

func (s *Store) insertBatch(ctx context.Context, batch []domain.Transaction) (int, error) {
	ids := make([]uuid.UUID, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
	}

	existing, err := s.existingIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	rows := make([]*transactionRow, 0, len(batch))
	for _, rec := range batch {
		if existing[rec.ID] {
			continue
		}
		rows = append(rows, toRow(rec))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	inserter := s.client.DatasetInProject(s.project, s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("bigquery: inserting rows: %w", err)
	}
	return len(rows), nil
}

func (s *Store) existingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	q := s.client.Query(`SELECT transaction_id FROM ` + s.qualifiedTable() + ` WHERE transaction_id IN UNNEST(@ids)`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ids", Value: idStrings},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: querying existing ids: %w", err)
	}

	existing := make(map[uuid.UUID]bool)
	for {
		var r idRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iter next: %w", err)
		}
		id, err := uuid.Parse(r.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("bigquery: stored id %q is not a uuid: %w", r.TransactionID, err)
		}
		existing[id] = true
	}
	return existing, nil
}

// GetAll implements the Store interface.
func (s *Store) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	q := s.client.Query(`
		SELECT transaction_id, user_id, occurred_at, amount, category, description, merchant
		FROM ` + s.qualifiedTable() + `
		ORDER BY occurred_at, transaction_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: querying transactions: %w", err)
	}

	var records []domain.Transaction
	for {
		var r transactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iter next: %w", err)
		}
		rec, err := fromRow(&r)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetAllIDs implements the Store interface.
func (s *Store) GetAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	q := s.client.Query(`SELECT transaction_id FROM ` + s.qualifiedTable())

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: querying ids: %w", err)
	}

	var ids []uuid.UUID
	for {
		var r idRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iter next: %w", err)
		}
		id, err := uuid.Parse(r.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("bigquery: stored id %q is not a uuid: %w", r.TransactionID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Exists implements the Store interface.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	q := s.client.Query(`SELECT COUNT(1) > 0 AS found FROM ` + s.qualifiedTable() + ` WHERE transaction_id = @id`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id.String()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("bigquery: checking existence: %w", err)
	}

	var r struct {
		Found bool `bigquery:"found"`
	}
	if err := it.Next(&r); err != nil {
		return false, fmt.Errorf("bigquery: iter next: %w", err)
	}
	return r.Found, nil
}

// DeleteByID implements the Store interface. An absent record reports false.
func (s *Store) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	q := s.client.Query(`DELETE FROM ` + s.qualifiedTable() + ` WHERE transaction_id = @id`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id.String()},
	}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return false, fmt.Errorf("bigquery: deleting transaction: %w", err)
	}
	return affected > 0, nil
}

// DeleteByIDs implements the Store interface. Deletion runs in bounded
// batches and the returned count reflects rows actually removed.
func (s *Store) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, store.ErrNoIDs
	}

	var deleted int64
	for _, batch := range store.Chunk(ids, store.DeleteBatchSize) {
		idStrings := make([]string, len(batch))
		for i, id := range batch {
			idStrings[i] = id.String()
		}

		q := s.client.Query(`DELETE FROM ` + s.qualifiedTable() + ` WHERE transaction_id IN UNNEST(@ids)`)
		q.Parameters = []bigquery.QueryParameter{
			{Name: "ids", Value: idStrings},
		}

		affected, err := s.runDML(ctx, q)
		if err != nil {
			return deleted, fmt.Errorf("bigquery: deleting batch: %w", err)
		}
		deleted += affected
	}
	return deleted, nil
}

// runDML executes a DML query and returns the number of affected rows.
func (s *Store) runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}

// Ensure Store implements the store contract.
var _ store.Store = (*Store)(nil)

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
)

// newTestStore connects to the database named by ANALYZER_TEST_POSTGRES_DSN
// and starts from an empty transactions table. Tests are skipped when the
// variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ANALYZER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ANALYZER_TEST_POSTGRES_DSN not set; skipping postgres driver tests")
	}

	ctx := context.Background()
	s, err := New(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))
	_, err = s.pool.Exec(ctx, `TRUNCATE transactions`)
	require.NoError(t, err)
	return s
}

func sampleTx(amount string) domain.Transaction {
	tx := domain.Transaction{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		OccurredAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Category:    "Groceries",
		Description: "weekly shop",
		Merchant:    "Tesco",
	}
	if amount != "" {
		tx.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return tx
}

func TestBulkInsertAndGetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	withAmount := sampleTx("120.50")
	withNull := sampleTx("")

	n, err := s.BulkInsert(ctx, []domain.Transaction{withAmount, withNull}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := map[uuid.UUID]domain.Transaction{all[0].ID: all[0], all[1].ID: all[1]}

	got := byID[withAmount.ID]
	require.True(t, got.Amount.Valid)
	assert.True(t, got.Amount.Decimal.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, "weekly shop", got.Description)
	assert.True(t, got.OccurredAt.Equal(withAmount.OccurredAt))

	// Null amounts come back unspecified, not zero.
	assert.False(t, byID[withNull.ID].Amount.Valid)
}

func TestBulkInsert_FiltersAlreadyStoredIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, b := sampleTx("1"), sampleTx("2")

	n, err := s.BulkInsert(ctx, []domain.Transaction{a}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.BulkInsert(ctx, []domain.Transaction{a, b}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := s.GetAllIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestExistsAndDeleteByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleTx("5")

	ok, err := s.Exists(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.BulkInsert(ctx, []domain.Transaction{a}, 10)
	require.NoError(t, err)

	ok, err = s.Exists(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := s.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.DeleteByIDs(ctx, nil)
	assert.ErrorIs(t, err, store.ErrNoIDs)

	n, err := s.DeleteByIDs(ctx, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Zero(t, n)

	a, b := sampleTx("1"), sampleTx("2")
	_, err = s.BulkInsert(ctx, []domain.Transaction{a, b}, 10)
	require.NoError(t, err)

	n, err = s.DeleteByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

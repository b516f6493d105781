package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// amountScale is the fractional precision kept when converting amounts to
// and from the NUMERIC column.
const amountScale = 9

// idRow carries just the key column for existence and purge queries.
type idRow struct {
	TransactionID string `bigquery:"transaction_id"`
}

// transactionRow maps a transaction to the BigQuery schema. Amount is NUMERIC
// and nullable, which the client represents as *big.Rat.
type transactionRow struct {
	TransactionID string    `bigquery:"transaction_id"`
	UserID        string    `bigquery:"user_id"`
	OccurredAt    time.Time `bigquery:"occurred_at"`
	Amount        *big.Rat  `bigquery:"amount"`
	Category      string    `bigquery:"category"`
	Description   string    `bigquery:"description"`
	Merchant      string    `bigquery:"merchant"`
}

func toRow(rec domain.Transaction) *transactionRow {
	row := &transactionRow{
		TransactionID: rec.ID.String(),
		UserID:        rec.UserID.String(),
		OccurredAt:    rec.OccurredAt,
		Category:      rec.Category,
		Description:   rec.Description,
		Merchant:      rec.Merchant,
	}
	if rec.Amount.Valid {
		row.Amount = rec.Amount.Decimal.Rat()
	}
	return row
}

func fromRow(row *transactionRow) (domain.Transaction, error) {
	id, err := uuid.Parse(row.TransactionID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("bigquery: stored id %q is not a uuid: %w", row.TransactionID, err)
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("bigquery: stored user id %q is not a uuid: %w", row.UserID, err)
	}

	rec := domain.Transaction{
		ID:          id,
		UserID:      userID,
		OccurredAt:  row.OccurredAt,
		Category:    row.Category,
		Description: row.Description,
		Merchant:    row.Merchant,
	}
	if row.Amount != nil {
		amount, err := decimal.NewFromString(row.Amount.FloatString(amountScale))
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("bigquery: stored amount %v is not a decimal: %w", row.Amount, err)
		}
		rec.Amount = decimal.NullDecimal{Decimal: amount, Valid: true}
	}
	return rec, nil
}

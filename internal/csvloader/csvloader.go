// Package csvloader parses the transaction input document and rewrites single
// records in place during repair.
package csvloader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/source"
)

// Header is the required CSV header for the transaction input document.
const Header = "TransactionId,UserId,Date,Amount,Category,Description,Merchant"

const (
	numFields      = 7
	colID          = 0
	colUserID      = 1
	colDate        = 2
	colAmount      = 3
	colCategory    = 4
	colDescription = 5
	colMerchant    = 6
)

// LoadAll parses the whole document into transactions, materialized in full
// before returning. Structural problems (unreadable stream, bad header, wrong
// field count, malformed identifiers or dates) fail with a *ParseError.
func LoadAll(ctx context.Context, src source.Source) ([]domain.Transaction, error) {
	r, err := src.Open(ctx)
	if err != nil {
		return nil, &ParseError{Source: src.String(), Msg: "opening input", Err: err}
	}
	defer r.Close()

	rows, err := readRows(src.String(), r)
	if err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(rows)-1)
	for i, rec := range rows[1:] {
		tx, err := Unmarshal(rec)
		if err != nil {
			return nil, &ParseError{Source: src.String(), Row: i + 2, Msg: err.Error(), Err: err}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// readRows reads every row including the header and checks the document shape.
func readRows(name string, r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Source: name, Msg: "malformed CSV", Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Source: name, Msg: "missing header row"}
	}
	if got := strings.Join(rows[0], ","); got != Header {
		return nil, &ParseError{Source: name, Msg: fmt.Sprintf("unexpected header %q", got)}
	}
	return rows, nil
}

// Marshal converts a transaction to a CSV row ([]string).
func Marshal(tx domain.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = tx.ID.String()
	row[colUserID] = tx.UserID.String()
	row[colDate] = tx.OccurredAt.Format(time.RFC3339)
	if tx.Amount.Valid {
		row[colAmount] = tx.Amount.Decimal.String()
	}
	row[colCategory] = tx.Category
	row[colDescription] = tx.Description
	row[colMerchant] = tx.Merchant
	return row
}

// Unmarshal converts a CSV row to a transaction. Blank identifier, user and
// date fields stay zero for the validator to flag; blank or unparseable
// amounts stay unspecified rather than becoming zero.
func Unmarshal(record []string) (domain.Transaction, error) {
	if len(record) != numFields {
		return domain.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var tx domain.Transaction
	var err error

	if v := strings.TrimSpace(record[colID]); v != "" {
		tx.ID, err = uuid.Parse(v)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("parsing TransactionId %q: %w", record[colID], err)
		}
	}
	if v := strings.TrimSpace(record[colUserID]); v != "" {
		tx.UserID, err = uuid.Parse(v)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("parsing UserId %q: %w", record[colUserID], err)
		}
	}
	if v := strings.TrimSpace(record[colDate]); v != "" {
		tx.OccurredAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("parsing Date %q: %w", record[colDate], err)
		}
	}
	if v := strings.TrimSpace(record[colAmount]); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			tx.Amount = decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}
	tx.Category = record[colCategory]
	tx.Description = record[colDescription]
	tx.Merchant = record[colMerchant]
	return tx, nil
}

package csvloader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/google/uuid"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/source"
)

// RepairDescription rewrites the record with the given identifier, replacing
// only its description. Every other row and field is copied verbatim, and the
// full record set atomically replaces the original document, so a crash never
// leaves a partial file behind. Safe to call exactly once per detected
// failure.
func RepairDescription(ctx context.Context, src source.Source, id uuid.UUID, newDescription string) error {
	r, err := src.Open(ctx)
	if err != nil {
		return &ParseError{Source: src.String(), Msg: "opening input", Err: err}
	}

	rows, err := readRows(src.String(), r)
	closeErr := r.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", src.String(), closeErr)
	}

	repaired := false
	for _, row := range rows[1:] {
		rowID, err := uuid.Parse(row[colID])
		if err != nil || rowID != id {
			continue
		}
		row[colDescription] = newDescription
		repaired = true
		break
	}
	if !repaired {
		return &NotFoundError{Source: src.String(), ID: id}
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("encoding repaired records: %w", err)
	}
	if err := src.WriteAll(ctx, buf.Bytes()); err != nil {
		return fmt.Errorf("rewriting %s: %w", src.String(), err)
	}
	return nil
}

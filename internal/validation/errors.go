package validation

import (
	"fmt"
	"strings"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// FieldError describes a single failed rule on one record.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RecordError collects every failed rule for one record.
type RecordError struct {
	Record domain.Transaction
	Errors []FieldError
}

func (e RecordError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("transaction %s: %s", e.Record.ID, strings.Join(msgs, "; "))
}

// BatchError is the whole-batch validation failure. The retry orchestrator
// intercepts it with errors.As and scans FieldErrors for repairable rules.
type BatchError struct {
	Records []RecordError
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("validation failed for %d record(s) in the batch", len(e.Records))
}

// FieldErrors flattens every failed rule across the batch.
func (e *BatchError) FieldErrors() []FieldError {
	var out []FieldError
	for _, rec := range e.Records {
		out = append(out, rec.Errors...)
	}
	return out
}

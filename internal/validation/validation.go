// Package validation checks transaction batches against the field rules and
// records every failure durably. Failure messages for the description rules
// carry the transaction identifier in a [tx:...] token so the retry layer can
// find the record to repair without reaching into validator internals.
package validation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
)

// Field length limits.
const (
	MaxCategoryLen    = 100
	MaxDescriptionLen = 255
	MaxMerchantLen    = 100
)

// Validator checks batches of transactions and appends failures to the
// durable error log.
type Validator struct {
	errorLog *ErrorLog
	now      func() time.Time
}

// New creates a validator. errorLog may be nil, in which case failures are
// only returned, not persisted.
func New(errorLog *ErrorLog) *Validator {
	return &Validator{errorLog: errorLog, now: time.Now}
}

// ValidateBatch checks every record in the batch. A nil or empty batch is an
// error. Any failing member fails the whole batch; every failing record is
// appended to the error log before the error returns.
func (v *Validator) ValidateBatch(ctx context.Context, batch []domain.Transaction) error {
	if len(batch) == 0 {
		return fmt.Errorf("validate batch: batch must not be nil or empty")
	}

	now := v.now()
	var failures []RecordError
	for _, tx := range batch {
		if errs := ValidateRecord(tx, now); len(errs) > 0 {
			failures = append(failures, RecordError{Record: tx, Errors: errs})
		}
	}
	if len(failures) == 0 {
		return nil
	}

	if v.errorLog != nil {
		if err := v.errorLog.Append(failures); err != nil {
			// The batch error still drives the repair loop; losing the
			// durable copy must not mask it.
			logger.FromContext(ctx).Error().Err(err).Msg("appending to validation error log failed")
		}
	}
	return &BatchError{Records: failures}
}

// ValidateRecord evaluates every rule against one record. Rules never
// short-circuit, so a record can report several simultaneous failures.
func ValidateRecord(tx domain.Transaction, now time.Time) []FieldError {
	var errs []FieldError

	if tx.ID == uuid.Nil {
		errs = append(errs, FieldError{Field: "TransactionId", Message: "transaction id must be present"})
	}
	if tx.UserID == uuid.Nil {
		errs = append(errs, FieldError{Field: "UserId", Message: "user id must be present"})
	}
	if tx.OccurredAt.IsZero() {
		errs = append(errs, FieldError{Field: "Date", Message: "date must be present"})
	} else if tx.OccurredAt.After(now) {
		errs = append(errs, FieldError{Field: "Date", Message: "date must not be in the future"})
	}

	if tx.Category == "" {
		errs = append(errs, FieldError{Field: "Category", Message: "category must not be empty"})
	} else if utf8.RuneCountInString(tx.Category) > MaxCategoryLen {
		errs = append(errs, FieldError{Field: "Category", Message: fmt.Sprintf("category is too long (%d chars, max %d)", utf8.RuneCountInString(tx.Category), MaxCategoryLen)})
	}

	if tx.Description == "" {
		errs = append(errs, FieldError{Field: "Description", Message: fmt.Sprintf("description must not be empty %s", idToken(tx.ID))})
	} else if utf8.RuneCountInString(tx.Description) > MaxDescriptionLen {
		errs = append(errs, FieldError{Field: "Description", Message: fmt.Sprintf("description is too long (%d chars, max %d) %s", utf8.RuneCountInString(tx.Description), MaxDescriptionLen, idToken(tx.ID))})
	}

	if tx.Merchant == "" {
		errs = append(errs, FieldError{Field: "Merchant", Message: "merchant must not be empty"})
	} else if utf8.RuneCountInString(tx.Merchant) > MaxMerchantLen {
		errs = append(errs, FieldError{Field: "Merchant", Message: fmt.Sprintf("merchant is too long (%d chars, max %d)", utf8.RuneCountInString(tx.Merchant), MaxMerchantLen)})
	}

	return errs
}

// idToken embeds a transaction identifier in a rule message.
func idToken(id uuid.UUID) string {
	return fmt.Sprintf("[tx:%s]", id)
}

// ExtractID pulls a transaction identifier out of a rule message. It returns
// false when the message carries no token or the token does not hold a
// parseable identifier.
func ExtractID(msg string) (uuid.UUID, bool) {
	const prefix = "[tx:"
	start := strings.Index(msg, prefix)
	if start < 0 {
		return uuid.Nil, false
	}
	rest := msg[start+len(prefix):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest[:end])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// logMu serializes every writer to the validation error log. Failures can be
// reported from parallel workers and their blocks must not interleave.
var logMu sync.Mutex

const ruleLine = "--------------------------------------------------------------------------------"

// ErrorLog is the durable, append-only record of validation failures.
type ErrorLog struct {
	path string
}

// NewErrorLog creates an error log at the given path. The file and its
// directory are created on first append.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

// Path returns the log file location.
func (l *ErrorLog) Path() string { return l.path }

// Append writes one human-readable, timestamped block per failing record,
// separated by rule lines.
func (l *ErrorLog) Append(failures []RecordError) error {
	if len(failures) == 0 {
		return nil
	}

	logMu.Lock()
	defer logMu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating error log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening error log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	stamp := time.Now().Format(time.RFC3339)
	for _, rec := range failures {
		b.WriteString(ruleLine + "\n")
		fmt.Fprintf(&b, "[%s] validation failed for transaction %s\n", stamp, rec.Record.ID)
		fmt.Fprintf(&b, "%s\n", dumpRecord(rec.Record))
		for _, fe := range rec.Errors {
			fmt.Fprintf(&b, "  - %s\n", fe.Error())
		}
	}
	b.WriteString(ruleLine + "\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing error log: %w", err)
	}
	return nil
}

// dumpRecord renders every field of the offending record on one line.
func dumpRecord(tx domain.Transaction) string {
	amount := "unspecified"
	if tx.Amount.Valid {
		amount = tx.Amount.Decimal.String()
	}
	date := ""
	if !tx.OccurredAt.IsZero() {
		date = tx.OccurredAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("TransactionId=%s UserId=%s Date=%s Amount=%s Category=%q Description=%q Merchant=%q",
		tx.ID, tx.UserID, date, amount, tx.Category, tx.Description, tx.Merchant)
}

package dedup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/csvloader"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// DuplicateLog records the duplicates dropped by each run, one file per run
// with a timestamped name.
type DuplicateLog struct {
	dir string
	now func() time.Time
}

// NewDuplicateLog creates a duplicate log rooted at dir. The directory is
// created on first write.
func NewDuplicateLog(dir string) *DuplicateLog {
	return &DuplicateLog{dir: dir, now: time.Now}
}

// Write persists the dropped duplicates for one run, one line per record
// with a timestamp and the serialized record. It returns the path of the
// file written, or "" when there was nothing to record.
func (l *DuplicateLog) Write(duplicates []domain.Transaction) (string, error) {
	if len(duplicates) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating duplicate log directory: %w", err)
	}

	now := l.now()
	path := filepath.Join(l.dir, fmt.Sprintf("duplicates-%s.log", now.Format("20060102-150405")))

	var b strings.Builder
	stamp := now.Format(time.RFC3339)
	for _, tx := range duplicates {
		fmt.Fprintf(&b, "[%s] duplicate dropped: %s\n", stamp, strings.Join(csvloader.Marshal(tx), ","))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing duplicate log: %w", err)
	}
	return path, nil
}

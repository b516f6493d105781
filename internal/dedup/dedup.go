// Package dedup partitions a transaction batch into unique records and
// discardable duplicates by identifier.
package dedup

import (
	"github.com/google/uuid"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// Partition splits records into the unique set and the duplicate set.
// Uniqueness is determined solely by identifier: the first-seen member of
// each group is the kept representative, every member beyond the first is a
// discardable duplicate. Pure; no I/O.
func Partition(records []domain.Transaction) (unique, duplicates []domain.Transaction) {
	seen := make(map[uuid.UUID]bool, len(records))
	for _, tx := range records {
		if seen[tx.ID] {
			duplicates = append(duplicates, tx)
			continue
		}
		seen[tx.ID] = true
		unique = append(unique, tx)
	}
	return unique, duplicates
}

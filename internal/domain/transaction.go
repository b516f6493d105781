package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents one financial transaction as it flows through the
// pipeline. This is a domain struct, not a storage row; each store driver maps
// it into its own schema.
type Transaction struct {
	ID          uuid.UUID           // from "TransactionId", assigned by the input source
	UserID      uuid.UUID           // from "UserId"
	OccurredAt  time.Time           // from "Date" (RFC 3339)
	Amount      decimal.NullDecimal // from "Amount"; unparseable values stay unset, never zero
	Category    string              // from "Category"
	Description string              // from "Description"; the only field repair may rewrite
	Merchant    string              // from "Merchant"
}

// WithDescription returns a copy of the transaction with only the description
// replaced. Identity and every other field are preserved.
func (t Transaction) WithDescription(desc string) Transaction {
	t.Description = desc
	return t
}

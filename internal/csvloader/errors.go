package csvloader

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseError reports input whose structural shape is wrong or whose stream
// cannot be read.
type ParseError struct {
	Source string
	Row    int // 1-based row in the document, 0 when the row is unknown
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse %s: row %d: %s", e.Source, e.Row, e.Msg)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError reports a repair target absent from the input document.
type NotFoundError struct {
	Source string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found in %s", e.ID, e.Source)
}

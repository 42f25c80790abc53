package sheets

import (
	"context"
	"errors"
)

// ErrRowNotFound is returned by Delete when no row carries the id.
var ErrRowNotFound = errors.New("row not found")

// Row is one ledger transaction as it appears in a mirror sheet.
type Row struct {
	ID          string
	Date        string // YYYY-MM-DD
	Description string
	Category    string
	Source      string
	AmountCents int64
}

// Header is the first row of every mirror sheet, in column order.
var Header = []string{"ID", "Date", "Description", "Category", "Source", "Amount"}

// Ports for outbound adapters.
type (
	// LedgerMirror keeps a one-row-per-transaction copy of the ledger.
	// Append is idempotent on Row.ID so redelivered events do not duplicate rows.
	LedgerMirror interface {
		Append(ctx context.Context, r Row) (rowRef string, err error)
		Delete(ctx context.Context, id string) error
	}
)

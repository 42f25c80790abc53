package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
)

// TransactionPayload is the wire form of a ledger row. It carries everything
// a mirror needs so consumers never read the app database.
type TransactionPayload struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	AmountCents  int64     `json:"amount_cents"`
	Description  string    `json:"description,omitempty"`
	CategoryID   string    `json:"category_id,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerEvent is published after every committed transaction write.
type LedgerEvent struct {
	Kind        EventKind          `json:"kind"`
	Transaction TransactionPayload `json:"transaction"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func NewLedgerEvent(kind EventKind, tx core.Transaction, categoryName string) *LedgerEvent {
	return &LedgerEvent{
		Kind: kind,
		Transaction: TransactionPayload{
			ID:           tx.ID,
			Date:         tx.Date.String(),
			AmountCents:  tx.Amount.Cents,
			Description:  tx.Description,
			CategoryID:   tx.CategoryID,
			CategoryName: categoryName,
			Source:       string(tx.Source),
			CreatedAt:    tx.CreatedAt,
		},
		OccurredAt: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case TransactionCreated, TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &msg, nil
}

// Core converts the payload back into a domain transaction.
func (p TransactionPayload) Core() (core.Transaction, error) {
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          p.ID,
		Date:        date,
		Amount:      core.Money{Cents: p.AmountCents},
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Source:      core.TransactionSource(p.Source),
		CreatedAt:   p.CreatedAt,
	}, nil
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"expensetracker/internal/sheets"
)

// Mirror is an in-process LedgerMirror for tests.
type Mirror struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// Append stores the row and returns a synthetic row reference. A row whose id
// is already present is left as is.
func (m *Mirror) Append(_ context.Context, r sheets.Row) (string, error) {
	if r.ID == "" {
		return "", errors.New("row without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.rows {
		if existing.ID == r.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, r)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.rows {
		if existing.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return sheets.ErrRowNotFound
}

// Rows returns a copy of the mirrored rows in insertion order.
func (m *Mirror) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.Row(nil), m.rows...)
}

package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	"expensetracker/internal/sheets/memory"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func event(kind amqp.EventKind, id, date string, cents int64, category string) *amqp.LedgerEvent {
	tx := core.Transaction{ID: id, Amount: core.Money{Cents: cents}, Source: core.SourceManual}
	if d, err := core.ParseDate(date); err == nil {
		tx.Date = d
	}
	ev := amqp.NewLedgerEvent(kind, tx, category)
	if date != tx.Date.String() {
		ev.Transaction.Date = date
	}
	return ev
}

func TestHandleEventAppendsAndDeletes(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, quietLogger())
	ctx := context.Background()

	if err := w.HandleEvent(ctx, event(amqp.TransactionCreated, "t1", "2024-03-10", -1234, "Groceries")); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := w.HandleEvent(ctx, event(amqp.TransactionCreated, "t2", "2024-03-11", 5000, "")); err != nil {
		t.Fatalf("created: %v", err)
	}
	// redelivery
	if err := w.HandleEvent(ctx, event(amqp.TransactionCreated, "t1", "2024-03-10", -1234, "Groceries")); err != nil {
		t.Fatalf("redelivered: %v", err)
	}

	rows := mirror.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	if rows[0].Category != "Groceries" || rows[0].AmountCents != -1234 || rows[0].Date != "2024-03-10" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Category != "Uncategorized" {
		t.Errorf("missing category should be labelled, got %q", rows[1].Category)
	}

	if err := w.HandleEvent(ctx, event(amqp.TransactionDeleted, "t1", "2024-03-10", -1234, "")); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if err := w.HandleEvent(ctx, event(amqp.TransactionDeleted, "t1", "2024-03-10", -1234, "")); err != nil {
		t.Fatalf("deleting a missing row is not an error: %v", err)
	}
	if rows := mirror.Rows(); len(rows) != 1 || rows[0].ID != "t2" {
		t.Fatalf("unexpected rows after delete %+v", rows)
	}

	s := w.Stats()
	if s.Appended != 3 || s.Deleted != 1 || s.Skipped != 1 || s.Failed != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestHandleEventDropsMalformed(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, quietLogger())

	if err := w.HandleEvent(context.Background(), event(amqp.TransactionCreated, "t1", "not-a-date", 100, "")); err != nil {
		t.Fatalf("malformed events must be acked, got %v", err)
	}
	if len(mirror.Rows()) != 0 || w.Stats().Skipped != 1 {
		t.Fatalf("malformed event should be skipped, stats %+v", w.Stats())
	}
}

type failingMirror struct{ err error }

func (f failingMirror) Append(context.Context, sheets.Row) (string, error) { return "", f.err }
func (f failingMirror) Delete(context.Context, string) error               { return f.err }

func TestHandleEventMirrorFailureRequeues(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(failingMirror{err: boom}, quietLogger())
	ctx := context.Background()

	if err := w.HandleEvent(ctx, event(amqp.TransactionCreated, "t1", "2024-03-10", 100, "")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped mirror error, got %v", err)
	}
	if err := w.HandleEvent(ctx, event(amqp.TransactionDeleted, "t1", "2024-03-10", 100, "")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped mirror error, got %v", err)
	}
	if w.Stats().Failed != 2 {
		t.Fatalf("expected 2 failures, got %+v", w.Stats())
	}
}

// fakeSource replays events then blocks until ctx is done.
type fakeSource struct {
	events []*amqp.LedgerEvent
	errs   []error
}

func (f *fakeSource) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, ev := range f.events {
		f.errs = append(f.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopsOnCancel(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, quietLogger())
	src := &fakeSource{events: []*amqp.LedgerEvent{
		event(amqp.TransactionCreated, "a", "2024-03-01", 100, ""),
		event(amqp.TransactionCreated, "b", "2024-03-02", 200, ""),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, src) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(mirror.Rows()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled run should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	if len(mirror.Rows()) != 2 {
		t.Fatalf("expected 2 mirrored rows, got %d", len(mirror.Rows()))
	}
}

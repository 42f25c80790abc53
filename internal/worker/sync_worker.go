package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"expensetracker/internal/amqp"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
)

// EventSource delivers ledger events until ctx is done. *amqp.Client
// satisfies it.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// SyncWorker applies ledger events to a mirror sheet: created transactions
// are appended, deleted ones are removed by id.
type SyncWorker struct {
	mirror sheets.LedgerMirror
	logger *log.Logger

	appended atomic.Int64
	deleted  atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Appended int64
	Deleted  int64
	Skipped  int64
	Failed   int64
}

func NewSyncWorker(mirror sheets.LedgerMirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		cfg := log.DefaultConfig()
		cfg.Handler = slog.Default().Handler()
		logger = log.New(cfg)
	}
	return &SyncWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// Run consumes events from src until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, src EventSource) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := src.ConsumeLedgerEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s := w.Stats()
	w.logger.InfoContext(ctx, "Sync worker stopped",
		"appended", s.Appended,
		"deleted", s.Deleted,
		"skipped", s.Skipped,
		"failed", s.Failed)
	return err
}

// HandleEvent applies one event. A returned error asks the broker to
// redeliver, so events that can never succeed are logged and dropped.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	logger := w.logger.With(
		log.FieldTransactionID, ev.Transaction.ID,
		"kind", string(ev.Kind))

	switch ev.Kind {
	case amqp.TransactionCreated:
		row, err := RowFromPayload(ev.Transaction)
		if err != nil {
			w.skipped.Add(1)
			logger.WarnContext(ctx, "Dropping malformed ledger event", log.FieldError, err)
			return nil
		}
		ref, err := w.mirror.Append(ctx, row)
		if err != nil {
			w.failed.Add(1)
			logger.Fields(ctx, slog.LevelError, "Failed to mirror transaction", log.NewFields().
				WithOperation(log.OpSync).
				WithError(err).
				WithErrorType(log.ErrorTypeNetwork))
			return fmt.Errorf("append to mirror: %w", err)
		}
		w.appended.Add(1)
		logger.InfoContext(ctx, "Mirrored transaction",
			log.FieldSheetsRef, ref,
			log.FieldAmountCents, row.AmountCents)
		return nil

	case amqp.TransactionDeleted:
		err := w.mirror.Delete(ctx, ev.Transaction.ID)
		switch {
		case errors.Is(err, sheets.ErrRowNotFound):
			w.skipped.Add(1)
			logger.InfoContext(ctx, "Mirrored row already gone")
			return nil
		case err != nil:
			w.failed.Add(1)
			logger.Fields(ctx, slog.LevelError, "Failed to remove mirrored transaction", log.NewFields().
				WithOperation(log.OpDelete).
				WithError(err).
				WithErrorType(log.ErrorTypeNetwork))
			return fmt.Errorf("delete from mirror: %w", err)
		}
		w.deleted.Add(1)
		logger.InfoContext(ctx, "Removed mirrored transaction")
		return nil

	default:
		w.skipped.Add(1)
		logger.WarnContext(ctx, "Ignoring unknown ledger event")
		return nil
	}
}

func (w *SyncWorker) Stats() Stats {
	return Stats{
		Appended: w.appended.Load(),
		Deleted:  w.deleted.Load(),
		Skipped:  w.skipped.Load(),
		Failed:   w.failed.Load(),
	}
}

// RowFromPayload converts an event payload into a mirror row. Transactions
// without a category are labelled the same way the pages label them.
func RowFromPayload(p amqp.TransactionPayload) (sheets.Row, error) {
	tx, err := p.Core()
	if err != nil {
		return sheets.Row{}, fmt.Errorf("transaction %s: %w", p.ID, err)
	}
	category := p.CategoryName
	if category == "" {
		category = services.UncategorizedName
	}
	return sheets.Row{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Description: tx.Description,
		Category:    category,
		Source:      string(tx.Source),
		AmountCents: tx.Amount.Cents,
	}, nil
}

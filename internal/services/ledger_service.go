package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/validator"
)

// Publisher forwards committed ledger changes to other processes.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	Close() error
}

// LedgerService runs the write commands against the store and keeps the
// read views consistent with them.
type LedgerService struct {
	store     storage.Store
	views     Views
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time

	// generation is bumped by every invalidation. A view built across a
	// bump is returned but not cached.
	generation atomic.Uint64
	// viewMu makes a view's generation check and cache store one step
	// relative to an invalidation's bump and deletes.
	viewMu sync.RWMutex
}

type Options struct {
	// Views defaults to small in-process caches.
	Views Views
	// Publisher is optional.
	Publisher Publisher
	Logger    *log.Logger
	Now       func() time.Time
}

func NewLedgerService(store storage.Store, opts Options) *LedgerService {
	s := &LedgerService{
		store:     store,
		views:     opts.Views,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if !s.views.complete() {
		s.views = NewMemoryViews(64, 5*time.Minute)
	}
	if s.logger == nil {
		cfg := log.DefaultConfig()
		cfg.Handler = slog.Default().Handler()
		s.logger = log.New(cfg)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTransactionInput is the submitted ledger form.
type CreateTransactionInput struct {
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	Amount      string `form:"amount" validate:"required"`
	Description string `form:"description" validate:"max=200"`
	CategoryID  string `form:"categoryId" validate:"omitempty,max=64"`
	Source      string `form:"source" validate:"omitempty,oneof=manual import"`
}

type CreateCategoryInput struct {
	Name     string `form:"name" validate:"required,notblank,max=60"`
	ColorHex string `form:"colorHex" validate:"omitempty,colorhex"`
}

type UpsertBudgetInput struct {
	Month      string `form:"month" validate:"required,yearmonth"`
	CategoryID string `form:"categoryId" validate:"required,max=64"`
	Limit      string `form:"limit" validate:"required"`
}

func (s *LedgerService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (core.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if err := validator.Check(in); err != nil {
		return core.Transaction{}, err
	}

	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	source := core.TransactionSource(in.Source)
	if source == "" {
		source = core.SourceManual
	}

	tx := core.Transaction{
		Date:        date,
		Amount:      amount,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Source:      source,
		CreatedAt:   s.now(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Transaction created", log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(saved.ID, saved.Date.String(), saved.Amount.Cents, saved.CategoryID))

	s.afterWrite(ctx, Mutation{Kind: TransactionCreated, Period: saved.Date.YearMonth()})
	s.publish(ctx, amqp.TransactionCreated, saved)
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ErrNotFound
	}

	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Transaction deleted", log.NewFields().
		WithOperation(log.OpDelete).
		WithTransaction(deleted.ID, deleted.Date.String(), deleted.Amount.Cents, deleted.CategoryID))

	s.afterWrite(ctx, Mutation{Kind: TransactionDeleted, Period: deleted.Date.YearMonth()})
	s.publish(ctx, amqp.TransactionDeleted, deleted)
	return nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, in CreateCategoryInput) (core.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ColorHex = strings.ToLower(strings.TrimSpace(in.ColorHex))
	if err := validator.Check(in); err != nil {
		return core.Category{}, err
	}

	c := core.Category{Name: in.Name, ColorHex: in.ColorHex}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	saved, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Category created", log.NewFields().
		WithOperation(log.OpCreate).
		WithCategory(saved.ID, saved.Name))

	s.afterWrite(ctx, Mutation{Kind: CategoryCreated})
	return saved, nil
}

// DeleteCategory removes an unused category. A category that still has
// transactions is left untouched and core.ErrCategoryInUse is returned.
func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ErrNotFound
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, core.ErrCategoryInUse) {
			s.logger.InfoContext(ctx, "Category delete refused, still referenced",
				log.FieldCategoryID, id,
				log.FieldOperation, log.OpDelete)
		}
		return fmt.Errorf("delete category %s: %w", id, err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Category deleted", log.NewFields().
		WithOperation(log.OpDelete).
		WithCategory(id, ""))

	s.afterWrite(ctx, Mutation{Kind: CategoryDeleted})
	return nil
}

// UpsertBudget sets the monthly limit of a category, replacing any limit
// already set for the same month.
func (s *LedgerService) UpsertBudget(ctx context.Context, in UpsertBudgetInput) (core.Budget, error) {
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.Month = strings.TrimSpace(in.Month)
	if err := validator.Check(in); err != nil {
		return core.Budget{}, err
	}

	ym, err := core.ParseYearMonth(in.Month)
	if err != nil {
		return core.Budget{}, &core.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
	}
	limit, err := core.ParseLimit(in.Limit)
	if err != nil {
		return core.Budget{}, &core.ValidationError{Field: "limit", Err: err}
	}

	b := core.Budget{Year: ym.Year, Month: ym.Month, CategoryID: in.CategoryID, Limit: limit}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget %s: %w", ym, err)
	}

	s.logger.InfoContext(ctx, "Budget upserted",
		log.FieldOperation, log.OpUpsert,
		log.FieldBudgetID, saved.ID,
		log.FieldCategoryID, saved.CategoryID,
		log.FieldYear, saved.Year,
		log.FieldMonth, saved.Month,
		log.FieldLimitCents, saved.Limit.Cents)

	s.afterWrite(ctx, Mutation{Kind: BudgetUpserted, Period: saved.YearMonth()})
	return saved, nil
}

// InvalidateViews drops every cached view the mutation made stale. All
// affected views are attempted; the returned error joins the failures.
func (s *LedgerService) InvalidateViews(ctx context.Context, m Mutation) error {
	targets := s.views.affected(m)
	names := make([]string, 0, len(targets))
	var errs []error

	s.viewMu.Lock()
	s.generation.Add(1)
	for _, t := range targets {
		names = append(names, t.String())
		if err := t.apply(ctx); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", t, err))
		}
	}
	s.viewMu.Unlock()

	s.logger.DebugContext(ctx, "Views invalidated",
		log.FieldOperation, log.OpInvalidate,
		"mutation", m.Kind.String(),
		log.FieldViews, names)

	return errors.Join(errs...)
}

// storeView runs set only when no invalidation has happened since gen was
// read. An invalidation that starts after the check waits for set to finish
// and then deletes what it stored.
func (s *LedgerService) storeView(gen uint64, set func()) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	if s.generation.Load() == gen {
		set()
	}
}

// afterWrite runs once the store has committed. The write is not undone
// when invalidation fails; the views expire on their TTL instead.
func (s *LedgerService) afterWrite(ctx context.Context, m Mutation) {
	if err := s.InvalidateViews(ctx, m); err != nil {
		s.logger.Fields(ctx, slog.LevelError, "Failed to invalidate views", log.NewFields().
			WithOperation(log.OpInvalidate).
			WithError(err).
			WithErrorType(log.ErrorTypeNetwork))
	}
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, tx core.Transaction) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping ledger event")
		return
	}

	ev := amqp.NewLedgerEvent(kind, tx, s.categoryName(ctx, tx.CategoryID))
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		// Don't fail the request - the write is committed locally
		s.logger.Fields(ctx, slog.LevelError, "Failed to publish ledger event", log.NewFields().
			WithOperation(log.OpPublish).
			WithTransaction(tx.ID, tx.Date.String(), tx.Amount.Cents, tx.CategoryID).
			WithError(err).
			WithErrorType(log.ErrorTypeNetwork))
	}
}

func (s *LedgerService) categoryName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return ""
	}
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// Ping checks the store for readiness probes.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes both the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

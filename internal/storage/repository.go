package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensetracker/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC timestamps so created_at orders lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

// DSN enables foreign keys and a busy timeout on every pooled connection.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCoreCategory(row))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row, err := r.queries.CreateCategory(ctx, Category{
		ID:        c.ID,
		Name:      c.Name,
		ColorHex:  nullString(c.ColorHex),
		CreatedAt: r.now().UTC().Format(timestampLayout),
	})
	if err != nil {
		if isConstraint(err, "UNIQUE") {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite", "id", row.ID, "name", row.Name)
	return toCoreCategory(row), nil
}

// DeleteCategory runs the reference check and the delete as one statement
// inside a transaction, so a concurrent insert cannot slip between them.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	n, err := q.DeleteUnusedCategory(ctx, id)
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return core.ErrCategoryInUse
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		exists, err := q.CategoryExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if exists {
			return core.ErrCategoryInUse
		}
		return core.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) CountTransactionsByCategory(ctx context.Context) (map[string]int64, error) {
	counts, err := r.queries.CountTransactionsByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count transactions by category: %w", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		FromDate: f.From.String(),
		ToDate:   f.To.String(),
		Sign:     f.Sign,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	row, err := r.queries.CreateTransaction(ctx, Transaction{
		ID:          t.ID,
		Date:        t.Date.String(),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		CategoryID:  nullString(t.CategoryID),
		Source:      string(t.Source),
		CreatedAt:   t.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return core.Transaction{}, &core.ValidationError{Field: "categoryId", Err: core.ErrUnknownCategory}
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"date", row.Date,
		"amount_cents", row.AmountCents)

	return toCoreTransaction(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if _, err := q.DeleteTransaction(ctx, id); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ym core.YearMonth) ([]core.BudgetWithCategory, error) {
	rows, err := r.queries.ListBudgets(ctx, int64(ym.Year), int64(ym.Month))
	if err != nil {
		return nil, fmt.Errorf("list budgets %s: %w", ym, err)
	}
	out := make([]core.BudgetWithCategory, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.BudgetWithCategory{
			Budget: core.Budget{
				ID:         row.ID,
				Year:       int(row.Year),
				Month:      int(row.Month),
				CategoryID: row.CategoryID,
				Limit:      core.Money{Cents: row.LimitCents},
			},
			CategoryName:  row.CategoryName,
			CategoryColor: row.CategoryColor.String,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := r.queries.UpsertBudget(ctx, UpsertBudgetParams{
		ID:         uuid.NewString(),
		Year:       int64(b.Year),
		Month:      int64(b.Month),
		CategoryID: b.CategoryID,
		LimitCents: b.Limit.Cents,
	})
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return core.Budget{}, &core.ValidationError{Field: "categoryId", Err: core.ErrUnknownCategory}
		}
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget upserted in SQLite",
		"id", row.ID,
		"year", row.Year,
		"month", row.Month,
		"category_id", row.CategoryID,
		"limit_cents", row.LimitCents)

	return core.Budget{
		ID:         row.ID,
		Year:       int(row.Year),
		Month:      int(row.Month),
		CategoryID: row.CategoryID,
		Limit:      core.Money{Cents: row.LimitCents},
	}, nil
}

func toCoreCategory(row Category) core.Category {
	return core.Category{ID: row.ID, Name: row.Name, ColorHex: row.ColorHex.String}
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has bad date %q: %w", row.ID, row.Date, err)
	}
	created, err := time.Parse(timestampLayout, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has bad created_at %q: %w", row.ID, row.CreatedAt, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        date,
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		CategoryID:  row.CategoryID.String,
		Source:      core.TransactionSource(row.Source),
		CreatedAt:   created,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isConstraint matches SQLite constraint failures such as
// "UNIQUE constraint failed: categories.name".
func isConstraint(err error, kind string) bool {
	return err != nil && strings.Contains(err.Error(), kind+" constraint failed")
}

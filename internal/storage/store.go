// Package storage persists categories, transactions and budgets.
package storage

import (
	"context"

	"expensetracker/internal/core"
)

// Sign filters transactions by the sign of their amount.
type Sign int

const (
	AnySign Sign = iota
	IncomeOnly
	ExpensesOnly
)

// TransactionFilter selects transactions by calendar day (inclusive) and
// sign. Zero dates leave the corresponding bound open.
type TransactionFilter struct {
	From core.Date
	To   core.Date
	Sign Sign
}

// MonthFilter returns the filter for every transaction of a month.
func MonthFilter(ym core.YearMonth, sign Sign) TransactionFilter {
	from, to := ym.Range()
	return TransactionFilter{From: from, To: to, Sign: sign}
}

// Match reports whether tx passes the filter.
func (f TransactionFilter) Match(tx core.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	switch f.Sign {
	case IncomeOnly:
		return tx.Amount.Cents > 0
	case ExpensesOnly:
		return tx.Amount.Cents < 0
	}
	return true
}

type CategoryStore interface {
	// ListCategories returns categories ordered by name.
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	// DeleteCategory removes an unreferenced category. It returns
	// core.ErrCategoryInUse, leaving everything untouched, when at least one
	// transaction points at the category.
	DeleteCategory(ctx context.Context, id string) error
	CountTransactionsByCategory(ctx context.Context) (map[string]int64, error)
}

type TransactionStore interface {
	// ListTransactions returns matches ordered by date and creation time, newest first.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	// DeleteTransaction returns the removed row.
	DeleteTransaction(ctx context.Context, id string) (core.Transaction, error)
}

type BudgetStore interface {
	// ListBudgets returns the month's budgets ordered by category name.
	ListBudgets(ctx context.Context, ym core.YearMonth) ([]core.BudgetWithCategory, error)
	// UpsertBudget creates or replaces the limit for (year, month, category).
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
}

// Store is the full record store consumed by the services.
type Store interface {
	CategoryStore
	TransactionStore
	BudgetStore
	Ping(ctx context.Context) error
	Close() error
}

package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

// TransactionRow is a transaction with its category label resolved.
type TransactionRow struct {
	core.Transaction
	CategoryName  string
	CategoryColor string
}

type DashboardView struct {
	Overview     core.MonthOverview
	Transactions []TransactionRow
}

type LedgerView struct {
	Transactions []TransactionRow
	Totals       core.Totals
	Categories   []core.Category
}

type BudgetsView struct {
	Report     core.BudgetReport
	Categories []core.Category
}

// CategoryUsage is a category with the number of transactions filed under it.
type CategoryUsage struct {
	core.Category
	Transactions int64
}

// InUse reports whether a delete would be refused.
func (c CategoryUsage) InUse() bool { return c.Transactions > 0 }

type CategoriesView struct {
	Categories []CategoryUsage
}

// Views is the set of read-view caches the ledger keeps warm between writes.
// Month views are keyed by "YYYY-MM", the others by a single key.
type Views struct {
	Dashboard  cache.Cache[DashboardView]
	Ledger     cache.Cache[LedgerView]
	Budgets    cache.Cache[BudgetsView]
	Categories cache.Cache[CategoriesView]
}

const (
	viewDashboard  = "dashboard"
	viewLedger     = "ledger"
	viewBudgets    = "budgets"
	viewCategories = "categories"

	allKey = "all"
)

func NewMemoryViews(size int, ttl time.Duration) Views {
	return Views{
		Dashboard:  cache.NewLRUCache[DashboardView](size, ttl),
		Ledger:     cache.NewLRUCache[LedgerView](1, ttl),
		Budgets:    cache.NewLRUCache[BudgetsView](size, ttl),
		Categories: cache.NewLRUCache[CategoriesView](1, ttl),
	}
}

// NewRedisViews shares views between instances. Keys live under
// "expensetracker:<view>:".
func NewRedisViews(client *redis.Client, ttl time.Duration) Views {
	return Views{
		Dashboard:  cache.NewRedisCache[DashboardView](client, "expensetracker:"+viewDashboard+":", ttl),
		Ledger:     cache.NewRedisCache[LedgerView](client, "expensetracker:"+viewLedger+":", ttl),
		Budgets:    cache.NewRedisCache[BudgetsView](client, "expensetracker:"+viewBudgets+":", ttl),
		Categories: cache.NewRedisCache[CategoriesView](client, "expensetracker:"+viewCategories+":", ttl),
	}
}

// Register adds the in-process caches to the expiry sweep.
func (v Views) Register(m *cache.Manager) {
	m.Register(v.Dashboard)
	m.Register(v.Ledger)
	m.Register(v.Budgets)
	m.Register(v.Categories)
}

func (v Views) complete() bool {
	return v.Dashboard != nil && v.Ledger != nil && v.Budgets != nil && v.Categories != nil
}

// MutationKind names a write that changes what the pages show.
type MutationKind int

const (
	TransactionCreated MutationKind = iota + 1
	TransactionDeleted
	CategoryCreated
	CategoryDeleted
	BudgetUpserted
)

func (k MutationKind) String() string {
	switch k {
	case TransactionCreated:
		return "transaction.created"
	case TransactionDeleted:
		return "transaction.deleted"
	case CategoryCreated:
		return "category.created"
	case CategoryDeleted:
		return "category.deleted"
	case BudgetUpserted:
		return "budget.upserted"
	default:
		return "unknown"
	}
}

// Mutation describes a committed write. Period is the month the write
// touched; it is ignored for category mutations.
type Mutation struct {
	Kind   MutationKind
	Period core.YearMonth
}

type invalidation struct {
	view  string
	key   string // empty purges the whole view
	cache interface {
		Delete(ctx context.Context, keys ...string) error
		Purge(ctx context.Context) error
	}
}

func (i invalidation) String() string {
	if i.key == "" {
		return i.view + ":*"
	}
	return i.view + ":" + i.key
}

func (i invalidation) apply(ctx context.Context) error {
	if i.key == "" {
		return i.cache.Purge(ctx)
	}
	return i.cache.Delete(ctx, i.key)
}

// affected lists the views a mutation makes stale.
//
//	transaction -> dashboard and budgets of its month, ledger, category usage
//	category    -> every view (names, colours and pickers change)
//	budget      -> budgets of its month
func (v Views) affected(m Mutation) []invalidation {
	month := m.Period.String()
	switch m.Kind {
	case TransactionCreated, TransactionDeleted:
		return []invalidation{
			{viewDashboard, month, v.Dashboard},
			{viewBudgets, month, v.Budgets},
			{viewLedger, allKey, v.Ledger},
			{viewCategories, allKey, v.Categories},
		}
	case CategoryCreated, CategoryDeleted:
		return []invalidation{
			{viewDashboard, "", v.Dashboard},
			{viewBudgets, "", v.Budgets},
			{viewLedger, "", v.Ledger},
			{viewCategories, "", v.Categories},
		}
	case BudgetUpserted:
		return []invalidation{
			{viewBudgets, month, v.Budgets},
		}
	default:
		return nil
	}
}

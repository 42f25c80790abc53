package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// UncategorizedName labels transactions without a category.
const UncategorizedName = "Uncategorized"

// Dashboard returns the month overview and the month's transactions.
func (s *LedgerService) Dashboard(ctx context.Context, ym core.YearMonth) (DashboardView, error) {
	key := ym.String()
	if v, ok := s.views.Dashboard.Get(ctx, key); ok {
		return v, nil
	}
	gen := s.generation.Load()

	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, storage.MonthFilter(ym, storage.AnySign))
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, fmt.Errorf("dashboard %s: %w", ym, err)
	}

	lookup := byID(cats)
	v := DashboardView{
		Overview:     core.BuildMonthOverview(ym, txs, lookup.label),
		Transactions: lookup.rows(txs),
	}
	s.storeView(gen, func() { s.views.Dashboard.Set(ctx, key, v) })
	return v, nil
}

// Ledger returns every transaction with the running totals.
func (s *LedgerService) Ledger(ctx context.Context) (LedgerView, error) {
	if v, ok := s.views.Ledger.Get(ctx, allKey); ok {
		return v, nil
	}
	gen := s.generation.Load()

	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, storage.TransactionFilter{})
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return LedgerView{}, fmt.Errorf("ledger: %w", err)
	}

	v := LedgerView{
		Transactions: byID(cats).rows(txs),
		Totals:       core.ComputeTotals(txs),
		Categories:   cats,
	}
	s.storeView(gen, func() { s.views.Ledger.Set(ctx, allKey, v) })
	return v, nil
}

// Budgets returns the month's budget rollup and the categories that can be
// given a budget.
func (s *LedgerService) Budgets(ctx context.Context, ym core.YearMonth) (BudgetsView, error) {
	key := ym.String()
	if v, ok := s.views.Budgets.Get(ctx, key); ok {
		return v, nil
	}
	gen := s.generation.Load()

	var (
		cats     []core.Category
		budgets  []core.BudgetWithCategory
		expenses []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.store.ListBudgets(gctx, ym)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListTransactions(gctx, storage.MonthFilter(ym, storage.ExpensesOnly))
		return err
	})
	if err := g.Wait(); err != nil {
		return BudgetsView{}, fmt.Errorf("budgets %s: %w", ym, err)
	}

	v := BudgetsView{
		Report:     core.BuildBudgetReport(ym, budgets, core.SpendByCategory(expenses)),
		Categories: cats,
	}
	s.storeView(gen, func() { s.views.Budgets.Set(ctx, key, v) })
	return v, nil
}

// Categories returns all categories with their usage counts.
func (s *LedgerService) Categories(ctx context.Context) (CategoriesView, error) {
	if v, ok := s.views.Categories.Get(ctx, allKey); ok {
		return v, nil
	}
	gen := s.generation.Load()

	var (
		cats   []core.Category
		counts map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		counts, err = s.store.CountTransactionsByCategory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CategoriesView{}, fmt.Errorf("categories: %w", err)
	}

	v := CategoriesView{Categories: make([]CategoryUsage, 0, len(cats))}
	for _, c := range cats {
		v.Categories = append(v.Categories, CategoryUsage{Category: c, Transactions: counts[c.ID]})
	}
	s.storeView(gen, func() { s.views.Categories.Set(ctx, allKey, v) })
	return v, nil
}

// MonthTransactions lists a month window without caching, for exports.
func (s *LedgerService) MonthTransactions(ctx context.Context, ym core.YearMonth) ([]TransactionRow, error) {
	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		f := storage.TransactionFilter{}
		if ym.Valid() {
			f = storage.MonthFilter(ym, storage.AnySign)
		}
		txs, err = s.store.ListTransactions(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return byID(cats).rows(txs), nil
}

type categoryIndex map[string]core.Category

func byID(cats []core.Category) categoryIndex {
	idx := make(categoryIndex, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

func (idx categoryIndex) label(k core.CategoryKey) (string, string) {
	id, ok := k.ID()
	if !ok {
		return UncategorizedName, ""
	}
	if c, found := idx[id]; found {
		return c.Name, c.ColorHex
	}
	return id, ""
}

func (idx categoryIndex) rows(txs []core.Transaction) []TransactionRow {
	out := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		name, color := idx.label(tx.Key())
		out = append(out, TransactionRow{Transaction: tx, CategoryName: name, CategoryColor: color})
	}
	return out
}

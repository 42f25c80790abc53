package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) == 0 {
		t.Fatalf("expected defaults when files missing")
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nRent\nFood\nRent\n\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "Rent" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}

func TestDeleteCategoryInUseIsNoop(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.CreateCategory(ctx, core.Category{Name: "Groceries"})
	tx, err := s.CreateTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 3, 10), Amount: core.Money{Cents: -50000}, CategoryID: c.ID, Source: core.SourceManual})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := s.DeleteCategory(ctx, c.ID); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if cats, _ := s.ListCategories(ctx); len(cats) != 1 {
		t.Fatalf("category should remain")
	}
	if _, err := s.GetTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("transaction should remain: %v", err)
	}
}

func TestUpsertBudgetAndFilter(t *testing.T) {
	s := New("Groceries")
	ctx := context.Background()
	cats, _ := s.ListCategories(ctx)
	id := cats[0].ID

	for _, limit := range []int64{60000, 80000} {
		if _, err := s.UpsertBudget(ctx, core.Budget{Year: 2024, Month: 3, CategoryID: id, Limit: core.Money{Cents: limit}}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	budgets, _ := s.ListBudgets(ctx, core.YearMonth{Year: 2024, Month: 3})
	if len(budgets) != 1 || budgets[0].Limit.Cents != 80000 {
		t.Fatalf("expected one budget with the latest limit, got %+v", budgets)
	}

	s.CreateTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 100}, Source: core.SourceManual})
	s.CreateTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: -100}, Source: core.SourceManual})
	s.CreateTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 4, 1), Amount: core.Money{Cents: -100}, Source: core.SourceManual})

	txs, _ := s.ListTransactions(ctx, storage.MonthFilter(core.YearMonth{Year: 2024, Month: 3}, storage.ExpensesOnly))
	if len(txs) != 1 || txs[0].Date.String() != "2024-03-02" {
		t.Fatalf("unexpected filter result %+v", txs)
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCategory(t *testing.T, repo *SQLiteRepository, name string) core.Category {
	t.Helper()
	c, err := repo.CreateCategory(context.Background(), core.Category{Name: name})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func mustTransaction(t *testing.T, repo *SQLiteRepository, date core.Date, cents int64, categoryID string) core.Transaction {
	t.Helper()
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		Date:       date,
		Amount:     core.Money{Cents: cents},
		CategoryID: categoryID,
		Source:     core.SourceManual,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestCategoriesOrderedByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, name := range []string{"Rent", "Groceries", "Fun"} {
		mustCategory(t, repo, name)
	}
	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Fun", "Groceries", "Rent"}
	for i, name := range want {
		if cats[i].Name != name {
			t.Fatalf("position %d expected %s, got %s", i, name, cats[i].Name)
		}
	}

	if _, err := repo.CreateCategory(ctx, core.Category{Name: "Rent"}); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
}

func TestDeleteCategoryGuarded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	groceries := mustCategory(t, repo, "Groceries")
	tx := mustTransaction(t, repo, core.NewDate(2024, 3, 10), -50000, groceries.ID)

	if err := repo.DeleteCategory(ctx, groceries.ID); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	cats, _ := repo.ListCategories(ctx)
	if len(cats) != 1 {
		t.Fatalf("category must survive a rejected delete, got %d", len(cats))
	}
	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil || got.CategoryID != groceries.ID {
		t.Fatalf("transaction must be untouched, got %+v (err=%v)", got, err)
	}

	if _, err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := repo.DeleteCategory(ctx, groceries.ID); err != nil {
		t.Fatalf("unused category should delete, got %v", err)
	}
	if err := repo.DeleteCategory(ctx, groceries.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTransactionsFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustTransaction(t, repo, core.NewDate(2024, 2, 29), -100, "")
	mustTransaction(t, repo, core.NewDate(2024, 3, 1), 200000, "")
	mustTransaction(t, repo, core.NewDate(2024, 3, 31), -15000, "")
	mustTransaction(t, repo, core.NewDate(2024, 4, 1), -300, "")

	march := MonthFilter(core.YearMonth{Year: 2024, Month: 3}, AnySign)
	txs, err := repo.ListTransactions(ctx, march)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 march transactions, got %d", len(txs))
	}
	if txs[0].Date.String() != "2024-03-31" {
		t.Fatalf("expected newest first, got %s", txs[0].Date)
	}

	march.Sign = ExpensesOnly
	expenses, _ := repo.ListTransactions(ctx, march)
	if len(expenses) != 1 || expenses[0].Amount.Cents != -15000 {
		t.Fatalf("expected the single march expense, got %+v", expenses)
	}

	all, _ := repo.ListTransactions(ctx, TransactionFilter{})
	if len(all) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(all))
	}
}

func TestListTransactionsCreatedAtTieBreak(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, desc := range []string{"first", "second"} {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			Date:        core.NewDate(2024, 3, 5),
			Amount:      core.Money{Cents: -100},
			Description: desc,
			Source:      core.SourceManual,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	txs, _ := repo.ListTransactions(ctx, TransactionFilter{})
	if txs[0].Description != "second" || !txs[0].CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("expected latest created first, got %+v", txs[0])
	}
}

func TestCreateTransactionUnknownCategory(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		Date:       core.NewDate(2024, 3, 5),
		Amount:     core.Money{Cents: -100},
		CategoryID: "missing",
		Source:     core.SourceManual,
	})
	if !errors.Is(err, core.ErrUnknownCategory) || !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected unknown category validation error, got %v", err)
	}
}

func TestUpsertBudgetTwiceKeepsOneRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	groceries := mustCategory(t, repo, "Groceries")

	first, err := repo.UpsertBudget(ctx, core.Budget{Year: 2024, Month: 3, CategoryID: groceries.ID, Limit: core.Money{Cents: 60000}})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := repo.UpsertBudget(ctx, core.Budget{Year: 2024, Month: 3, CategoryID: groceries.ID, Limit: core.Money{Cents: 75000}})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert must keep the row id, got %s and %s", first.ID, second.ID)
	}

	budgets, err := repo.ListBudgets(ctx, core.YearMonth{Year: 2024, Month: 3})
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("expected exactly one budget row, got %d", len(budgets))
	}
	if budgets[0].Limit.Cents != 75000 || budgets[0].CategoryName != "Groceries" {
		t.Fatalf("unexpected budget %+v", budgets[0])
	}

	april, _ := repo.ListBudgets(ctx, core.YearMonth{Year: 2024, Month: 4})
	if len(april) != 0 {
		t.Fatalf("budgets are per month, got %d for april", len(april))
	}
}

func TestCountTransactionsByCategory(t *testing.T) {
	repo := newTestRepo(t)
	a := mustCategory(t, repo, "A")
	b := mustCategory(t, repo, "B")
	mustTransaction(t, repo, core.NewDate(2024, 3, 1), -1, a.ID)
	mustTransaction(t, repo, core.NewDate(2024, 3, 2), -1, a.ID)
	mustTransaction(t, repo, core.NewDate(2024, 3, 3), -1, "")

	counts, err := repo.CountTransactionsByCategory(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[a.ID] != 2 || counts[b.ID] != 0 || len(counts) != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

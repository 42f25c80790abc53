// Package memory is a process-local storage.Store used for tests and demos.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	cats    map[string]core.Category
	txs     map[string]core.Transaction
	budgets map[budgetKey]core.Budget
	now     func() time.Time
}

type budgetKey struct {
	year, month int
	categoryID  string
}

var _ storage.Store = (*Store)(nil)

// New returns a store seeded with the given category names.
func New(categoryNames ...string) *Store {
	s := &Store{
		cats:    make(map[string]core.Category),
		txs:     make(map[string]core.Transaction),
		budgets: make(map[budgetKey]core.Budget),
		now:     time.Now,
	}
	for _, name := range dedupe(categoryNames) {
		id := uuid.NewString()
		s.cats[id] = core.Category{ID: id, Name: name}
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, one name per
// line, falling back to a small default set.
func NewFromFiles(base string) *Store {
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(names) == 0 {
		names = []string{"Groceries", "Housing", "Transport"}
	}
	return New(names...)
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing.Name == c.Name {
			return core.Category{}, core.ErrDuplicateCategory
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return core.ErrNotFound
	}
	for _, tx := range s.txs {
		if tx.CategoryID == id {
			return core.ErrCategoryInUse
		}
	}
	delete(s.cats, id)
	for k := range s.budgets {
		if k.categoryID == id {
			delete(s.budgets, k)
		}
	}
	return nil
}

func (s *Store) CountTransactionsByCategory(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, tx := range s.txs {
		if tx.CategoryID != "" {
			counts[tx.CategoryID]++
		}
	}
	return counts, nil
}

func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.CategoryID != "" {
		if _, ok := s.cats[tx.CategoryID]; !ok {
			return core.Transaction{}, &core.ValidationError{Field: "categoryId", Err: core.ErrUnknownCategory}
		}
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	delete(s.txs, id)
	return tx, nil
}

func (s *Store) ListBudgets(_ context.Context, ym core.YearMonth) ([]core.BudgetWithCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetWithCategory
	for k, b := range s.budgets {
		if k.year != ym.Year || k.month != ym.Month {
			continue
		}
		c := s.cats[k.categoryID]
		out = append(out, core.BudgetWithCategory{Budget: b, CategoryName: c.Name, CategoryColor: c.ColorHex})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[b.CategoryID]; !ok {
		return core.Budget{}, &core.ValidationError{Field: "categoryId", Err: core.ErrUnknownCategory}
	}
	k := budgetKey{year: b.Year, month: b.Month, categoryID: b.CategoryID}
	if existing, ok := s.budgets[k]; ok {
		b.ID = existing.ID
	} else {
		b.ID = uuid.NewString()
	}
	s.budgets[k] = b
	return b, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

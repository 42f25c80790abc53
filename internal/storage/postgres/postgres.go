// Package postgres is the GORM-backed storage.Store for shared deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

type categoryModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"uniqueIndex;not null"`
	ColorHex  *string
	CreatedAt time.Time
}

func (categoryModel) TableName() string { return "categories" }

type transactionModel struct {
	ID          string         `gorm:"primaryKey;type:uuid"`
	Date        time.Time      `gorm:"type:date;index;not null"`
	AmountCents int64          `gorm:"not null"`
	Description string         `gorm:"not null;default:''"`
	CategoryID  *string        `gorm:"type:uuid;index"`
	Category    *categoryModel `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Source      string         `gorm:"not null;default:manual"`
	CreatedAt   time.Time      `gorm:"index"`
}

func (transactionModel) TableName() string { return "transactions" }

type budgetModel struct {
	ID         string        `gorm:"primaryKey;type:uuid"`
	Year       int           `gorm:"not null;uniqueIndex:idx_budget_period"`
	Month      int           `gorm:"not null;uniqueIndex:idx_budget_period;check:month BETWEEN 1 AND 12"`
	CategoryID string        `gorm:"type:uuid;not null;uniqueIndex:idx_budget_period"`
	Category   categoryModel `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	LimitCents int64         `gorm:"not null;check:limit_cents >= 0"`
}

func (budgetModel) TableName() string { return "budgets" }

type budgetRow struct {
	ID            string
	Year          int
	Month         int
	CategoryID    string
	LimitCents    int64
	CategoryName  string
	CategoryColor *string
}

type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&categoryModel{}, &transactionModel{}, &budgetModel{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	slog.Info("Connected to Postgres")
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	var rows []categoryModel
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, toCategory(r))
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	m := categoryModel{ID: c.ID, Name: c.Name, ColorHex: optional(c.ColorHex)}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return toCategory(m), nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND NOT EXISTS (SELECT 1 FROM transactions WHERE category_id = ?)", id, id).
			Delete(&categoryModel{})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return core.ErrCategoryInUse
			}
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var n int64
		if err := tx.Model(&categoryModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if n > 0 {
			return core.ErrCategoryInUse
		}
		return core.ErrNotFound
	})
}

func (s *Store) CountTransactionsByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		CategoryID string
		N          int64
	}
	err := s.db.WithContext(ctx).Model(&transactionModel{}).
		Select("category_id, COUNT(*) AS n").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count transactions by category: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.N
	}
	return counts, nil
}

func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&transactionModel{})
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From.Time)
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", f.To.Time)
	}
	switch f.Sign {
	case storage.IncomeOnly:
		q = q.Where("amount_cents > 0")
	case storage.ExpensesOnly:
		q = q.Where("amount_cents < 0")
	}
	var rows []transactionModel
	if err := q.Order("date DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, toTransaction(r))
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var m transactionModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return toTransaction(m), nil
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	m := transactionModel{
		ID:          t.ID,
		Date:        t.Date.Time,
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		CategoryID:  optional(t.CategoryID),
		Source:      string(t.Source),
		CreatedAt:   t.CreatedAt,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return core.Transaction{}, &core.ValidationError{Field: "categoryId", Err: core.ErrUnknownCategory}
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return toTransaction(m), nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var m transactionModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&transactionModel{}, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return toTransaction(m), nil
}

func (s *Store) ListBudgets(ctx context.Context, ym core.YearMonth) ([]core.BudgetWithCategory, error) {
	var rows []budgetRow
	err := s.db.WithContext(ctx).Table("budgets AS b").
		Select("b.id, b.year, b.month, b.category_id, b.limit_cents, c.name AS category_name, c.color_hex AS category_color").
		Joins("JOIN categories c ON c.id = b.category_id").
		Where("b.year = ? AND b.month = ?", ym.Year, ym.Month).
		Order("c.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list budgets %s: %w", ym, err)
	}
	out := make([]core.BudgetWithCategory, 0, len(rows))
	for _, r := range rows {
		b := core.BudgetWithCategory{
			Budget: core.Budget{
				ID:         r.ID,
				Year:       r.Year,
				Month:      r.Month,
				CategoryID: r.CategoryID,
				Limit:      core.Money{Cents: r.LimitCents},
			},
			CategoryName: r.CategoryName,
		}
		if r.CategoryColor != nil {
			b.CategoryColor = *r.CategoryColor
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	m := budgetModel{
		ID:         uuid.NewString(),
		Year:       b.Year,
		Month:      b.Month,
		CategoryID: b.CategoryID,
		LimitCents: b.Limit.Cents,
	}
	db := s.db.WithContext(ctx)
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "month"}, {Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"limit_cents"}),
	}).Create(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return core.Budget{}, &core.ValidationError{Field: "categoryId", Err: core.ErrUnknownCategory}
		}
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	// the conflicting row keeps its original id
	var stored budgetModel
	if err := db.First(&stored, "year = ? AND month = ? AND category_id = ?", b.Year, b.Month, b.CategoryID).Error; err != nil {
		return core.Budget{}, fmt.Errorf("reload budget: %w", err)
	}
	return core.Budget{
		ID:         stored.ID,
		Year:       stored.Year,
		Month:      stored.Month,
		CategoryID: stored.CategoryID,
		Limit:      core.Money{Cents: stored.LimitCents},
	}, nil
}

func toCategory(m categoryModel) core.Category {
	c := core.Category{ID: m.ID, Name: m.Name}
	if m.ColorHex != nil {
		c.ColorHex = *m.ColorHex
	}
	return c
}

func toTransaction(m transactionModel) core.Transaction {
	t := core.Transaction{
		ID:          m.ID,
		Date:        core.DateOf(m.Date),
		Amount:      core.Money{Cents: m.AmountCents},
		Description: m.Description,
		Source:      core.TransactionSource(m.Source),
		CreatedAt:   m.CreatedAt,
	}
	if m.CategoryID != nil {
		t.CategoryID = *m.CategoryID
	}
	return t
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

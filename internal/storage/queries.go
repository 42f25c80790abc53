package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Category struct {
	ID        string
	Name      string
	ColorHex  sql.NullString
	CreatedAt string
}

type Transaction struct {
	ID          string
	Date        string
	AmountCents int64
	Description string
	CategoryID  sql.NullString
	Source      string
	CreatedAt   string
}

type BudgetRow struct {
	ID            string
	Year          int64
	Month         int64
	CategoryID    string
	LimitCents    int64
	CategoryName  string
	CategoryColor sql.NullString
}

const createCategory = `INSERT INTO categories (id, name, color_hex, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, name, color_hex, created_at`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, arg.ID, arg.Name, arg.ColorHex, arg.CreatedAt)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.ColorHex, &i.CreatedAt)
	return i, err
}

const listCategories = `SELECT id, name, color_hex, created_at FROM categories ORDER BY name ASC`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.ColorHex, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const categoryExists = `SELECT COUNT(*) FROM categories WHERE id = ?`

func (q *Queries) CategoryExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, categoryExists, id).Scan(&n)
	return n > 0, err
}

const deleteUnusedCategory = `DELETE FROM categories
WHERE id = ? AND NOT EXISTS (SELECT 1 FROM transactions WHERE category_id = ?)`

// DeleteUnusedCategory returns the number of rows removed.
func (q *Queries) DeleteUnusedCategory(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUnusedCategory, id, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countTransactionsByCategory = `SELECT category_id, COUNT(*) FROM transactions
WHERE category_id IS NOT NULL
GROUP BY category_id`

func (q *Queries) CountTransactionsByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countTransactionsByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

const transactionColumns = `id, date, amount_cents, description, category_id, source, created_at`

func scanTransaction(s interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := s.Scan(&i.ID, &i.Date, &i.AmountCents, &i.Description, &i.CategoryID, &i.Source, &i.CreatedAt)
	return i, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID, arg.Date, arg.AmountCents, arg.Description, arg.CategoryID, arg.Source, arg.CreatedAt)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListTransactionsParams struct {
	FromDate string // inclusive, empty for open
	ToDate   string // inclusive, empty for open
	Sign     Sign
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`)
	if arg.FromDate != "" {
		sb.WriteString(` AND date >= ?`)
		args = append(args, arg.FromDate)
	}
	if arg.ToDate != "" {
		sb.WriteString(` AND date <= ?`)
		args = append(args, arg.ToDate)
	}
	switch arg.Sign {
	case IncomeOnly:
		sb.WriteString(` AND amount_cents > 0`)
	case ExpensesOnly:
		sb.WriteString(` AND amount_cents < 0`)
	}
	sb.WriteString(` ORDER BY date DESC, created_at DESC`)

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertBudget = `INSERT INTO budgets (id, year, month, category_id, limit_cents)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (year, month, category_id) DO UPDATE SET limit_cents = excluded.limit_cents
RETURNING id, year, month, category_id, limit_cents`

type UpsertBudgetParams struct {
	ID         string
	Year       int64
	Month      int64
	CategoryID string
	LimitCents int64
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) (UpsertBudgetParams, error) {
	row := q.db.QueryRowContext(ctx, upsertBudget, arg.ID, arg.Year, arg.Month, arg.CategoryID, arg.LimitCents)
	var i UpsertBudgetParams
	err := row.Scan(&i.ID, &i.Year, &i.Month, &i.CategoryID, &i.LimitCents)
	return i, err
}

const listBudgets = `SELECT b.id, b.year, b.month, b.category_id, b.limit_cents, c.name, c.color_hex
FROM budgets b
JOIN categories c ON c.id = b.category_id
WHERE b.year = ? AND b.month = ?
ORDER BY c.name ASC`

func (q *Queries) ListBudgets(ctx context.Context, year, month int64) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var i BudgetRow
		if err := rows.Scan(&i.ID, &i.Year, &i.Month, &i.CategoryID, &i.LimitCents, &i.CategoryName, &i.CategoryColor); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

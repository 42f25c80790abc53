package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryKey is the aggregation bucket of a transaction: either a category
// id or the uncategorized bucket. The zero value is Uncategorized.
type CategoryKey struct {
	id string
}

// Uncategorized groups transactions without a category.
var Uncategorized = CategoryKey{}

// CategoryKeyOf returns the bucket for a category id; "" maps to Uncategorized.
func CategoryKeyOf(id string) CategoryKey {
	return CategoryKey{id: id}
}

// ID returns the category id and false for the uncategorized bucket.
func (k CategoryKey) ID() (string, bool) {
	return k.id, k.id != ""
}

func (k CategoryKey) IsUncategorized() bool { return k.id == "" }

func (k CategoryKey) String() string {
	if k.id == "" {
		return "uncategorized"
	}
	return k.id
}

// MarshalText lets keys survive JSON encoding, including as map keys.
func (k CategoryKey) MarshalText() ([]byte, error) {
	return []byte(k.id), nil
}

func (k *CategoryKey) UnmarshalText(b []byte) error {
	k.id = string(b)
	return nil
}

// Totals of a transaction window. Expenses stays negative.
type Totals struct {
	Income   Money
	Expenses Money
	Balance  Money
}

func ComputeTotals(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch {
		case tx.Amount.Cents > 0:
			t.Income.Cents += tx.Amount.Cents
		case tx.Amount.Cents < 0:
			t.Expenses.Cents += tx.Amount.Cents
		}
	}
	t.Balance.Cents = t.Income.Cents + t.Expenses.Cents
	return t
}

// CategorySpend maps a bucket to its accumulated spend in positive cents.
type CategorySpend map[CategoryKey]int64

// SpendByCategory sums |amount| of expenses per bucket. Income is ignored.
func SpendByCategory(txs []Transaction) CategorySpend {
	spend := make(CategorySpend)
	for _, tx := range txs {
		if tx.Amount.Cents >= 0 {
			continue
		}
		spend[tx.Key()] += -tx.Amount.Cents
	}
	return spend
}

// Of returns the spend of a bucket, zero when absent.
func (s CategorySpend) Of(k CategoryKey) int64 {
	return s[k]
}

func (s CategorySpend) Total() int64 {
	var total int64
	for _, v := range s {
		total += v
	}
	return total
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Key    CategoryKey
	Name   string
	Color  string
	Amount Money
	Share  int // rounded percentage of total spend
}

// Ranked orders the buckets by descending spend. Ties fall back to name and
// then key so the output is deterministic. label resolves display data for
// a bucket.
func (s CategorySpend) Ranked(label func(CategoryKey) (name, color string)) []CategoryAmount {
	total := s.Total()
	out := make([]CategoryAmount, 0, len(s))
	for k, v := range s {
		name, color := label(k)
		out = append(out, CategoryAmount{
			Key:    k,
			Name:   name,
			Color:  color,
			Amount: Money{Cents: v},
			Share:  roundPercent(v, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Key.String() < b.Key.String()
	})
	return out
}

// DayPoint holds one day of the chart series, in major currency units.
type DayPoint struct {
	Day      Date    `json:"-"`
	Date     string  `json:"date"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// DailySeries groups transactions by calendar day. The series is sparse:
// days without transactions are absent. Amounts of zero or more count as
// income; expenses are reported as positive magnitudes.
func DailySeries(txs []Transaction) []DayPoint {
	type bucket struct{ income, expenses int64 }
	days := make(map[string]*bucket)
	dates := make(map[string]Date)
	for _, tx := range txs {
		key := tx.Date.String()
		b, ok := days[key]
		if !ok {
			b = &bucket{}
			days[key] = b
			dates[key] = tx.Date
		}
		if tx.Amount.Cents >= 0 {
			b.income += tx.Amount.Cents
		} else {
			b.expenses += -tx.Amount.Cents
		}
	}

	out := make([]DayPoint, 0, len(days))
	for key, b := range days {
		out = append(out, DayPoint{
			Day:      dates[key],
			Date:     key,
			Income:   Money{Cents: b.income}.Major(),
			Expenses: Money{Cents: b.expenses}.Major(),
		})
	}
	// ISO dates sort lexically
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ComputeUtilization returns the clamped percentage of limit consumed by
// spent and the signed remaining amount. A zero limit yields 0%.
func ComputeUtilization(limit, spent int64) (percentage int, remaining int64) {
	remaining = limit - spent
	if limit <= 0 {
		return 0, remaining
	}
	pct := decimal.Min(decimal.Max(percentOf(spent, limit), decimal.Zero), hundred)
	return int(pct.IntPart()), remaining
}

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// percentOf is round(part/whole*100) with halves rounded away from zero.
// The arithmetic is exact, so no int64 product can overflow.
func percentOf(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	w := decimal.NewFromInt(whole)
	num := decimal.NewFromInt(part).Mul(hundred).Mul(two)
	den := w.Mul(two)
	if num.Sign() != den.Sign() {
		num = num.Sub(w)
	} else {
		num = num.Add(w)
	}
	q, _ := num.QuoRem(den, 0)
	return q
}

// roundPercent is percentOf for shares, which never exceed 100.
func roundPercent(part, whole int64) int {
	return int(percentOf(part, whole).IntPart())
}

// BudgetLine is the utilization of a single budget row.
type BudgetLine struct {
	Budget        Budget
	CategoryName  string
	CategoryColor string
	Spent         Money
	Percentage    int
	Remaining     Money
}

func (l BudgetLine) Overspent() bool { return l.Remaining.Cents < 0 }

// BudgetReport is the monthly rollup of all budget rows.
type BudgetReport struct {
	Period     YearMonth
	Lines      []BudgetLine
	TotalLimit Money
	TotalSpent Money // spend of budgeted categories only
	Remaining  Money
}

// BuildBudgetReport joins budget rows with spend. Line order follows budgets.
func BuildBudgetReport(period YearMonth, budgets []BudgetWithCategory, spend CategorySpend) BudgetReport {
	report := BudgetReport{Period: period, Lines: make([]BudgetLine, 0, len(budgets))}
	for _, b := range budgets {
		spent := spend.Of(CategoryKeyOf(b.CategoryID))
		pct, remaining := ComputeUtilization(b.Limit.Cents, spent)
		report.Lines = append(report.Lines, BudgetLine{
			Budget:        b.Budget,
			CategoryName:  b.CategoryName,
			CategoryColor: b.CategoryColor,
			Spent:         Money{Cents: spent},
			Percentage:    pct,
			Remaining:     Money{Cents: remaining},
		})
		report.TotalLimit.Cents += b.Limit.Cents
		report.TotalSpent.Cents += spent
	}
	report.Remaining.Cents = report.TotalLimit.Cents - report.TotalSpent.Cents
	return report
}

// MonthOverview is the dashboard summary for a specific year+month.
type MonthOverview struct {
	Period   YearMonth
	Totals   Totals
	TopSpend []CategoryAmount
	Series   []DayPoint
	Count    int
}

// TopSpendLimit caps the categories shown on the dashboard.
const TopSpendLimit = 6

// BuildMonthOverview aggregates a month window of transactions.
func BuildMonthOverview(period YearMonth, txs []Transaction, label func(CategoryKey) (string, string)) MonthOverview {
	ranked := SpendByCategory(txs).Ranked(label)
	if len(ranked) > TopSpendLimit {
		ranked = ranked[:TopSpendLimit]
	}
	return MonthOverview{
		Period:   period,
		Totals:   ComputeTotals(txs),
		TopSpend: ranked,
		Series:   DailySeries(txs),
		Count:    len(txs),
	}
}

package http

import (
	"html/template"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

// page is the layout data every template gets.
type page struct {
	Title  string
	Active string
	Notice string
	Form   formState
	Today  string
}

// monthNav drives the previous/next month selector.
type monthNav struct {
	Current core.YearMonth
	Prev    core.YearMonth
	Next    core.YearMonth
	Path    string
}

func newMonthNav(ym core.YearMonth, path string) monthNav {
	return monthNav{Current: ym, Prev: ym.Prev(), Next: ym.Next(), Path: path}
}

type dashboardPage struct {
	page
	Month monthNav
	View  services.DashboardView
	Chart lineChart
}

type transactionsPage struct {
	page
	View services.LedgerView
}

type budgetsPage struct {
	page
	Month monthNav
	View  services.BudgetsView
}

type categoriesPage struct {
	page
	View services.CategoriesView
}

func (s *Server) newPage(title, active string, form formState) page {
	return page{
		Title:  title,
		Active: active,
		Form:   form,
		Today:  core.DateOf(s.now()).String(),
	}
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return s.money.Format(m.Cents) },
		"cents": func(c int64) string { return s.money.Format(c) },
		"monthLabel": func(ym core.YearMonth) string {
			return ym.Time(time.UTC).Format("January 2006")
		},
		"date": func(d core.Date) string { return d.String() },
		"amountClass": func(m core.Money) string {
			switch {
			case m.IsIncome():
				return "income"
			case m.IsExpense():
				return "expense"
			default:
				return "zero"
			}
		},
		"swatch": func(hex string) template.CSS {
			if !core.IsColorHex(hex) {
				return template.CSS("background-color: var(--muted)")
			}
			return template.CSS("background-color: " + strings.ToLower(hex))
		},
		"width": func(pct int) template.CSS {
			if pct < 0 {
				pct = 0
			}
			if pct > 100 {
				pct = 100
			}
			return template.CSS("width: " + itoa(pct) + "%")
		},
		"selected": func(a, b string) bool { return a == b },
	}
}

package http

import (
	"net/http"
	"net/url"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		ym, _ := parseMonth(r.URL.Query(), s.now())
		s.renderBudgets(w, r, ym, http.StatusOK, formState{})
	case http.MethodPost:
		s.handleUpsertBudget(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderBudgets(w http.ResponseWriter, r *http.Request, ym core.YearMonth, status int, form formState) {
	view, err := s.ledger.Budgets(r.Context(), ym)
	if err != nil {
		s.renderViewError(w, r, "budgets", err)
		return
	}
	data := budgetsPage{
		page:  s.newPage("Budgets", "budgets", form),
		Month: newMonthNav(ym, "/budgets"),
		View:  view,
	}
	if status == http.StatusOK {
		data.Notice = noticeFor(r)
	}
	s.render(w, r, status, "budgets.html", data)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	in := services.UpsertBudgetInput{
		Month:      p.Get("month"),
		CategoryID: p.Get("categoryId"),
		Limit:      p.Get("limit"),
	}
	b, err := s.ledger.UpsertBudget(r.Context(), in)
	if err != nil {
		ym, _ := parseMonth(url.Values{"month": {in.Month}}, s.now())
		s.writeCommandError(w, r, log.OpUpsert, err, formState{Values: p.Values()}, func(status int, form formState) {
			s.renderBudgets(w, r, ym, status, form)
		})
		return
	}
	s.appMetrics.budgetsUpserted.Add(1)

	ym := b.YearMonth()
	location := withNotice("/budgets?month="+ym.String(), "budget-saved")
	s.writeCommandSuccess(w, r, services.BudgetUpserted.String(), ym, "Budget saved.", location)
}

package http

import (
	"encoding/json"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ym, ok := parseMonth(r.URL.Query(), s.now())
	if !ok {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid month parameter",
			"month", r.URL.Query().Get("month"),
			"corrected_to", ym.String())
	}

	view, err := s.ledger.Dashboard(r.Context(), ym)
	if err != nil {
		s.renderViewError(w, r, "dashboard", err)
		return
	}

	data := dashboardPage{
		page:  s.newPage("Dashboard", "dashboard", formState{}),
		Month: newMonthNav(ym, "/"),
		View:  view,
		Chart: buildLineChart(ym, view.Overview.Series, s.money.Format),
	}
	data.Notice = noticeFor(r)
	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

type seriesResponse struct {
	Month    string          `json:"month"`
	Points   []core.DayPoint `json:"points"`
	Income   int64           `json:"income_cents"`
	Expenses int64           `json:"expenses_cents"`
	Balance  int64           `json:"balance_cents"`
}

// handleSeries serves the dashboard chart data as JSON.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ym, ok := parseMonth(r.URL.Query(), s.now())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
		return
	}

	view, err := s.ledger.Dashboard(r.Context(), ym)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build series",
			log.FieldError, err,
			log.FieldYear, ym.Year,
			log.FieldMonth, ym.Month)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load series"})
		return
	}

	points := view.Overview.Series
	if points == nil {
		points = []core.DayPoint{}
	}
	totals := view.Overview.Totals
	writeJSON(w, http.StatusOK, seriesResponse{
		Month:    ym.String(),
		Points:   points,
		Income:   totals.Income.Cents,
		Expenses: totals.Expenses.Cents,
		Balance:  totals.Balance.Cents,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

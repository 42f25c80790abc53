package http

import (
	"bytes"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

// handleTransactions serves the ledger on GET and creates a transaction on
// POST.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.renderTransactions(w, r, http.StatusOK, formState{})
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderTransactions(w http.ResponseWriter, r *http.Request, status int, form formState) {
	view, err := s.ledger.Ledger(r.Context())
	if err != nil {
		s.renderViewError(w, r, "ledger", err)
		return
	}
	data := transactionsPage{page: s.newPage("Transactions", "transactions", form), View: view}
	if status == http.StatusOK {
		data.Notice = noticeFor(r)
	}
	s.render(w, r, status, "transactions.html", data)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	in := services.CreateTransactionInput{
		Date:        p.Get("date"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		CategoryID:  p.Get("categoryId"),
		Source:      string(core.SourceManual),
	}
	tx, err := s.ledger.CreateTransaction(r.Context(), in)
	if err != nil {
		s.writeCommandError(w, r, log.OpCreate, err, formState{Values: p.Values()}, func(status int, form formState) {
			s.renderTransactions(w, r, status, form)
		})
		return
	}
	s.appMetrics.transactionsCreated.Add(1)

	location := localRedirect(p.Get("redirect"), "/transactions")
	s.writeCommandSuccess(w, r, services.TransactionCreated.String(), tx.Date.YearMonth(),
		"Transaction saved.", withNotice(location, "transaction-created"))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	id := p.Get("id")
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		s.writeCommandError(w, r, log.OpDelete, err, formState{}, func(status int, form formState) {
			s.renderTransactions(w, r, status, form)
		})
		return
	}
	s.appMetrics.transactionsDeleted.Add(1)

	location := localRedirect(p.Get("redirect"), "/transactions")
	s.writeCommandSuccess(w, r, services.TransactionDeleted.String(), core.YearMonth{},
		"Transaction deleted.", withNotice(location, "transaction-deleted"))
}

// handleExport downloads the ledger, or one month of it with ?month=.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	var ym core.YearMonth
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		parsed, err := core.ParseYearMonth(v)
		if err != nil {
			BadRequestError("month must be YYYY-MM").Write(w)
			return
		}
		ym = parsed
	}

	rows, err := s.ledger.MonthTransactions(r.Context(), ym)
	if err != nil {
		s.renderViewError(w, r, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, rows); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentExport).ErrorContext(r.Context(), "Failed to build workbook",
			log.FieldError, err,
			log.FieldOperation, log.OpExport)
		InternalServerError("Could not build export").Write(w)
		return
	}
	s.appMetrics.exports.Add(1)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(ym)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

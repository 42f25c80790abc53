package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady checks templates and the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if len(s.pages) == 0 {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ledger == nil:
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := s.ledger.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	m := &s.appMetrics

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_requests_in_flight Requests currently being served\n")
	fmt.Fprintf(w, "# TYPE http_requests_in_flight gauge\n")
	fmt.Fprintf(w, "http_requests_in_flight %d\n\n", traceMetrics.InFlight)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_microseconds Mean request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_microseconds gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_microseconds %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP ledger_writes_total Successful ledger writes by kind\n")
	fmt.Fprintf(w, "# TYPE ledger_writes_total counter\n")
	fmt.Fprintf(w, "ledger_writes_total{kind=\"transaction.created\"} %d\n", m.transactionsCreated.Load())
	fmt.Fprintf(w, "ledger_writes_total{kind=\"transaction.deleted\"} %d\n", m.transactionsDeleted.Load())
	fmt.Fprintf(w, "ledger_writes_total{kind=\"category.created\"} %d\n", m.categoriesCreated.Load())
	fmt.Fprintf(w, "ledger_writes_total{kind=\"category.deleted\"} %d\n", m.categoriesDeleted.Load())
	fmt.Fprintf(w, "ledger_writes_total{kind=\"budget.upserted\"} %d\n\n", m.budgetsUpserted.Load())

	fmt.Fprintf(w, "# HELP category_deletes_refused_total Deletes refused because the category is in use\n")
	fmt.Fprintf(w, "# TYPE category_deletes_refused_total counter\n")
	fmt.Fprintf(w, "category_deletes_refused_total %d\n\n", m.categoryDeletesHeld.Load())

	fmt.Fprintf(w, "# HELP validation_failures_total Rejected form submissions\n")
	fmt.Fprintf(w, "# TYPE validation_failures_total counter\n")
	fmt.Fprintf(w, "validation_failures_total %d\n\n", m.validationFailures.Load())

	fmt.Fprintf(w, "# HELP exports_total Spreadsheet exports served\n")
	fmt.Fprintf(w, "# TYPE exports_total counter\n")
	fmt.Fprintf(w, "exports_total %d\n\n", m.exports.Load())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", s.now().Sub(m.uptime).Seconds())
}

// statusForError is the single mapping from domain errors to HTTP status.
func statusForError(err error) int {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrCategoryInUse), errors.Is(err, core.ErrDuplicateCategory):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var fieldLabels = map[string]string{
	"date":        "Date",
	"amount":      "Amount",
	"description": "Description",
	"categoryId":  "Category",
	"source":      "Source",
	"name":        "Name",
	"colorHex":    "Colour",
	"month":       "Month",
	"limit":       "Limit",
}

// messageForError is what the user sees. Store failures stay generic.
func messageForError(err error) string {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		label, ok := fieldLabels[ve.Field]
		if !ok {
			label = ve.Field
		}
		return label + ": " + ve.Err.Error()
	case errors.Is(err, core.ErrCategoryInUse):
		return "This category still has transactions, so it was not deleted."
	case errors.Is(err, core.ErrDuplicateCategory):
		return "A category with this name already exists."
	case errors.Is(err, core.ErrNotFound):
		return "That record no longer exists."
	default:
		return "Something went wrong. Please try again."
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	default:
		return log.ErrorTypeInternal
	}
}

// logFailure logs a rejected command: warn for client errors, error for
// store failures.
func (s *Server) logFailure(r *http.Request, op string, err error) int {
	status := statusForError(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	if status == http.StatusUnprocessableEntity {
		s.appMetrics.validationFailures.Add(1)
	}
	fields := log.NewFields().
		WithOperation(op).
		WithError(err).
		WithErrorType(errorType(status))
	log.FromContext(r.Context()).Fields(r.Context(), level, "Request rejected", fields)
	return status
}

// formState carries a rejected submission back into its page.
type formState struct {
	Error  string
	Values url.Values
}

func (f formState) Value(key string) string {
	return f.Values.Get(key)
}

// writeCommandError answers a failed write. htmx callers get the message
// inline with a notification; plain forms get their page re-rendered.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, op string, err error, form formState, rerender func(int, formState)) {
	status := s.logFailure(r, op, err)
	form.Error = messageForError(err)
	if isHTMX(r) {
		ErrorResponse(status, form.Error).TriggerErrorNotification(form.Error).Write(w)
		return
	}
	rerender(status, form)
}

// writeCommandSuccess redirects plain forms (post/redirect/get) and tells
// htmx callers what changed.
func (s *Server) writeCommandSuccess(w http.ResponseWriter, r *http.Request, kind string, ym core.YearMonth, message, location string) {
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerLedgerChanged(kind, ym).
			TriggerFormReset().
			TriggerSuccessNotification(message).
			Refresh().
			Write(w)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// renderViewError answers a failed read.
func (s *Server) renderViewError(w http.ResponseWriter, r *http.Request, view string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build view",
		"view", view,
		log.FieldError, err,
		log.FieldErrorType, log.ErrorTypeDatabase)
	InternalServerError("Could not load " + view + ". Please try again.").Write(w)
}

// withNotice appends a known notice key to a location.
func withNotice(location, notice string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	q := u.Query()
	q.Set("notice", notice)
	u.RawQuery = q.Encode()
	return u.String()
}

var notices = map[string]string{
	"transaction-created": "Transaction saved.",
	"transaction-deleted": "Transaction deleted.",
	"category-created":    "Category added.",
	"category-deleted":    "Category deleted.",
	"budget-saved":        "Budget saved.",
}

// noticeFor only echoes messages it knows, never the raw query value.
func noticeFor(r *http.Request) string {
	return notices[r.URL.Query().Get("notice")]
}

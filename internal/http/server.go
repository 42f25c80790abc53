package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	appweb "expensetracker/web"
)

// Ledger is the part of the ledger service the pages use.
type Ledger interface {
	CreateTransaction(ctx context.Context, in services.CreateTransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, in services.CreateCategoryInput) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	UpsertBudget(ctx context.Context, in services.UpsertBudgetInput) (core.Budget, error)

	Dashboard(ctx context.Context, ym core.YearMonth) (services.DashboardView, error)
	Ledger(ctx context.Context) (services.LedgerView, error)
	Budgets(ctx context.Context, ym core.YearMonth) (services.BudgetsView, error)
	Categories(ctx context.Context) (services.CategoriesView, error)
	MonthTransactions(ctx context.Context, ym core.YearMonth) ([]services.TransactionRow, error)

	Ping(ctx context.Context) error
}

type Options struct {
	Addr   string
	Ledger Ledger
	Logger *log.Logger
	// Money defaults to CAD in fr-CA.
	Money     *core.MoneyFormatter
	RateLimit ratelimit.Config
	Now       func() time.Time
}

type Server struct {
	http.Server
	ledger Ledger
	pages  map[string]*template.Template
	logger *log.Logger
	money  *core.MoneyFormatter
	now    func() time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime time.Time

	transactionsCreated atomic.Int64
	transactionsDeleted atomic.Int64
	categoriesCreated   atomic.Int64
	categoriesDeleted   atomic.Int64
	categoryDeletesHeld atomic.Int64
	budgetsUpserted     atomic.Int64
	validationFailures  atomic.Int64
	exports             atomic.Int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server. Template failures are logged and reported by /readyz.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	money := opts.Money
	if money == nil {
		money, _ = core.NewMoneyFormatter("CAD", "fr-CA")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		ledger:           opts.Ledger,
		logger:           logger,
		money:            money,
		now:              now,
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		traceMiddleware:  trace.NewMiddleware(),
	}
	s.appMetrics.uptime = now()

	pages, err := s.parseTemplates()
	if err != nil {
		logger.Error("Failed parsing templates",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}
	s.pages = pages

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/transactions/delete", s.handleDeleteTransaction)
	mux.HandleFunc("/transactions/export.xlsx", s.handleExport)
	mux.HandleFunc("/budgets", s.handleBudgets)
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/categories/delete", s.handleDeleteCategory)
	mux.HandleFunc("/api/series", s.handleSeries)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.Handler = s.middleware(mux)
	return s
}

// middleware wraps the mux, outermost first: request id, request log,
// probe detection, security headers, rate limiting of writes.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited,
		http.MethodPost, http.MethodDelete)(next)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	detected := s.securityDetector.Middleware(headers)
	logged := log.RequestMiddleware(s.logger, trace.RequestID, s.securityDetector.ExtractClientIP)(detected)
	return s.traceMiddleware.Middleware(logged)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	msg := "Too many changes in a short time. Please wait a moment."
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, msg).TriggerErrorNotification(msg).Write(w)
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}

var pageFiles = []string{"dashboard.html", "transactions.html", "budgets.html", "categories.html"}

// parseTemplates builds one template set per page on top of the shared
// layout and partials.
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(s.templateFuncs()).
		ParseFS(appweb.TemplatesFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(appweb.TemplatesFS, "templates/"+name); err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes page into a buffer so a template error still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.pages[page]
	if !ok {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", page)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

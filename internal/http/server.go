package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/export"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	appweb "bilancio/web"
)

// Server serves the web UI and the JSON API. All mutations flow through the
// services layer, so budgets stay consistent no matter which handler fired.
type Server struct {
	http.Server
	templates *template.Template

	transactions *services.TransactionService
	budgets      *services.BudgetService
	storage      *storage.SQLiteRepository
	exporter     *export.SheetsExporter

	// Single-tenant mode: every request acts as this user.
	userID int64

	rateLimiter   *ratelimit.Limiter
	overviewCache *cache.LRUCache[core.MonthOverview]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Deps carries everything the server needs; the exporter may be nil.
type Deps struct {
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Storage      *storage.SQLiteRepository
	Exporter     *export.SheetsExporter
	UserID       int64
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		transactions:     deps.Transactions,
		budgets:          deps.Budgets,
		storage:          deps.Storage,
		exporter:         deps.Exporter,
		userID:           deps.UserID,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		overviewCache:    cache.NewLRUCache[core.MonthOverview](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/month-overview", s.handleMonthOverview)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactionList)
	mux.HandleFunc("GET /ui/budgets", s.handleBudgetList)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDeleteTransaction)

	mux.HandleFunc("POST /budgets", s.handleCreateBudget)
	mux.HandleFunc("POST /budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("POST /budgets/{id}/delete", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("GET /api/assets", s.handleListAssets)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgetsJSON)
	mux.HandleFunc("POST /api/export", s.handleExport)

	// Middleware chain: tracing outermost, then the request logger, security
	// headers, and the rate limit on everything that reaches a handler.
	traced := trace.NewMiddleware(clientIP)
	reqlog := applog.Middleware(applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP}))
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(clientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: traced.Middleware(reqlog(headers.Middleware(limited(mux)))),
	}
	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.overviewCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

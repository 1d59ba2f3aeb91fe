// Package http serves the JSON API.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"finjoy/internal/cache"
	"finjoy/internal/middleware/trace"
	"finjoy/internal/services"
	"finjoy/internal/transfer"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownGrace     = 10 * time.Second

	rateLimitPerMinute = 60

	reportCacheSize = 64
	reportCacheTTL  = 5 * time.Minute
)

// ServerConfig wires the service layer into the server.
type ServerConfig struct {
	Addr string

	Ledger       *services.LedgerService
	Categories   *services.CategoryService
	Recurring    *services.RecurringService
	Reports      *services.ReportService
	Materializer *services.Materializer
	ExportStore  transfer.ExportStore
	Importer     *transfer.Importer
}

// Server is the HTTP front of the tracker. Report responses are cached;
// every mutation clears the cache so reports never trail the ledger.
type Server struct {
	httpServer *http.Server

	ledger       *services.LedgerService
	categories   *services.CategoryService
	recurring    *services.RecurringService
	reports      *services.ReportService
	materializer *services.Materializer
	exportStore  transfer.ExportStore
	importer     *transfer.Importer

	reportCache  *cache.LRUCache[[]byte]
	cacheManager *cache.Manager
	limiter      *rateLimiter
	tracer       *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		ledger:       cfg.Ledger,
		categories:   cfg.Categories,
		recurring:    cfg.Recurring,
		reports:      cfg.Reports,
		materializer: cfg.Materializer,
		exportStore:  cfg.ExportStore,
		importer:     cfg.Importer,
		reportCache:  cache.NewLRUCache[[]byte](reportCacheSize, reportCacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      newRateLimiter(rateLimitPerMinute, time.Minute),
		tracer:       trace.NewMiddleware(clientIP),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(time.Minute)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/reorder", s.handleReorderCategories)

	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("POST /api/recurring", s.handleCreateRecurring)
	mux.HandleFunc("GET /api/recurring/{id}", s.handleGetRecurring)
	mux.HandleFunc("PUT /api/recurring/{id}", s.handleUpdateRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)
	mux.HandleFunc("PUT /api/recurring/{id}/active", s.handleSetRecurringActive)
	mux.HandleFunc("POST /api/recurring/{id}/amount", s.handleChangeRecurringAmount)
	mux.HandleFunc("GET /api/recurring/{id}/history", s.handleRecurringHistory)
	mux.HandleFunc("POST /api/recurring/materialize", s.handleMaterialize)

	mux.HandleFunc("GET /api/reports/summary", s.handleReportSummary)
	mux.HandleFunc("GET /api/reports/breakdown", s.handleReportBreakdown)
	mux.HandleFunc("GET /api/reports/top-categories", s.handleReportTopCategories)
	mux.HandleFunc("GET /api/reports/top-expenses", s.handleReportTopExpenses)
	mux.HandleFunc("GET /api/reports/categories/{name}", s.handleReportCategoryDetails)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	handler = withSecurityHeaders(handler)
	handler = s.tracer.Middleware(handler)
	return handler
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the background goroutines.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		s.cacheManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		err = s.httpServer.Shutdown(shutdownCtx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness by touching the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.categories.ListCategories(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]int64{
		"total_requests":      m.TotalRequests,
		"failed_requests":     m.FailedRequests,
		"last_duration_ms":    m.LastDurationMS,
		"rate_limit_rejected": s.limiter.rejectedCount(),
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			slog.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", clientIP(r))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// clientIP trusts the first X-Forwarded-For hop when present, falling back
// to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package http is the JSON presentation boundary. Handlers parse and
// validate input, call the engine or read the store, attach derived state,
// and map the error taxonomy onto status codes. No financial state lives
// here; the dashboard cache only memoizes a derivable snapshot.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finbook/internal/backend"
	"finbook/internal/cache"
	"finbook/internal/engine"
	"finbook/internal/log"
)

const dashboardCacheKey = "dashboard"

type Server struct {
	http.Server
	store  backend.Store
	engine *engine.Engine
	logger *log.Logger
	now    func() time.Time

	dashCache    *cache.LRUCache[DashboardView]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server listening on addr.
func NewServer(addr string, store backend.Store, eng *engine.Engine, logger *log.Logger, cacheTTL time.Duration) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	router := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:        store,
		engine:       eng,
		logger:       logger.WithComponent(log.ComponentHTTP),
		now:          time.Now,
		dashCache:    cache.NewLRUCache[DashboardView](4, cacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	router.Use(s.withRequestLogging)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)

	api.HandleFunc("/loans", s.handleListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", s.handleCreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/payments", s.handleLoanPayment).Methods(http.MethodPost)

	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}", s.handleUpdateBudget).Methods(http.MethodPut)

	api.HandleFunc("/goals", s.handleListGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.handleCreateGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}/contributions", s.handleGoalContribution).Methods(http.MethodPost)

	api.HandleFunc("/bills", s.handleListBills).Methods(http.MethodGet)
	api.HandleFunc("/bills", s.handleCreateBill).Methods(http.MethodPost)
	api.HandleFunc("/bills/{id}/paid", s.handleMarkBillPaid).Methods(http.MethodPost)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/subcategories", s.handleCreateSubcategory).Methods(http.MethodPost)

	api.HandleFunc("/{kind}/{id}", s.handleDelete).Methods(http.MethodDelete)

	return s
}

// Router exposes the configured handler, for tests.
func (s *Server) Router() http.Handler {
	return s.Server.Handler
}

// Shutdown stops the cache cleanup routine and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateDashboard drops the memoized snapshot after any accepted
// mutation; the next read recomputes from the store.
func (s *Server) invalidateDashboard() {
	s.dashCache.Delete(dashboardCacheKey)
}

// withRequestLogging tags each request with a generated id and logs start
// and completion with status and duration.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.DebugContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

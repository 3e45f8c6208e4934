// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sedna-dashboard/internal/circuitbreaker"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/ratelimit"
	"github.com/sedna-dashboard/internal/series"
	"github.com/sedna-dashboard/internal/service"
	"github.com/sedna-dashboard/internal/types"
)

// Service interfaces for dependency injection and testing

// MarketServiceInterface defines the market snapshot operations
type MarketServiceInterface interface {
	Snapshot() types.MarketSnapshot
	Status() service.LoadStatus
	Fetch(ctx context.Context, page int) types.MarketSnapshot
	Refresh(ctx context.Context) types.MarketSnapshot
	Search(term string) []types.Asset
	FindAsset(id string) (types.Asset, bool)
	LoadStats() service.LoadStats
}

// BudgetReporter exposes the shared upstream call budget for health checks
type BudgetReporter interface {
	Usage(ctx context.Context) (*ratelimit.BudgetUsage, error)
}

// BreakerReporter exposes the upstream circuit breaker for health checks
type BreakerReporter interface {
	Name() string
	BreakerStats() *circuitbreaker.Stats
}

// WhaleFeedInterface defines the live feed operations
type WhaleFeedInterface interface {
	Recent() []types.WhaleTransaction
	Subscribe(buffer int) (<-chan types.WhaleTransaction, func())
}

// Dependencies groups the services the handlers call into. Upstream is optional.
type Dependencies struct {
	Market   MarketServiceInterface
	Upstream BreakerReporter
	Budget   BudgetReporter // nil when Redis is disabled
	Sessions *service.SessionManager
	Series   *series.Generator
	Whales   WhaleFeedInterface
	Ledger   *service.LedgerService
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	deps       Dependencies
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int // requests per second per client, <= 0 disables
	RateLimitBurst  int
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, deps Dependencies) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		config: config,
	}

	s.setupRouter()

	return s
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Order matters: logging first so every later stage has a request logger.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Market
	api.HandleFunc("/market", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/market/refresh", s.handleRefreshMarket).Methods("POST")

	// Sessions and dashboard state
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/dashboard", s.withSession(s.handleGetDashboard)).Methods("GET")
	api.HandleFunc("/dashboard/selection", s.withSession(s.handleSelectAsset)).Methods("PUT")
	api.HandleFunc("/dashboard/favorites/{id}/toggle", s.withSession(s.handleToggleFavorite)).Methods("POST")
	api.HandleFunc("/dashboard/favorites/{id}", s.withSession(s.handleRemoveFavorite)).Methods("DELETE")
	api.HandleFunc("/dashboard/viewport", s.withSession(s.handleResize)).Methods("PUT")

	// Series
	api.HandleFunc("/series", s.handleGetSeries).Methods("GET")
	api.HandleFunc("/series/dual", s.handleGetDualSeries).Methods("GET")
	api.HandleFunc("/series/flow", s.handleGetFlow).Methods("GET")

	// Whale feed
	api.HandleFunc("/whales", s.handleGetWhales).Methods("GET")
	api.HandleFunc("/whales/stream", s.handleWhaleStream).Methods("GET")

	// Accounts and overlay menu
	api.HandleFunc("/accounts", s.withSession(s.handleListAccounts)).Methods("GET")
	api.HandleFunc("/accounts/{id}/removal", s.withSession(s.handleRequestRemoval)).Methods("POST")
	api.HandleFunc("/accounts/{id}/removal", s.withSession(s.handleCancelRemoval)).Methods("DELETE")
	api.HandleFunc("/accounts/{id}/removal/check", s.withSession(s.handleCheckRemoval)).Methods("POST")
	api.HandleFunc("/accounts/{id}", s.withSession(s.handleConfirmRemoval)).Methods("DELETE")
	api.HandleFunc("/accounts/{id}/color", s.withSession(s.handleCustomizeAccount)).Methods("PUT")
	api.HandleFunc("/accounts/{id}/menu", s.withSession(s.handleToggleMenu)).Methods("POST")
	api.HandleFunc("/overlay/dismiss", s.withSession(s.handleDismissMenu)).Methods("POST")

	// Ledger
	api.HandleFunc("/transactions", s.handleListTransactions).Methods("GET")
	api.HandleFunc("/orderbook", s.handleGetOrderBook).Methods("GET")

	// Preflight requests are answered by CORSMiddleware
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

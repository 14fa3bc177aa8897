package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"household/internal/analysis"
	"household/internal/core"
	"household/internal/log"
	"household/internal/metrics"
	"household/internal/middleware/ratelimit"
	"household/internal/middleware/security"
	"household/internal/middleware/trace"
	"household/internal/services"
	"household/internal/sheets"
)

// defaultMaxUploadBytes bounds spreadsheet uploads when Deps leaves it unset.
const defaultMaxUploadBytes = 10 << 20

// Service ports consumed by the handlers.
type (
	FamilyService interface {
		CreateFamily(ctx context.Context, f core.FamilyProfile) (core.FamilyProfile, error)
		GetFamily(ctx context.Context, familyID string) (core.FamilyProfile, error)
		ListFamilies(ctx context.Context) ([]core.FamilyProfile, error)
	}

	TransactionService interface {
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		ListTransactions(ctx context.Context, familyID string) ([]core.Transaction, error)
	}

	AnalysisService interface {
		MemberContribution(ctx context.Context, entries []analysis.ContributionEntry) (core.MemberContribution, error)
		FamilyContribution(ctx context.Context, familyID string) (core.MemberContribution, error)
		SavingsOptimization(ctx context.Context, in analysis.SavingsInput) (core.SavingsOptimization, error)
	}

	WorkbookImporter interface {
		ImportWorkbook(ctx context.Context, source string, wb sheets.Workbook) (services.ImportResult, error)
	}
)

// Deps carries everything the server routes to.
type Deps struct {
	Families     FamilyService
	Transactions TransactionService
	Analysis     AnalysisService
	Importer     WorkbookImporter

	Logger  *log.Logger
	Metrics *metrics.Metrics

	// RateLimitPerMinute limits POST requests per client IP.
	RateLimitPerMinute int
	MaxUploadBytes     int64

	// Readiness reports whether storage is reachable. Nil means always ready.
	Readiness func(ctx context.Context) error
}

// Server is the JSON API server.
type Server struct {
	http.Server
	deps         Deps
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	deps.Logger = deps.Logger.WithComponent(log.ComponentHTTP)
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}

	limiterCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		deps:    deps,
		limiter: ratelimit.NewLimiter(limiterCfg),
	}

	deps.Metrics.TrackRateLimiter(func() (int64, int64) {
		stats := s.limiter.GetMetrics()
		return stats.TotalHits, stats.ClientCount
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analysis/member-contribution", s.handleMemberContribution)
	mux.HandleFunc("POST /api/analysis/savings-optimization", s.handleSavingsOptimization)
	mux.HandleFunc("POST /api/analysis/add-transaction", s.handleAddTransaction(msgTransactionSaved))
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction(msgTransactionAdded))
	mux.HandleFunc("POST /api/families", s.handleCreateFamily)
	mux.HandleFunc("GET /api/families", s.handleListFamilies)
	mux.HandleFunc("GET /api/families/{familyId}", s.handleGetFamily)
	mux.HandleFunc("GET /api/families/{familyId}/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/families/{familyId}/member-contribution", s.handleFamilyContribution)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	tracer := trace.NewMiddleware(security.ClientIP, deps.Logger, deps.Metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, security.ClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, msgTooManyRequest).Write(w)
	}, http.MethodPost)

	var handler http.Handler = trace.RecordRoute(mux)
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Readiness(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			NewJSONResponse().Status(http.StatusServiceUnavailable).
				Body(map[string]string{"status": "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

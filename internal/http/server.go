package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Services are the application services the handlers call.
type Services struct {
	Users        *services.UserService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	AI           *services.AIService
}

// Config wires the server's collaborators.
type Config struct {
	Addr      string
	Logger    *log.Logger
	Issuer    *auth.Issuer
	RateLimit ratelimit.Config

	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error

	// Caches is stopped on shutdown when set.
	Caches *cache.Manager
	// RecapStats feeds cache counters into /metrics when set.
	RecapStats func() cache.Stats
}

type Server struct {
	http.Server

	users        *services.UserService
	categories   *services.CategoryService
	transactions *services.TransactionService
	ai           *services.AIService

	logger     *log.Logger
	detector   *security.Detector
	tracer     *trace.Middleware
	limiter    *ratelimit.Limiter
	caches     *cache.Manager
	recapStats func() cache.Stats
	ready      func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		users:        svc.Users,
		categories:   svc.Categories,
		transactions: svc.Transactions,
		ai:           svc.AI,
		logger:       logger,
		detector:     detector,
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, logger),
		limiter:      ratelimit.NewLimiter(cfg.RateLimit),
		caches:       cfg.Caches,
		recapStats:   cfg.RecapStats,
		ready:        cfg.Ready,
	}

	protected := auth.RequireAuth(cfg.Issuer, func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WarnContext(r.Context(), "Authentication failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
		ErrorResponse(w, http.StatusUnauthorized, "Authentication required.")
	})
	authed := func(h http.HandlerFunc) http.Handler { return protected(h) }

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword)

	mux.Handle("GET /api/users", authed(s.handleListUsers))
	mux.Handle("GET /api/users/{id}", authed(s.handleGetUser))

	mux.Handle("GET /api/categories", authed(s.handleListCategories))
	mux.Handle("GET /api/categories/{id}", authed(s.handleGetCategory))
	mux.Handle("POST /api/categories", authed(s.handleCreateCategory))
	mux.Handle("PUT /api/categories/{id}", authed(s.handleUpdateCategory))
	mux.Handle("DELETE /api/categories/{id}", authed(s.handleDeleteCategory))

	mux.Handle("GET /api/transactions", authed(s.handleListTransactions))
	mux.Handle("GET /api/transactions/recap", authed(s.handleRecap))
	mux.Handle("GET /api/transactions/{id}", authed(s.handleGetTransaction))
	mux.Handle("POST /api/transactions", authed(s.handleCreateTransaction))
	mux.Handle("PUT /api/transactions/{id}", authed(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", authed(s.handleDeleteTransaction))

	mux.Handle("POST /api/ai/insights", authed(s.handleInsights))
	mux.Handle("POST /api/ai/chat", authed(s.handleChat))
	mux.Handle("POST /api/ai/recommendations", authed(s.handleRecommendations))
	mux.Handle("POST /api/ai/digest", authed(s.handleDigest))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, http.StatusNotFound, "Resource not found.")
	})

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.Middleware(logger, trace.GetRequestID)(handler)
	handler = detector.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	metric := func(name string, v int64) {
		fmt.Fprintf(&b, "fintrack_%s %d\n", name, v)
	}

	tm := s.tracer.GetMetrics()
	metric("http_requests_total", tm.TotalRequests)
	metric("http_client_errors_total", tm.ClientErrors)
	metric("http_server_errors_total", tm.ServerErrors)
	metric("http_response_time_avg_microseconds", tm.AverageResponseTime)

	rm := s.limiter.GetMetrics()
	metric("rate_limit_rejected_total", rm.Rejected)
	metric("rate_limit_clients", rm.ClientCount)

	dm := s.detector.GetMetrics()
	metric("security_suspicious_requests_total", dm.SuspiciousRequests)
	metric("security_blocked_requests_total", dm.BlockedRequests)

	if s.recapStats != nil {
		cs := s.recapStats()
		metric("recap_cache_entries", int64(cs.Size))
		metric("recap_cache_hits_total", cs.Hits)
		metric("recap_cache_misses_total", cs.Misses)
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(b.String()))
}

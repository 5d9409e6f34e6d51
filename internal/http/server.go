package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"workday/internal/auth"
	"workday/internal/cache"
	"workday/internal/log"
	"workday/internal/workdata"
)

// Options configure a Server.
type Options struct {
	Addr               string
	CORSAllowedOrigins []string
	// RateLimit is the number of requests a client may make per minute.
	// Zero disables limiting.
	RateLimit int
	// LoadTimeout bounds how long a request waits for data to load.
	LoadTimeout time.Duration
	Now         func() time.Time
}

type Server struct {
	http.Server
	registry *workdata.Registry
	auth     *auth.Authenticator
	logger   *log.Logger
	httpLog  *log.StructuredLogger
	limiter  *rateLimiter
	metrics  securityMetrics
	opts     Options

	shutdownOnce sync.Once
}

func NewServer(opts Options, registry *workdata.Registry, authn *auth.Authenticator, logger *log.Logger) *Server {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		registry: registry,
		auth:     authn,
		logger:   logger.WithComponent(log.ComponentHTTP),
		httpLog:  log.NewStructuredLogger(logger),
		opts:     opts,
	}
	if opts.RateLimit > 0 {
		s.limiter = newRateLimiter(opts.RateLimit)
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(requestID))
	r.Use(s.logRequests)
	r.Use(s.securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.rateLimit)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/profile", s.handleGetProfile)
		r.Post("/profile/setup", s.handleSetupProfile)
		r.Patch("/profile", s.handleUpdateProfile)
		r.Delete("/profile/error", s.handleClearError)
		r.Post("/signout", s.handleSignOut)

		r.Get("/months/{year}/{month}", s.handleMonthSessions)

		r.Put("/sessions/{date}", s.handleSaveDay)
		r.Post("/sessions/{date}/paid", s.handleMarkPaid)
		r.Post("/sessions/{date}/shift-input", s.handleShiftInput)

		r.Get("/summary/monthly", s.handleMonthlySummary)
		r.Get("/summary/annual/{year}", s.handleAnnualSummary)
		r.Get("/summary/{year}/{month}", s.handleMonthSummary)
		r.Get("/payments/pending", s.handlePendingPayments)

		r.Post("/reports", s.handleReport)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
	return r
}

// Caches returns the server caches that need periodic expiry.
func (s *Server) Caches() []cache.Cleaner {
	if s.limiter == nil {
		return nil
	}
	return []cache.Cleaner{s.limiter.clients}
}

// Shutdown stops the listener and signs every user out.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.shutdownOnce.Do(func() {
		s.registry.Close()
		s.logger.Info("HTTP server stopped",
			"rate_limit_hits", atomic.LoadInt64(&s.metrics.rateLimitHits),
			"suspicious_requests", atomic.LoadInt64(&s.metrics.suspiciousRequests))
	})
	return err
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestID reuses a client supplied X-Request-ID or creates a new one.
func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 64 {
		return id
	}
	return uuid.NewString()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.httpLog.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), extractClientIP(r))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.ErrorContext(r.Context(), "Handler panic",
					log.FieldError, fmt.Sprint(rec),
					log.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				InternalServerError("internal error").Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

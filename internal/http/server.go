package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"profitcalc/internal/auth"
	"profitcalc/internal/billing"
	"profitcalc/internal/log"
	"profitcalc/internal/middleware/ratelimit"
	"profitcalc/internal/middleware/security"
	"profitcalc/internal/middleware/trace"
	"profitcalc/internal/services"
)

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes requests to. Identity,
// Billing and Store may be nil; the matching routes then answer 503 or
// skip the check.
type Deps struct {
	Registry *services.Registry
	Verifier auth.Verifier
	Identity auth.Provider
	Billing  billing.Service
	Store    Pinger
	Logger   *log.Logger

	RateLimitPerMinute int
}

// Server is the calculator's JSON API.
type Server struct {
	http.Server

	registry *services.Registry
	verifier auth.Verifier
	identity auth.Provider
	billing  billing.Service
	store    Pinger
	logger   *log.Logger
	events   *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limiterCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		registry:         deps.Registry,
		verifier:         deps.Verifier,
		identity:         deps.Identity,
		billing:          deps.Billing,
		store:            deps.Store,
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(limiterCfg),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})
	api := func(h http.HandlerFunc) http.Handler { return limited(s.requireAuth(h)) }

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /auth/signin", limited(http.HandlerFunc(s.handleSignIn)))
	mux.Handle("POST /auth/signup", limited(http.HandlerFunc(s.handleSignUp)))
	mux.Handle("POST /auth/signout", api(s.handleSignOut))

	mux.Handle("GET /api/state", api(s.handleGetState))
	mux.Handle("PUT /api/state/{field}", api(s.handleSetField))
	mux.Handle("POST /api/reset", api(s.handleReset))
	mux.Handle("POST /api/rows", api(s.handleAddRow))
	mux.Handle("PUT /api/rows/{id}/{field}", api(s.handleSetRowField))
	mux.Handle("DELETE /api/rows/{id}", api(s.handleRemoveRow))
	mux.Handle("GET /api/report", api(s.handleReport))
	mux.Handle("GET /api/export.csv", api(s.handleExportCSV))
	mux.Handle("GET /api/export.xlsx", api(s.handleExportXLSX))
	mux.Handle("POST /api/billing/checkout", api(s.handleCheckout))
	mux.Handle("POST /api/billing/portal", api(s.handlePortal))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = detector.Middleware(logger)(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

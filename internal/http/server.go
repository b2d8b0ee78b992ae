package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
	"smartbudget/internal/middleware/ratelimit"
	"smartbudget/internal/middleware/security"
	"smartbudget/internal/middleware/trace"
	"smartbudget/internal/services"
)

// Dependencies are the services the API is built on. Exporter may be nil
// when report sync is not configured.
type Dependencies struct {
	Budgets  *services.BudgetService
	Accounts *services.AccountService
	Exporter services.BudgetExporter
	// Store is only used for the readiness probe.
	Store              ledger.Store
	Logger             *log.Logger
	RateLimitPerMinute int
	// BlockSuspicious rejects requests matching attack patterns instead of only logging them.
	BlockSuspicious bool
	// TrustedProxies are CIDRs, besides private networks, whose X-Forwarded-For is believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	budgets  *services.BudgetService
	accounts *services.AccountService
	exporter services.BudgetExporter
	store    ledger.Store

	logger           *log.Logger
	events           *log.StructuredLogger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// appMetrics are counters exposed on /metrics.
type appMetrics struct {
	uptime       time.Time
	budgetsSaved int64
	logins       int64
	signups      int64
	exports      int64
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	detector.Block = deps.BlockSuspicious
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		budgets:          deps.Budgets,
		accounts:         deps.Accounts,
		exporter:         deps.Exporter,
		store:            deps.Store,
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.withAuth(s.handleLogout))

	mux.HandleFunc("GET /api/budget", s.withAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.withAuth(s.handlePutBudget))
	mux.HandleFunc("GET /api/budget/export.csv", s.withAuth(s.handleExportCSV))
	mux.HandleFunc("GET /api/budget/report", s.withAuth(s.handleReport))
	mux.HandleFunc("POST /api/budget/sync", s.withAuth(s.handleSync))
	mux.HandleFunc("GET /api/profile", s.withAuth(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.withAuth(s.handlePutProfile))
	mux.HandleFunc("GET /api/setup", s.withAuth(s.handleGetSetup))
	mux.HandleFunc("POST /api/setup/preview", s.withAuth(s.handleSetupPreview))
	mux.HandleFunc("POST /api/setup", s.withAuth(s.handleSetupSave))

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, skipRateLimit, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	// Outermost first: logger, trace, headers, detector, rate limit.
	var handler http.Handler = mux
	handler = limited(handler)
	handler = detector.Middleware(handler)
	handler = s.headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// skipRateLimit exempts reads and probes; only writes and logins count.
func skipRateLimit(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

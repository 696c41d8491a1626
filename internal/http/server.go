// Package http serves the dashboard as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/cors"

	"finsight/internal/advisor"
	"finsight/internal/cache"
	"finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/middleware/security"
	"finsight/internal/middleware/trace"
	"finsight/internal/ports"
	"finsight/internal/session"
	"finsight/internal/sheets"
)

const (
	maxBodyBytes  = 1 << 20
	readyTimeout  = 5 * time.Second
	calendarTTL   = 24 * time.Hour
	calendarLimit = 240
)

// Options wires the server to its collaborators. Sessions is required.
type Options struct {
	Addr        string
	Sessions    *session.Manager
	Users       ports.UserDirectory
	Exporter    sheets.Exporter
	Advisor     *advisor.Advisor
	Health      func(ctx context.Context) error
	CORSOrigins []string
	RateLimit   ratelimit.Config
	WeekStart   time.Weekday
	Logger      *log.Logger
	Now         func() time.Time
}

type appMetrics struct {
	started      time.Time
	transactions atomic.Int64
	deferred     atomic.Int64
	exports      atomic.Int64
	questions    atomic.Int64
}

// Server is an http.Server with the dashboard routes and middleware
// installed. Call Shutdown to stop it and its background goroutines.
type Server struct {
	http.Server

	opts     Options
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	calendar *cache.LRUCache[calendarResponse]
	metrics  *appMetrics

	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Advisor == nil {
		opts.Advisor = advisor.New(advisor.NewCurrency(""))
	}
	rl := opts.RateLimit
	if rl.Logger == nil {
		rl.Logger = opts.Logger
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(rl),
		detector: security.NewDetector(opts.Logger),
		calendar: cache.NewLRUCache[calendarResponse](calendarLimit, calendarTTL),
		metrics:  &appMetrics{started: opts.Now()},
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	}).Handler(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("GET /api/check-email/{email}", s.handleCheckEmail)

	mux.HandleFunc("POST /api/sessions/{username}/load", s.handleLoad)
	mux.HandleFunc("DELETE /api/sessions/{username}", s.handleDropSession)
	mux.HandleFunc("GET /api/dashboard/{username}", s.handleDashboard)
	mux.HandleFunc("GET /api/transactions/{username}", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions/{username}", s.handleAddTransaction)
	mux.HandleFunc("GET /api/insights/{username}", s.handleInsights)
	mux.HandleFunc("POST /api/analytics/{username}/refresh", s.handleReanalyze)
	mux.HandleFunc("POST /api/advisor/{username}", s.handleAsk)
	mux.HandleFunc("POST /api/export/{username}", s.handleExport)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter. Only the first call has an effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Caches exposes the server's caches, sessions included, so a janitor can
// sweep them.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.calendar, s.opts.Sessions.Cache()}
}

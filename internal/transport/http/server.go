// Package httptransport implements the admin HTTP API over the call tracker.
package httptransport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/model"
	"github.com/iliamunaev/inflight/internal/tracker"
)

type callTracker interface {
	State() tracker.State
	ExcludedPaths() []string
	AddExcludedPath(url string)
	RemoveExcludedPath(url string)
	Subscribers() int
}

type slotPool interface {
	Size() int
	InUse() int
}

type batchFetcher interface {
	FetchAll(ctx context.Context, urls []string) ([]model.CallResult, error)
}

// Server serves the admin API.
type Server struct {
	echo           *echo.Echo
	tracker        callTracker
	fetcher        batchFetcher
	requestTimeout time.Duration
	gatherer       prometheus.Gatherer
	pool           slotPool
	log            *logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.log = l.Named("http") }
}

// WithFetcher enables POST /api/v1/fetch. Each batch runs under timeout; a
// non-positive timeout falls back to 10s.
func WithFetcher(f batchFetcher, timeout time.Duration) Option {
	return func(s *Server) {
		s.fetcher = f
		s.requestTimeout = timeout
	}
}

// WithMetrics enables GET /metrics backed by g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithPool reports p's slot usage in GET /api/v1/state.
func WithPool(p slotPool) Option {
	return func(s *Server) { s.pool = p }
}

// New returns a Server over tr. It panics if tr is nil.
func New(tr callTracker, opts ...Option) *Server {
	if tr == nil {
		panic("httptransport.New: nil tracker")
	}
	s := &Server{tracker: tr, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.WriteTimeout = s.requestTimeout + 5*time.Second
	e.Server.IdleTimeout = 60 * time.Second

	// Recover sits innermost so a panic becomes a 500 the request
	// logger can still see.
	e.Use(middleware.RequestID())
	e.Use(requestLogger(s.log))
	e.Use(middleware.Recover())

	s.echo = e
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/state", s.handleState)
	v1.GET("/exclusions", s.handleListExclusions)
	v1.POST("/exclusions", s.handleAddExclusion)
	v1.DELETE("/exclusions", s.handleRemoveExclusion)
	if s.fetcher != nil {
		v1.POST("/fetch", s.handleFetch)
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr and blocks until the server stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

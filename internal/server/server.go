// Package server provides the evtrends HTTP dashboard and API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/store"
)

// Forecaster is the dashboard behaviour the server needs.
// Defined here (consumer-side) rather than importing the concrete service.
type Forecaster interface {
	Run(ctx context.Context, req dashboard.Request) (*dashboard.Result, error)
	Counties() []string
	Range() (time.Time, time.Time)
}

// RunLister lists recorded forecast runs.
type RunLister interface {
	ListRuns(ctx context.Context, county string, limit int) ([]store.Run, error)
}

// Options configures optional server behaviour.
type Options struct {
	Runs           RunLister // nil disables /api/v1/runs
	Location       *time.Location
	RateRPS        float64
	RateBurst      int
	TrustedProxies []netip.Prefix // peers allowed to set X-Forwarded-For
}

// Server is the evtrends HTTP server.
type Server struct {
	httpServer *http.Server
	forecaster Forecaster
	runs       RunLister
	logger     *zap.Logger
	mux        *http.ServeMux
	loc        *time.Location
	now        func() time.Time
}

// New creates a Server with middleware and routes.
func New(addr string, forecaster Forecaster, logger *zap.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		forecaster: forecaster,
		runs:       opts.Runs,
		logger:     logger,
		mux:        mux,
		loc:        loc,
		now:        time.Now,
	}
	s.registerRoutes()

	skip := []string{"/healthz", "/metrics"}
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, muxRoute(mux), skip),
		SecurityHeadersMiddleware,
		RateLimitMiddleware(opts.RateRPS, opts.RateBurst, opts.TrustedProxies, skip),
	)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/v1/counties", s.handleCounties)
	s.mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	s.mux.HandleFunc("GET /api/v1/forecast.csv", s.handleForecastCSV)
	s.mux.HandleFunc("GET /api/v1/forecast.xlsx", s.handleForecastXLSX)
	s.mux.HandleFunc("GET /api/v1/charts/trend.png", s.handleTrendChart)
	s.mux.HandleFunc("GET /api/v1/charts/prediction.png", s.handlePredictionChart)
	s.mux.HandleFunc("GET /api/v1/runs", s.handleRuns)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package dashboard holds the loaded model and dataset and turns forecast
// requests into reports.
package dashboard

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/forecast"
	"github.com/evtrends/evtrends/internal/report"
	"github.com/evtrends/evtrends/internal/store"
)

var (
	forecastRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evtrends_forecast_runs_total",
			Help: "Forecast requests by outcome.",
		},
		[]string{"result"},
	)
	forecastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evtrends_forecast_duration_seconds",
			Help:    "Time spent computing uncached forecasts.",
			Buckets: prometheus.DefBuckets,
		},
	)
	forecastHorizon = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evtrends_forecast_horizon_months",
			Help:    "Requested forecast horizon in months.",
			Buckets: []float64{1, 3, 6, 12, 24, 36, 48, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(forecastRunsTotal)
	prometheus.MustRegister(forecastDuration)
	prometheus.MustRegister(forecastHorizon)
}

// RunRecorder persists completed runs. Defined consumer-side so the
// service does not depend on a concrete store.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *store.Run) error
}

// Options configures a Service.
type Options struct {
	CacheSize int
	Recorder  RunRecorder // optional
	Logger    *zap.Logger
}

// Result is a rendered forecast.
type Result struct {
	Request Request        `json:"request"`
	Report  *report.Report `json:"report"`
	RunID   string         `json:"run_id,omitempty"`
	Cached  bool           `json:"cached"`
}

// Service is the application context: model and data are loaded once and
// shared by every request.
type Service struct {
	data      *dataset.Dataset
	predictor forecast.Predictor
	cache     *lru.Cache[Request, *Result]
	recorder  RunRecorder
	logger    *zap.Logger
}

// New creates a Service over an already loaded dataset and model.
func New(data *dataset.Dataset, predictor forecast.Predictor, opts Options) (*Service, error) {
	size := opts.CacheSize
	if size < 1 {
		size = 1
	}
	cache, err := lru.New[Request, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("create forecast cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		data:      data,
		predictor: predictor,
		cache:     cache,
		recorder:  opts.Recorder,
		logger:    logger,
	}, nil
}

// Counties lists the counties available for forecasting.
func (s *Service) Counties() []string { return s.data.Counties() }

// Range returns the dataset's date span.
func (s *Service) Range() (time.Time, time.Time) { return s.data.Range() }

// Run validates req, selects the county's history and rolls the forecast
// forward. Identical requests are served from the cache.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		forecastRunsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	key := cacheKey(req)

	if cached, ok := s.cache.Get(key); ok {
		forecastRunsTotal.WithLabelValues("cached").Inc()
		out := *cached
		out.Cached = true
		return &out, nil
	}

	start := time.Now()
	res, err := s.compute(ctx, req)
	if err != nil {
		forecastRunsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("forecast failed",
			zap.String("county", req.County),
			zap.Int("horizon", req.Horizon()),
			zap.Error(err),
		)
		return nil, err
	}
	forecastDuration.Observe(time.Since(start).Seconds())
	forecastHorizon.Observe(float64(req.Horizon()))
	forecastRunsTotal.WithLabelValues("ok").Inc()

	s.record(ctx, res)
	s.cache.Add(key, res)

	s.logger.Info("forecast computed",
		zap.String("county", req.County),
		zap.String("mode", string(req.Mode)),
		zap.Int("horizon", req.Horizon()),
		zap.Float64("projected", res.Report.Summary.Projected),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (s *Service) compute(ctx context.Context, req Request) (*Result, error) {
	series, err := s.data.Select(req.County, req.From, req.To)
	if err != nil {
		return nil, err
	}

	fc, err := forecast.Forecast(ctx, forecast.Input{
		History:    series.Tail(forecast.WindowSize),
		MonthIndex: series.MaxMonthIndex(),
		StartDate:  series.LastDate(),
		CountyCode: series.CountyCode(),
		Horizon:    req.Horizon(),
	}, s.predictor)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", req.County, err)
	}

	return &Result{
		Request: req,
		Report:  report.Build(req.County, series, fc.Points),
	}, nil
}

func (s *Service) record(ctx context.Context, res *Result) {
	if s.recorder == nil {
		return
	}
	sum := res.Report.Summary
	run := &store.Run{
		County:    res.Request.County,
		Mode:      string(res.Request.Mode),
		Horizon:   res.Request.Horizon(),
		From:      res.Request.From,
		To:        res.Request.To,
		Current:   sum.Current,
		Projected: sum.Projected,
		GrowthPct: sum.GrowthPct,
	}
	if err := s.recorder.SaveRun(ctx, run); err != nil {
		s.logger.Error("failed to record forecast run", zap.String("county", run.County), zap.Error(err))
		return
	}
	res.RunID = run.ID
}

// cacheKey normalizes time zones so equal instants share an entry.
func cacheKey(req Request) Request {
	if !req.From.IsZero() {
		req.From = req.From.UTC()
	}
	if !req.To.IsZero() {
		req.To = req.To.UTC()
	}
	return req
}

// Package app wires the tracker, the tracked client and their observers.
package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/metric"

	"github.com/iliamunaev/inflight/internal/config"
	"github.com/iliamunaev/inflight/internal/fetch"
	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/metrics"
	"github.com/iliamunaev/inflight/internal/pool"
	"github.com/iliamunaev/inflight/internal/tracker"
	httptransport "github.com/iliamunaev/inflight/internal/transport/http"
	"github.com/iliamunaev/inflight/internal/transport/httpclient"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Tracker  *tracker.Tracker
	Client   *http.Client
	Fetcher  *fetch.Fetcher
	Pool     *pool.Pool
	Registry *prometheus.Registry
	Metrics  *metrics.Prometheus
}

type options struct {
	meterProvider metric.MeterProvider
}

// Option configures New.
type Option func(*options)

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// New builds an App from cfg. A nil logger discards output.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	trOpts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithExcludedPaths(cfg.Tracker.ExcludedPaths...),
	}
	if cfg.Tracker.ExplicitTerminals {
		trOpts = append(trOpts, tracker.WithExplicitTerminals())
	}
	tr := tracker.New(trOpts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewPrometheus(reg)
	tr.Subscribe(prom)

	otelObs, err := metrics.NewOTel(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("init otel metrics: %w", err)
	}
	tr.Subscribe(otelObs)

	client := httpclient.NewClient(tr, nil,
		httpclient.WithRecorder(prom),
		httpclient.WithLogger(logger),
	)
	p := pool.New(cfg.Fetch.Concurrency)
	f := fetch.New(client, p,
		fetch.WithRequestTimeout(cfg.Fetch.RequestTimeout),
		fetch.WithLogger(logger),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Tracker:  tr,
		Client:   client,
		Fetcher:  f,
		Pool:     p,
		Registry: reg,
		Metrics:  prom,
	}, nil
}

// Server returns the admin API over the app's tracker and fetcher.
func (a *App) Server() *httptransport.Server {
	opts := []httptransport.Option{
		httptransport.WithLogger(a.Logger),
		httptransport.WithFetcher(a.Fetcher, a.Config.Fetch.RequestTimeout),
		httptransport.WithPool(a.Pool),
	}
	if a.Config.Server.Metrics {
		opts = append(opts, httptransport.WithMetrics(a.Registry))
	}
	return httptransport.New(a.Tracker, opts...)
}

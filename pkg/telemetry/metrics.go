package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Reload results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics provides Prometheus metrics for configuration loading and watching.
type Metrics struct {
	config MetricsConfig

	// Load metrics
	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec

	// Reload metrics
	reloads    *prometheus.CounterVec
	lastReload prometheus.Gauge

	// Validation metrics
	issues      *prometheus.CounterVec
	globMatches *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a no-op collector.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of configuration loads",
			},
			[]string{"format", "result"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Duration of configuration load and validation in seconds",
				Buckets:   buckets,
			},
			[]string{"format"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Total number of configuration reloads triggered by file changes",
			},
			[]string{"result"},
		),
		lastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_successful_reload_timestamp_seconds",
				Help:      "Unix time of the last successful reload",
			},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Total number of validation issues by class and severity",
			},
			[]string{"class", "severity"},
		),
		globMatches: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "content_glob_matches",
				Help:      "Number of files matched by each content glob at the last scan",
			},
			[]string{"pattern"},
		),
	}

	registry.MustRegister(
		m.loads,
		m.loadDuration,
		m.reloads,
		m.lastReload,
		m.issues,
		m.globMatches,
	)

	return m, nil
}

// Enabled reports whether the collector records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordLoad records a load of a document in format.
func (m *Metrics) RecordLoad(format, result string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.loads.WithLabelValues(format, result).Inc()
	m.loadDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordReload records the outcome of a watcher-triggered reload.
func (m *Metrics) RecordReload(result string) {
	if !m.Enabled() {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.lastReload.SetToCurrentTime()
	}
}

// RecordIssue counts one validation issue.
func (m *Metrics) RecordIssue(class, severity string) {
	if !m.Enabled() {
		return
	}
	m.issues.WithLabelValues(class, severity).Inc()
}

// SetGlobMatches replaces the per-pattern match counts.
func (m *Metrics) SetGlobMatches(matches map[string]int) {
	if !m.Enabled() {
		return
	}
	m.globMatches.Reset()
	for pattern, n := range matches {
		m.globMatches.WithLabelValues(pattern).Set(float64(n))
	}
}

// Registry returns the private registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer binds the configured address and serves metrics until
// ctx is cancelled. The returned address is the one actually bound.
func (m *Metrics) StartMetricsServer(ctx context.Context, logger zerolog.Logger) (string, error) {
	if !m.Enabled() {
		return "", nil
	}

	ln, err := net.Listen("tcp", m.config.ListenAddress)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", m.config.ListenAddress, err)
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		timeout := m.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("address", ln.Addr().String()).
		Str("path", path).
		Msg("Metrics server started")

	return ln.Addr().String(), nil
}

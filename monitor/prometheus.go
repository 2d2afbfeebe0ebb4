package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/glimte/intercept-go/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ dispatch.MetricsCollector = (*Metrics)(nil)

// Metrics exports dispatch metrics to Prometheus
type Metrics struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	registry   *prometheus.Registry
}

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intercept_dispatches_total",
				Help: "Total number of intercepted calls by outcome",
			},
			[]string{"domain", "target_kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intercept_dispatch_duration_seconds",
				Help:    "Duration of intercepted calls including all hooks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain", "target_kind"},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.dispatches, m.duration)
	return m
}

// IncrementDispatchCount implements dispatch.MetricsCollector
func (m *Metrics) IncrementDispatchCount(domain, targetKind, outcome string) {
	m.dispatches.WithLabelValues(domain, targetKind, outcome).Inc()
}

// RecordDispatchTime implements dispatch.MetricsCollector
func (m *Metrics) RecordDispatchTime(domain, targetKind string, duration time.Duration) {
	m.duration.WithLabelValues(domain, targetKind).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics server", "error", err)
		}
	}()

	logger.Info("starting metrics server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

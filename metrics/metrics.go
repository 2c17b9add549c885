// Package metrics exports engine measurements to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "wizard"
	subsystem = "engine"
)

// Prometheus implements wizard.MetricsRecorder. Each operation name becomes
// the "operation" label.
type Prometheus struct {
	registry *prometheus.Registry

	duration  *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	successes *prometheus.CounterVec
}

// NewPrometheus registers the engine collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Time spent in collaborator calls by operation",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_errors_total",
				Help:      "Total number of failed operations",
			},
			[]string{"operation"},
		),
		successes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_success_total",
				Help:      "Total number of successful operations",
			},
			[]string{"operation"},
		),
	}
}

func (p *Prometheus) RecordDuration(name string, d time.Duration) {
	p.duration.WithLabelValues(name).Observe(d.Seconds())
}

func (p *Prometheus) RecordError(name string) {
	p.errors.WithLabelValues(name).Inc()
}

func (p *Prometheus) RecordSuccess(name string) {
	p.successes.WithLabelValues(name).Inc()
}

// Registry exposes the underlying registry, e.g. for tests or extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. Listen errors other than
// a normal shutdown are passed to onError.
func (p *Prometheus) Serve(addr string, onError func(error)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && onError != nil {
			onError(err)
		}
	}()

	return server
}

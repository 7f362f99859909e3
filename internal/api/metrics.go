package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/ads-pilot/internal/pipeline"
)

// Metrics instruments pipeline runs for the /metrics endpoint
type Metrics struct {
	registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	decisionsTotal *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewMetrics registers the pipeline collectors on the given registry
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adspilot_pipeline_runs_total",
			Help: "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adspilot_decisions_total",
			Help: "Decisions executed by type.",
		}, []string{"type"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "adspilot_pipeline_run_duration_seconds",
			Help:    "Wall-clock duration of pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one completed run
func (m *Metrics) ObserveRun(result *pipeline.RunResult, elapsed time.Duration) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(elapsed.Seconds())

	for _, d := range result.Decisions {
		m.decisionsTotal.WithLabelValues(string(d.Type)).Inc()
	}
}

// Package telemetry exposes simulation counters to Prometheus.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/bridgesim/internal/dynamo"
)

const (
	OutcomeOK       = "ok"
	OutcomeUnstable = "unstable"
	OutcomeError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	Steps         *prometheus.CounterVec
	Instabilities *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	SweepPoints   *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgesim_runs_total",
			Help: "Simulation runs by model and outcome.",
		}, []string{"model", "outcome"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgesim_steps_total",
			Help: "Integration steps taken.",
		}, []string{"model"}),
		Instabilities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgesim_instabilities_total",
			Help: "Runs stopped by the divergence bound.",
		}, []string{"model"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridgesim_run_duration_seconds",
			Help:    "Wall time of a simulation run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"model"}),
		SweepPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgesim_sweep_points_total",
			Help: "Frequency sweep points evaluated.",
		}, []string{"model"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgesim_cache_lookups_total",
			Help: "Sweep cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.Runs, m.Steps, m.Instabilities, m.RunDuration, m.SweepPoints, m.CacheLookups)
	return m
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(model string, series *dynamo.TimeSeries, elapsed time.Duration, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case series != nil && series.Unstable():
		outcome = OutcomeUnstable
		m.Instabilities.WithLabelValues(model).Inc()
	}
	m.Runs.WithLabelValues(model, outcome).Inc()
	if series != nil {
		m.Steps.WithLabelValues(model).Add(float64(series.StepsTaken))
	}
	m.RunDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSweep(model string, points int) {
	m.SweepPoints.WithLabelValues(model).Add(float64(points))
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

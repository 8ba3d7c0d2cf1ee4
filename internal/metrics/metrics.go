// Package metrics exposes job and sidecar counters in Prometheus format.
//
// Exported series:
//
//	sldl_jobs_started_total                  jobs whose sidecar spawned
//	sldl_jobs_spawn_failures_total           sidecar spawn errors
//	sldl_jobs_finished_total{status}         jobs reaching a terminal status
//	sldl_jobs_active                         jobs with a live sidecar
//	sldl_job_duration_seconds{status}        start to terminal status
//	sldl_output_lines_total{stream}          raw stdout/stderr lines
//	sldl_classified_events_total{kind}       lines the classifier recognised
//	sldl_emit_errors_total                   notifications that failed to publish
//
// Each Collector owns its registry so several can coexist in one process.
// A nil *Collector records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sldl"

// Collector Prometheus metric collector
type Collector struct {
	registry *prometheus.Registry

	jobsStarted   prometheus.Counter
	spawnFailures prometheus.Counter
	jobsFinished  *prometheus.CounterVec
	jobsActive    prometheus.Gauge
	jobDuration   *prometheus.HistogramVec
	outputLines   *prometheus.CounterVec
	events        *prometheus.CounterVec
	emitErrors    prometheus.Counter
}

// NewCollector creates a collector with its own registry. Process and Go
// runtime collectors are included when withRuntime is true.
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of jobs whose sidecar was spawned",
		}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_spawn_failures_total",
			Help:      "Total number of sidecar spawn failures",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of jobs reaching a terminal status",
		}, []string{"status"}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Current number of jobs with a running sidecar",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from job start to terminal status",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"status"}),
		outputLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_lines_total",
			Help:      "Raw sidecar output lines by stream",
		}, []string{"stream"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classified_events_total",
			Help:      "Output lines recognised by the classifier, by event kind",
		}, []string{"kind"}),
		emitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emit_errors_total",
			Help:      "Notifications that failed to publish",
		}),
	}

	c.registry.MustRegister(
		c.jobsStarted,
		c.spawnFailures,
		c.jobsFinished,
		c.jobsActive,
		c.jobDuration,
		c.outputLines,
		c.events,
		c.emitErrors,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return c
}

// RecordStarted records a spawned sidecar
func (c *Collector) RecordStarted() {
	if c == nil {
		return
	}
	c.jobsStarted.Inc()
	c.jobsActive.Inc()
}

// RecordSpawnFailure records a sidecar that could not start
func (c *Collector) RecordSpawnFailure() {
	if c == nil {
		return
	}
	c.spawnFailures.Inc()
}

// RecordExited records a sidecar exit, decrementing the active gauge
func (c *Collector) RecordExited() {
	if c == nil {
		return
	}
	c.jobsActive.Dec()
}

// RecordFinished records a job reaching a terminal status
func (c *Collector) RecordFinished(status string, startedAt time.Time) {
	if c == nil {
		return
	}
	c.jobsFinished.WithLabelValues(status).Inc()
	c.jobDuration.WithLabelValues(status).Observe(time.Since(startedAt).Seconds())
}

// RecordLine records one raw output line
func (c *Collector) RecordLine(stream string) {
	if c == nil {
		return
	}
	c.outputLines.WithLabelValues(stream).Inc()
}

// RecordEvent records a classified line
func (c *Collector) RecordEvent(kind string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(kind).Inc()
}

// RecordEmitError records a failed notification publish
func (c *Collector) RecordEmitError() {
	if c == nil {
		return
	}
	c.emitErrors.Inc()
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

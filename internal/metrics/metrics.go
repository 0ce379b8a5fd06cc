// Package metrics exposes Prometheus instrumentation for scan runs and
// platform calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "visibility"
)

// Metrics holds the scan metrics. A nil *Metrics is valid and records
// nothing, so callers never need to guard.
type Metrics struct {
	RunsStarted      *prometheus.CounterVec
	RunsFinished     *prometheus.CounterVec
	RunsActive       prometheus.Gauge
	StageDuration    *prometheus.HistogramVec
	PlatformCalls    *prometheus.CounterVec
	PlatformLatency  *prometheus.HistogramVec
	DispatchRejected *prometheus.CounterVec
	RunsReaped       prometheus.Counter
}

// New creates and registers the metrics with reg, or with the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "started_total",
			Help:      "Runs picked up for execution",
		}, []string{"trigger"}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "finished_total",
			Help:      "Runs that reached a terminal status",
		}, []string{"trigger", "status"}),
		RunsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "active",
			Help:      "Runs currently executing in this process",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 13), // 100ms to ~7min
		}, []string{"stage", "outcome"}),
		PlatformCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "platform",
			Name:      "calls_total",
			Help:      "Platform queries by outcome",
		}, []string{"platform", "outcome"}),
		PlatformLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "platform",
			Name:      "latency_seconds",
			Help:      "Latency of guarded platform queries",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
		}, []string{"platform"}),
		DispatchRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "dispatch",
			Name:      "rejected_total",
			Help:      "Trigger requests rejected by policy",
		}, []string{"reason"}),
		RunsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "reaped_total",
			Help:      "Runs failed by the stale-run reaper",
		}),
	}
}

// RunStarted records a run beginning execution.
func (m *Metrics) RunStarted(trigger string) {
	if m == nil {
		return
	}
	m.RunsStarted.WithLabelValues(trigger).Inc()
	m.RunsActive.Inc()
}

// RunFinished records a run leaving execution with its terminal status.
func (m *Metrics) RunFinished(trigger, status string) {
	if m == nil {
		return
	}
	m.RunsFinished.WithLabelValues(trigger, status).Inc()
	m.RunsActive.Dec()
}

// ObserveStage records one stage's duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

// ObservePlatformCall records one resolved platform query.
func (m *Metrics) ObservePlatformCall(platform string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.PlatformCalls.WithLabelValues(platform, outcome(err)).Inc()
	m.PlatformLatency.WithLabelValues(platform).Observe(d.Seconds())
}

// Rejected records a policy rejection at the dispatch gateway.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.DispatchRejected.WithLabelValues(reason).Inc()
}

// Reaped records runs failed by the reaper.
func (m *Metrics) Reaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RunsReaped.Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

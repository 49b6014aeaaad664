// Package metrics holds the Prometheus instruments of a single run. Each run
// gets its own registry, written to the log directory when the run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vecmatrix"

// Pipeline stages reported by ConfigsByStage.
const (
	StageGenerated    = "generated"
	StageAvailable    = "available"
	StageDeduplicated = "deduplicated"
	StageEmulated     = "emulated"
	StageSandbox      = "sandbox"
)

// Job outcomes.
const (
	OutcomePassed      = "passed"
	OutcomeBuildFailed = "build_failed"
	OutcomeTestFailed  = "test_failed"
)

// Registry holds all run metrics.
type Registry struct {
	reg *prometheus.Registry

	ConfigsByStage *prometheus.GaugeVec
	Workers        prometheus.Gauge
	Jobs           *prometheus.CounterVec
	TestFailures   *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	RunDuration    prometheus.Gauge
	LogFindings    *prometheus.GaugeVec
}

// New creates a registry with every instrument registered.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	f := promauto.With(r.reg)

	r.ConfigsByStage = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "configs",
		Help:      "Number of configurations after each pipeline stage",
	}, []string{"stage"})

	r.Workers = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workers",
		Help:      "Concurrent jobs allowed by the resource budget",
	})

	r.Jobs = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Finished jobs by family, toolchain and outcome",
	}, []string{"family", "toolchain", "outcome"})

	r.TestFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "test_failures_total",
		Help:      "Test binaries that exited non-zero or failed to launch",
	}, []string{"binary"})

	r.JobDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Wall time of a clean, build, test and cleanup cycle",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
	}, []string{"family", "emulated"})

	r.RunDuration = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time from first submission to join",
	})

	r.LogFindings = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "log_findings",
		Help:      "Aggregated log lines matching each pattern",
	}, []string{"pattern"})

	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteFile writes all metrics in the text exposition format.
func (r *Registry) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

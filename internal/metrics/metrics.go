// Package metrics exposes Prometheus collectors for solver calls and
// optimization runs on a dedicated registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
)

// Run outcomes.
const (
	OutcomeComplete = "complete"
	OutcomeFailed   = "failed"
)

// Recorder holds the collectors of one process.
type Recorder struct {
	Registry      *prometheus.Registry
	Solves        *prometheus.CounterVec
	SolveDuration prometheus.Histogram
	Runs          *prometheus.CounterVec
	ServedRatio   *prometheus.GaugeVec
}

// New creates a Recorder with all collectors registered. withRuntime adds
// the Go and process collectors.
func New(withRuntime bool) *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		Solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "locopt_solves_total", Help: "Solver invocations by result status."},
			[]string{"status"},
		),
		SolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "locopt_solve_duration_seconds",
				Help:    "Solver wall time in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "locopt_runs_total", Help: "Constraint-set evaluations by outcome."},
			[]string{"outcome"},
		),
		ServedRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "locopt_served_ratio", Help: "Served share of total demand weight of the last run."},
			[]string{"constraint_set"},
		),
	}
	r.Registry.MustRegister(r.Solves, r.SolveDuration, r.Runs, r.ServedRatio)
	if withRuntime {
		r.Registry.MustRegister(collectors.NewGoCollector())
		r.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return r
}

// ObserveSolve records one solver call.
func (r *Recorder) ObserveSolve(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.Solves.WithLabelValues(status).Inc()
	r.SolveDuration.Observe(d.Seconds())
}

// ObserveRun records the outcome of a constraint-set evaluation. The
// served ratio gauge is only set for completed runs.
func (r *Recorder) ObserveRun(constraintSet, outcome string, servedRatio float64) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(outcome).Inc()
	if outcome == OutcomeComplete {
		r.ServedRatio.WithLabelValues(constraintSet).Set(servedRatio)
	}
}

// WriteFile writes the registry in text exposition format, for the node
// exporter textfile collector.
func (r *Recorder) WriteFile(path string) error {
	return eris.Wrapf(prometheus.WriteToTextfile(path, r.Registry), "metrics: write %s", path)
}

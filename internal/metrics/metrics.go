// Package metrics exposes Prometheus instruments for employee imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

// Metrics holds all Prometheus metrics for the import pipeline.
type Metrics struct {
	Rows        *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Attempts    *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "employee_import_rows_total",
			Help: "Data rows processed, by outcome",
		}, []string{"outcome"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "employee_import_runs_total",
			Help: "Import runs, by result",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "employee_import_run_duration_seconds",
			Help:    "Duration of import runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "employee_import_job_attempts_total",
			Help: "Import job attempts, by result",
		}, []string{"result"}),
	}
}

// ObserveRow counts one processed row.
func (m *Metrics) ObserveRow(status core.OutcomeStatus) {
	m.Rows.WithLabelValues(string(status)).Inc()
}

// ObserveRun counts a finished run and records its duration.
func (m *Metrics) ObserveRun(result string, d time.Duration) {
	m.Runs.WithLabelValues(result).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// ObserveAttempt counts one job attempt.
func (m *Metrics) ObserveAttempt(result string) {
	m.Attempts.WithLabelValues(result).Inc()
}

// Package metrics provides Prometheus instrumentation for the sweep
// runner.
//
// Metrics exposed at /metrics:
//   - coldatom_job_submit_seconds: Histogram of job submission duration
//   - coldatom_job_wait_seconds: Histogram of time from submission to result
//   - coldatom_jobs_total: Counter of jobs by final status
//   - coldatom_sweep_progress: Gauge of completed points over total points
//   - coldatom_expectation_value: Gauge of the latest value per series
//   - coldatom_errors_total: Counter of errors by component and reason
//
// All metrics carry the run label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sweep runner.
type Metrics struct {
	JobSubmitSeconds prometheus.Histogram
	JobWaitSeconds   prometheus.Histogram
	JobsTotal        *prometheus.CounterVec
	SweepProgress    prometheus.Gauge
	ExpectationValue *prometheus.GaugeVec
	ErrorsTotal      *prometheus.CounterVec
}

// New creates and registers all metrics for one run.
func New(run string) *Metrics {
	return &Metrics{
		JobSubmitSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "coldatom_job_submit_seconds",
			Help:        "Time spent submitting a job to the provider",
			ConstLabels: prometheus.Labels{"run": run},
			Buckets:     prometheus.DefBuckets,
		}),

		JobWaitSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "coldatom_job_wait_seconds",
			Help:        "Time from job submission to result retrieval",
			ConstLabels: prometheus.Labels{"run": run},
			// Queue waits on hardware backends run into minutes.
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),

		JobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "coldatom_jobs_total",
			Help:        "Total number of jobs by final status",
			ConstLabels: prometheus.Labels{"run": run},
		}, []string{"status"}),

		SweepProgress: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "coldatom_sweep_progress",
			Help:        "Fraction of sweep points completed",
			ConstLabels: prometheus.Labels{"run": run},
		}),

		ExpectationValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "coldatom_expectation_value",
			Help:        "Latest extracted expectation value per series",
			ConstLabels: prometheus.Labels{"run": run},
		}, []string{"series"}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "coldatom_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: prometheus.Labels{"run": run},
		}, []string{"component", "reason"}),
	}
}

// RecordSubmit records the time spent submitting a job.
func (m *Metrics) RecordSubmit(seconds float64) {
	m.JobSubmitSeconds.Observe(seconds)
}

// RecordWait records the time spent waiting for a job result.
func (m *Metrics) RecordWait(seconds float64) {
	m.JobWaitSeconds.Observe(seconds)
}

// RecordJob counts a job that reached a final status.
func (m *Metrics) RecordJob(status string) {
	m.JobsTotal.WithLabelValues(status).Inc()
}

// SetProgress sets the completed fraction of the sweep.
func (m *Metrics) SetProgress(completed, total int) {
	if total <= 0 {
		return
	}
	m.SweepProgress.Set(float64(completed) / float64(total))
}

// SetExpectation sets the latest expectation value for a series.
func (m *Metrics) SetExpectation(series string, value float64) {
	m.ExpectationValue.WithLabelValues(series).Set(value)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the batch service Prometheus metrics.
type Metrics struct {
	Runs         *prometheus.CounterVec
	Rows         *prometheus.CounterVec
	NullInputs   *prometheus.CounterVec
	InvalidRows  *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	Rejected     *prometheus.CounterVec
	FailedRuns   *prometheus.CounterVec
	RowsPerBatch prometheus.Histogram
}

// New creates the batch metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_batch_runs_total",
			Help: "Completed batch runs by function",
		}, []string{"function"}),
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_batch_rows_total",
			Help: "Rows processed by format",
		}, []string{"format"}),
		NullInputs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_batch_null_inputs_total",
			Help: "Absent input values by format",
		}, []string{"format"}),
		InvalidRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_batch_invalid_rows_total",
			Help: "Rows that failed to parse, by format and diagnostic category",
		}, []string{"format", "category"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "istr_batch_run_duration_seconds",
			Help:    "Wall time of batch runs by function",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"function"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_batch_rejected_total",
			Help: "Batch requests rejected before running, by reason",
		}, []string{"reason"}),
		FailedRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_batch_failed_runs_total",
			Help: "Batch runs that failed or were cancelled, by function",
		}, []string{"function"}),
		RowsPerBatch: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "istr_batch_rows_per_run",
			Help:    "Distribution of batch sizes",
			Buckets: prometheus.ExponentialBuckets(1, 8, 8),
		}),
	}
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(function, format string, elapsed time.Duration, rows, nulls int, invalid map[string]int) {
	m.Runs.WithLabelValues(function).Inc()
	m.Rows.WithLabelValues(format).Add(float64(rows))
	m.NullInputs.WithLabelValues(format).Add(float64(nulls))
	for category, n := range invalid {
		m.InvalidRows.WithLabelValues(format, category).Add(float64(n))
	}
	m.RunDuration.WithLabelValues(function).Observe(elapsed.Seconds())
	m.RowsPerBatch.Observe(float64(rows))
}

func (m *Metrics) IncrementRejected(reason string) {
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementFailed(function string) {
	m.FailedRuns.WithLabelValues(function).Inc()
}

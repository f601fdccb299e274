package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"istr/internal/ratelimit/models"
)

type Metrics struct {
	Checks        *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	StoreErrors   prometheus.Counter
	DegradedState prometheus.Gauge
}

// New registers the rate limit metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_ratelimit_checks_total",
			Help: "Rate limit checks performed, by key kind",
		}, []string{"kind"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "istr_ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter, by key kind",
		}, []string{"kind"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "istr_ratelimit_store_errors_total",
			Help: "Errors returned by the primary bucket store",
		}),
		DegradedState: f.NewGauge(prometheus.GaugeOpts{
			Name: "istr_ratelimit_degraded",
			Help: "1 while the limiter runs on its in-memory fallback",
		}),
	}
}

func (m *Metrics) ObserveCheck(kind models.KeyKind, allowed bool) {
	m.Checks.WithLabelValues(string(kind)).Inc()
	if !allowed {
		m.Rejected.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if degraded {
		m.DegradedState.Set(1)
		return
	}
	m.DegradedState.Set(0)
}

package dashboard

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts summary cache hits and misses. A nil *Metrics is a no-op.
type Metrics struct {
	lookups *prometheus.CounterVec
	build   prometheus.Histogram
}

// NewMetrics registers the dashboard cache collectors, reusing collectors
// that are already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackinvoice_dashboard_cache_lookups_total",
			Help: "Dashboard summary cache lookups by result.",
		}, []string{"result"}),
		build: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackinvoice_dashboard_build_duration_seconds",
			Help:    "Duration required to build the dashboard summary.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if err := reg.Register(m.lookups); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		m.lookups = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.build); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		m.build = already.ExistingCollector.(prometheus.Histogram)
	}
	return m, nil
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.lookups.WithLabelValues("hit").Inc()
		return
	}
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) observeBuild(seconds float64) {
	if m == nil {
		return
	}
	m.build.Observe(seconds)
}

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	hits            prometheus.Counter
	misses          prometheus.Counter
	bypass          prometheus.Counter
	refreshFailures prometheus.Counter
	storeErrors     prometheus.Counter
}

// NewMetrics registers the cache counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "offline_cache_hits_total",
			Help: "Requests answered from the offline cache",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "offline_cache_misses_total",
			Help: "Cacheable requests that had to wait for the network",
		}),
		bypass: factory.NewCounter(prometheus.CounterOpts{
			Name: "offline_cache_bypass_total",
			Help: "Non-cacheable requests passed straight to the network",
		}),
		refreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "offline_cache_revalidate_failures_total",
			Help: "Background revalidations that failed",
		}),
		storeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "offline_cache_store_errors_total",
			Help: "Cache store reads or writes that failed",
		}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) passThrough() {
	if m != nil {
		m.bypass.Inc()
	}
}

func (m *Metrics) refreshFailed() {
	if m != nil {
		m.refreshFailures.Inc()
	}
}

func (m *Metrics) storeFailed() {
	if m != nil {
		m.storeErrors.Inc()
	}
}

package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetricsRegistry records marketplace RPC activity.
type MarketMetricsRegistry struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetricsRegistry
)

// MarketMetrics returns the lazily-initialised market metrics registry.
func MarketMetrics() *MarketMetricsRegistry {
	marketMetricsOnce.Do(func() {
		marketRegistry = &MarketMetricsRegistry{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "namemarket",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total marketplace RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "namemarket",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for marketplace RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(marketRegistry.requests, marketRegistry.latency)
	})
	return marketRegistry
}

// Observe records one handled request.
func (m *MarketMetricsRegistry) Observe(method, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(took.Seconds())
}

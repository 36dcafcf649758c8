package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrichment Prometheus metrics.
var (
	EnrichmentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ebtlocator",
			Name:      "enrichment_requests_total",
			Help:      "Total number of place data provider lookups",
		},
		[]string{"provider", "status"}, // status: ok / not_found / failed
	)

	EnrichmentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ebtlocator",
			Name:      "enrichment_request_duration_seconds",
			Help:      "Place data provider lookup duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	EnrichmentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ebtlocator",
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache hits and misses",
		},
		[]string{"layer", "result"}, // layer: memory / kv; result: hit / miss
	)

	EnrichmentQuotaRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ebtlocator",
			Name:      "enrichment_quota_remaining",
			Help:      "Provider calls left in the current window (-1 if unlimited)",
		},
		[]string{"provider", "window"}, // window: daily / monthly
	)
)

var enrichMetricsRegistered bool

// RegisterEnrichmentMetrics registers Prometheus enrichment metrics. Must be called once from main.
func RegisterEnrichmentMetrics() {
	if enrichMetricsRegistered {
		return
	}
	prometheus.MustRegister(EnrichmentRequestsTotal)
	prometheus.MustRegister(EnrichmentRequestDuration)
	prometheus.MustRegister(EnrichmentCacheTotal)
	prometheus.MustRegister(EnrichmentQuotaRemaining)
	enrichMetricsRegistered = true
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ebtlocator",
			Name:      "searches_total",
			Help:      "Total number of store searches",
		},
		[]string{"category", "sort"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ebtlocator",
			Name:      "search_duration_seconds",
			Help:      "Store search duration in seconds, by step",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"step"}, // step: candidates / pipeline / enrich / total
	)

	PipelineRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ebtlocator",
			Name:      "pipeline_records_total",
			Help:      "Store records seen by each pipeline stage",
		},
		[]string{"stage"}, // stage: input / matched / in_radius / returned
	)

	PipelineSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ebtlocator",
			Name:      "pipeline_skipped_total",
			Help:      "Store records skipped for missing id or name",
		},
	)

	CategoryFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ebtlocator",
			Name:      "category_fallback_total",
			Help:      "Searches whose category was unknown and fell back to the default rule",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus search pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(PipelineRecordsTotal)
	prometheus.MustRegister(PipelineSkippedTotal)
	prometheus.MustRegister(CategoryFallbackTotal)
	pipelineMetricsRegistered = true
}

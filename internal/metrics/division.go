package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Division and summarization Prometheus metrics.
var (
	DivisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spectradex",
			Name:      "divisions_total",
			Help:      "Total number of collection divisions",
		},
		[]string{"kind", "status"}, // kind: "predicate" / "cluster"
	)

	DivisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spectradex",
			Name:      "division_duration_seconds",
			Help:      "Collection division duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"kind"},
	)

	ClusteringIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "spectradex",
			Name:      "clustering_iterations",
			Help:      "Passes needed per clustering run",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 50, 100},
		},
	)

	SummarizedParticlesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spectradex",
			Name:      "summarized_particles_total",
			Help:      "Particles streamed into histogram datasets",
		},
	)

	HistogramCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spectradex",
			Name:      "histogram_cache_total",
			Help:      "Histogram dataset cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var divisionOnce sync.Once

// RegisterDivisionMetrics registers division and summarization metrics. Safe to call more than once.
func RegisterDivisionMetrics() {
	divisionOnce.Do(func() {
		prometheus.MustRegister(
			DivisionsTotal,
			DivisionDuration,
			ClusteringIterations,
			SummarizedParticlesTotal,
			HistogramCacheTotal,
		)
	})
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Feed, engagement and blob Prometheus metrics.
var (
	FeedQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Name:      "feed_queries_total",
			Help:      "Feed pages served by query mode",
		},
		[]string{"mode"}, // "tag" / "keyword" / "default"
	)

	FeedPageRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artfeed",
			Name:      "feed_page_rows",
			Help:      "Rows returned and examined per feed page",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 250, 500},
		},
		[]string{"kind"}, // "returned" / "scanned"
	)

	LikeTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Name:      "like_toggles_total",
			Help:      "Like toggles by result",
		},
		[]string{"result"}, // "liked" / "unliked" / "conflict" / "error"
	)

	LikeTxConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Name:      "like_tx_conflicts_total",
			Help:      "Like transactions aborted by a concurrent writer and retried",
		},
	)

	BlobResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Name:      "blob_resolve_total",
			Help:      "Blob URL resolutions by driver and status",
		},
		[]string{"driver", "status"},
	)

	BlobResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artfeed",
			Name:      "blob_resolve_duration_seconds",
			Help:      "Blob URL resolution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"driver"},
	)

	BlobCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Name:      "blob_cache_total",
			Help:      "Resolved URL cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	BlobPlaceholderTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artfeed",
			Name:      "blob_placeholder_total",
			Help:      "Images served with the placeholder URL after a failed resolution",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "artfeed",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// RegisterDomainMetrics registers the domain metrics with the default registry.
// Safe to call more than once.
func RegisterDomainMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FeedQueriesTotal,
			FeedPageRows,
			LikeTogglesTotal,
			LikeTxConflictsTotal,
			BlobResolveTotal,
			BlobResolveDuration,
			BlobCacheTotal,
			BlobPlaceholderTotal,
			BreakerState,
		)
	})
}

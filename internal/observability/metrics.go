package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the entity cache service.
// Metrics are organized by subsystem: fetches, cache, eviction, batch lookups
// and upstream API traffic. All metrics are registered via promauto for
// automatic registration with the default Prometheus registry.
type Metrics struct {
	// FetchesStarted counts bulk fetches initiated.
	FetchesStarted prometheus.Counter

	// FetchesCompleted counts bulk fetches that finished successfully.
	FetchesCompleted prometheus.Counter

	// FetchesFailed counts bulk fetches that ended in failure.
	FetchesFailed prometheus.Counter

	// FetchDuration observes end-to-end bulk fetch duration in seconds.
	FetchDuration prometheus.Histogram

	// FetchPages counts pages retrieved from the upstream API.
	FetchPages prometheus.Counter

	// FetchedEntities counts entities materialized into tables.
	FetchedEntities prometheus.Counter

	// CacheHits counts loads served from a fresh cache entry.
	CacheHits prometheus.Counter

	// CacheMisses counts loads with no cache entry present.
	CacheMisses prometheus.Counter

	// CacheStale counts loads that found an entry past its maximum age.
	CacheStale prometheus.Counter

	// CacheReadDegraded counts cache entries that could not be decoded
	// and were substituted with an empty table.
	CacheReadDegraded prometheus.Counter

	// CacheBytesWritten counts compressed bytes written to cache files.
	CacheBytesWritten prometheus.Counter

	// Evictions counts cache files deleted by the evictor.
	Evictions prometheus.Counter

	// EvictedBytes counts bytes reclaimed by eviction.
	EvictedBytes prometheus.Counter

	// EvictionExhausted counts eviction passes that ran out of files with
	// a ceiling still exceeded.
	EvictionExhausted prometheus.Counter

	// BatchLookups counts batch lookup requests issued upstream.
	BatchLookups prometheus.Counter

	// APIRequests counts upstream API requests by endpoint kind.
	APIRequests *prometheus.CounterVec

	// APIRequestsFailed counts failed upstream API requests by endpoint kind.
	APIRequestsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		FetchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_started_total",
			Help:      "Total number of bulk entity fetches started",
		}),
		FetchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_completed_total",
			Help:      "Total number of bulk entity fetches completed successfully",
		}),
		FetchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_failed_total",
			Help:      "Total number of bulk entity fetches that failed",
		}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of bulk entity fetches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		FetchPages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_pages_total",
			Help:      "Total number of result pages fetched from the API",
		}),
		FetchedEntities: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_entities_total",
			Help:      "Total number of entities materialized into tables",
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of loads served from a fresh cache entry",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of loads with no cache entry present",
		}),
		CacheStale: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_stale_total",
			Help:      "Total number of loads that found an expired cache entry",
		}),
		CacheReadDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_read_degraded_total",
			Help:      "Total number of unreadable cache entries replaced by empty tables",
		}),
		CacheBytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_bytes_written_total",
			Help:      "Total compressed bytes written to cache files",
		}),

		Evictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Total number of cache files deleted by eviction",
		}),
		EvictedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_bytes_total",
			Help:      "Total bytes reclaimed by eviction",
		}),
		EvictionExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eviction_exhausted_total",
			Help:      "Total eviction passes that emptied the cache with a ceiling still exceeded",
		}),

		BatchLookups: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_lookups_total",
			Help:      "Total number of batch lookup requests issued",
		}),

		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of upstream API requests by endpoint kind",
		}, []string{"endpoint"}),
		APIRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_failed_total",
			Help:      "Total number of failed upstream API requests by endpoint kind",
		}, []string{"endpoint"}),
	}
}

// RecordFetchStarted increments the started-fetch counter.
func (m *Metrics) RecordFetchStarted() {
	m.FetchesStarted.Inc()
}

// RecordFetchCompleted records a successful fetch and its duration.
func (m *Metrics) RecordFetchCompleted(durationSeconds float64) {
	m.FetchesCompleted.Inc()
	m.FetchDuration.Observe(durationSeconds)
}

// RecordFetchFailed increments the failed-fetch counter.
func (m *Metrics) RecordFetchFailed() {
	m.FetchesFailed.Inc()
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordCacheStale increments the stale-entry counter.
func (m *Metrics) RecordCacheStale() {
	m.CacheStale.Inc()
}

// RecordCacheWrite records bytes written for one cache entry.
func (m *Metrics) RecordCacheWrite(bytes int) {
	m.CacheBytesWritten.Add(float64(bytes))
}

// RecordEviction records one evicted file and its size.
func (m *Metrics) RecordEviction(bytes int64) {
	m.Evictions.Inc()
	m.EvictedBytes.Add(float64(bytes))
}

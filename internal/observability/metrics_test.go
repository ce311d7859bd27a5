package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_oaxc_new")

	assert.NotNil(t, m.FetchesStarted)
	assert.NotNil(t, m.FetchesCompleted)
	assert.NotNil(t, m.FetchesFailed)
	assert.NotNil(t, m.FetchDuration)
	assert.NotNil(t, m.FetchPages)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheMisses)
	assert.NotNil(t, m.CacheStale)
	assert.NotNil(t, m.CacheReadDegraded)
	assert.NotNil(t, m.Evictions)
	assert.NotNil(t, m.EvictedBytes)
	assert.NotNil(t, m.BatchLookups)
	assert.NotNil(t, m.APIRequests)
	assert.NotNil(t, m.APIRequestsFailed)
}

func TestRecordFetchCompleted(t *testing.T) {
	m := NewMetrics("test_oaxc_fetch_completed")

	initial := testutil.ToFloat64(m.FetchesCompleted)
	m.RecordFetchCompleted(2.5)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.FetchesCompleted))

	histCount, err := getHistogramSampleCount(m.FetchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordCacheTraffic(t *testing.T) {
	m := NewMetrics("test_oaxc_cache_traffic")

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordCacheStale()
	m.RecordCacheWrite(1024)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheStale))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.CacheBytesWritten))
}

func TestRecordEviction(t *testing.T) {
	m := NewMetrics("test_oaxc_eviction")

	m.RecordEviction(4096)
	m.RecordEviction(512)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evictions))
	assert.Equal(t, 4608.0, testutil.ToFloat64(m.EvictedBytes))
}

func TestAPIRequestLabels(t *testing.T) {
	m := NewMetrics("test_oaxc_api_requests")

	m.APIRequests.WithLabelValues("count").Inc()
	m.APIRequests.WithLabelValues("page").Inc()
	m.APIRequests.WithLabelValues("page").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("count")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("page")))
}

// getHistogramSampleCount extracts the sample count from a histogram metric.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	var metric dto.Metric
	if err := h.(prometheus.Metric).Write(&metric); err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleCount(), nil
}

package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, c.cacheLookups)
	assert.NotNil(t, c.detectionsTotal)
	assert.NotNil(t, c.oracleCallsTotal)
	assert.NotNil(t, c.searchesTotal)
}

func TestCollector_RecordCacheLookup(t *testing.T) {
	c := NewCollectorWith(prometheus.NewRegistry(), "truffle", nil)

	c.RecordCacheLookup("list_detector", CacheHit)
	c.RecordCacheLookup("list_detector", CacheHit)
	c.RecordCacheLookup("list_detector", CacheMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("list_detector", CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("list_detector", CacheMiss)))
	assert.Equal(t, 2, testutil.CollectAndCount(c.cacheLookups))
}

func TestCollector_RecordDetection(t *testing.T) {
	c := NewCollectorWith(prometheus.NewRegistry(), "truffle", nil)

	c.RecordDetection("structural", "success", 20*time.Millisecond)
	c.RecordDetection("inferred", "not_found", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.detectionsTotal.WithLabelValues("structural", "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.detectionDuration))
}

func TestCollector_RecordOracleAndSearch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWith(reg, "truffle", nil)

	c.RecordOracleCall("exact_match", 100*time.Millisecond)
	c.RecordOracleCall("too_many", 50*time.Millisecond)
	c.RecordSearch("success", 2, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.oracleCallsTotal.WithLabelValues("exact_match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchesTotal.WithLabelValues("success")))

	n, err := testutil.GatherAndCount(reg, "truffle_search_oracle_calls")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordCacheLookup("a", CacheHit)
		c.RecordDetection("cache", "success", time.Millisecond)
		c.RecordOracleCall("not_found", time.Millisecond)
		c.RecordSearch("error", 0, time.Millisecond)
	})
}

func TestNewCollector_DuplicateNamespacePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollectorWith(reg, "dup", nil)
	assert.Panics(t, func() { NewCollectorWith(reg, "dup", nil) })
}

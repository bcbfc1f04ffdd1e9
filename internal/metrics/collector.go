package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"

	// CacheSkipped is a forced detection that did not read the cache.
	CacheSkipped = "skipped"
)

// Collector holds the locator's Prometheus collectors. A nil *Collector
// records nothing.
type Collector struct {
	// 缓存指标
	cacheLookups *prometheus.CounterVec

	// 检测指标
	detectionsTotal   *prometheus.CounterVec
	detectionDuration *prometheus.HistogramVec

	// Oracle 指标
	oracleCallsTotal   *prometheus.CounterVec
	oracleCallDuration prometheus.Histogram

	// 搜索指标
	searchesTotal  *prometheus.CounterVec
	searchCalls    prometheus.Histogram
	searchDuration prometheus.Histogram

	logger *zap.Logger
}

// NewCollector registers the collectors under namespace with the default
// registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith registers the collectors with reg.
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.cacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Marker cache lookups by result",
		},
		[]string{"action", "result"},
	)

	c.detectionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "List detections by source and status",
		},
		[]string{"source", "status"},
	)

	c.detectionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "List detection duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	c.oracleCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Oracle judgements by verdict",
		},
		[]string{"verdict"},
	)

	c.oracleCallDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Oracle judgement duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	c.searchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Prompt searches by status",
		},
		[]string{"status"},
	)

	c.searchCalls = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_oracle_calls",
			Help:      "Oracle calls spent per prompt search",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 40, 50},
		},
	)

	c.searchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Prompt search duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordCacheLookup counts one cache lookup.
func (c *Collector) RecordCacheLookup(action, result string) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(action, result).Inc()
}

// RecordDetection counts one FindList outcome.
func (c *Collector) RecordDetection(source, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.detectionsTotal.WithLabelValues(source, status).Inc()
	c.detectionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordOracleCall counts one oracle judgement.
func (c *Collector) RecordOracleCall(verdict string, duration time.Duration) {
	if c == nil {
		return
	}
	c.oracleCallsTotal.WithLabelValues(verdict).Inc()
	c.oracleCallDuration.Observe(duration.Seconds())
}

// RecordSearch counts one prompt search and the oracle calls it spent.
func (c *Collector) RecordSearch(status string, calls int64, duration time.Duration) {
	if c == nil {
		return
	}
	c.searchesTotal.WithLabelValues(status).Inc()
	c.searchCalls.Observe(float64(calls))
	c.searchDuration.Observe(duration.Seconds())
}

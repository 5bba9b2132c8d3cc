// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Partition query metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prodledger_query_duration_seconds",
			Help:    "Duration of record queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "target"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_query_errors_total",
			Help: "Total number of failed record queries by error kind",
		},
		[]string{"operation", "kind"},
	)

	QueryRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prodledger_query_rows",
			Help:    "Rows returned per record query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	DegradedQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_degraded_queries_total",
			Help: "Queries answered from the live partition alone because the archive was unavailable",
		},
		[]string{"operation"},
	)

	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_slow_queries_total",
			Help: "Queries exceeding the slow query threshold",
		},
		[]string{"operation"},
	)

	// Connection metrics
	PartitionOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_partition_opens_total",
			Help: "Partition handle opens by result",
		},
		[]string{"partition", "result"}, // "ok", "retry", "error"
	)

	PartitionAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prodledger_partition_available",
			Help: "1 when the partition file is present, 0 when absent",
		},
		[]string{"partition"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prodledger_breaker_state",
			Help: "Partition circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"partition"},
	)

	WorkersIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prodledger_workers_idle",
			Help: "Connection-owning workers currently idle",
		},
	)

	// Result cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_cache_hits_total",
			Help: "Result cache hits by operation",
		},
		[]string{"operation"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_cache_misses_total",
			Help: "Result cache misses by operation",
		},
		[]string{"operation"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_cache_evictions_total",
			Help: "Result cache evictions by reason",
		},
		[]string{"reason"}, // "capacity", "expired", "stale_version"
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prodledger_cache_entries",
			Help: "Current number of cached results",
		},
	)

	// Ad-hoc SQL metrics
	SQLRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_sql_rejections_total",
			Help: "Ad-hoc statements rejected by the safety validator, by stage",
		},
		[]string{"stage"},
	)

	// Rate limiter metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_rate_limit_rejections_total",
			Help: "Requests rejected by a sliding-window limiter",
		},
		[]string{"limiter"},
	)

	RateLimitTrackedKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prodledger_rate_limit_tracked_keys",
			Help: "Caller keys with a non-empty request log",
		},
		[]string{"limiter"},
	)

	// Session metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prodledger_active_sessions",
			Help: "Conversation sessions currently held in memory",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prodledger_sessions_expired_total",
			Help: "Sessions removed by the idle sweep",
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prodledger_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prodledger_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Query log pipeline
	QueryLogPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prodledger_query_log_published_total",
			Help: "Query log records published on the event bus",
		},
	)

	QueryLogConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodledger_query_log_consumed_total",
			Help: "Query log records consumed from the event bus by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordQuery records a completed record query. kind is empty on success.
func RecordQuery(operation, target string, duration time.Duration, rows int, kind string) {
	QueryDuration.WithLabelValues(operation, target).Observe(duration.Seconds())
	if kind != "" {
		QueryErrors.WithLabelValues(operation, kind).Inc()
		return
	}
	QueryRows.WithLabelValues(operation).Observe(float64(rows))
}

// RecordPartitionOpen records a partition open attempt.
func RecordPartitionOpen(partition, result string) {
	PartitionOpens.WithLabelValues(partition, result).Inc()
}

// SetPartitionAvailable sets the availability gauge for a partition.
func SetPartitionAvailable(partition string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	PartitionAvailable.WithLabelValues(partition).Set(v)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(operation string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(operation).Inc()
		return
	}
	CacheMisses.WithLabelValues(operation).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

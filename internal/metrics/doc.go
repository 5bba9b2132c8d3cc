// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package metrics provides Prometheus metrics for the query core.

All collectors are registered on the default registry via promauto and exposed
at /metrics by the API router.

# Available Metrics

Query Metrics:
  - prodledger_query_duration_seconds: Labels operation, target (live, archive, both)
  - prodledger_query_errors_total: Labels operation, kind (error kind string)
  - prodledger_query_rows: Rows per query (histogram)
  - prodledger_degraded_queries_total: Archive-unavailable fallbacks
  - prodledger_slow_queries_total: Queries above the slow threshold

Connection Metrics:
  - prodledger_partition_opens_total: Labels partition, result (ok, retry, error)
  - prodledger_partition_available: 1 when the file exists
  - prodledger_breaker_state: 0=closed, 1=half-open, 2=open
  - prodledger_workers_idle

Cache Metrics:
  - prodledger_cache_hits_total, prodledger_cache_misses_total: Label operation
  - prodledger_cache_evictions_total: Label reason (capacity, expired, stale_version)
  - prodledger_cache_entries

Guard Metrics:
  - prodledger_sql_rejections_total: Label stage
  - prodledger_rate_limit_rejections_total: Label limiter (ai, data)
  - prodledger_rate_limit_tracked_keys
  - prodledger_active_sessions, prodledger_sessions_expired_total

HTTP Metrics:
  - prodledger_api_requests_total: Labels method, endpoint, status_code
  - prodledger_api_request_duration_seconds
  - prodledger_api_active_requests

# Usage

	start := time.Now()
	page, err := store.ListRecords(ctx, filter)
	metrics.RecordQuery("list_records", "both", time.Since(start), len(page.Records), "")
*/
package metrics

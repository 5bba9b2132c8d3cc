// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"records": [...], "pagination": {...}},
//	  "metadata": {
//	    "timestamp": "2026-03-02T12:00:00Z",
//	    "query_time_ms": 12,
//	    "data_version": "live:1772450000000000000:40960|archive:absent"
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "INVALID_CURSOR",
//	    "message": "invalid pagination cursor",
//	    "details": {"reason": "unknown source partition"}
//	  },
//	  "metadata": {"timestamp": "2026-03-02T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// QueryTimeMS is 0 for cache hits. DataVersion is set on data endpoints so clients
// can tell whether two pages were read at the same version.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	DataVersion string    `json:"data_version,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Codes are stable and machine-readable:
//   - PARTITION_UNAVAILABLE, CONNECTION_ERROR: data layer failures (503)
//   - INVALID_CURSOR, VALIDATION_ERROR: caller errors (400)
//   - RATE_LIMIT_EXCEEDED: limiter rejection (429, Retry-After header set)
//   - QUERY_TIMEOUT: ad-hoc statement exceeded its budget (504)
//   - BAD_REQUEST, NOT_FOUND, INTERNAL_ERROR: request/handler level
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationInfo contains cursor-based pagination metadata.
//
// NextCursor is an opaque base64url token; it is omitted on the last page.
type PaginationInfo struct {
	Limit      int     `json:"limit"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// RecordsResponse wraps a page of production records with pagination info.
//
// Example response:
//
//	{
//	  "records": [
//	    {"row_id": 42, "production_date": "2026-03-01", "line": "L1", "source_partition": "live", ...}
//	  ],
//	  "pagination": {"limit": 50, "has_more": true, "next_cursor": "eyJkYXRlIjoi..."},
//	  "partitions_used": ["live", "archive"]
//	}
type RecordsResponse struct {
	Records        []ProductionRecord `json:"records"`
	Pagination     PaginationInfo     `json:"pagination"`
	PartitionsUsed []string           `json:"partitions_used"`
	Degraded       bool               `json:"degraded,omitempty"`
}

// HealthStatus is returned by the readiness endpoint.
type HealthStatus struct {
	Status      string          `json:"status"` // "ok" or "degraded"
	DataVersion string          `json:"data_version"`
	Partitions  map[string]bool `json:"partitions"` // partition name -> file present
	Uptime      float64         `json:"uptime_seconds"`
}

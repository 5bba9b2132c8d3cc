// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package api provides the HTTP surface of Prodledger on the Chi router.

# Endpoints

	GET  /api/v1/health/live                 liveness
	GET  /api/v1/health/ready                data version and partition availability
	GET  /metrics                            Prometheus exposition
	GET  /api/v1/records                     keyset-paginated record listing
	GET  /api/v1/records/summary             totals over a filter
	GET  /api/v1/records/summary/lines       totals grouped by line
	POST /api/v1/query                       validated ad-hoc SQL
	POST /api/v1/chat/sessions               new conversation ID
	GET  /api/v1/chat/sessions/{id}          conversation history
	POST /api/v1/chat/sessions/{id}/turns    append one user/model exchange

Data endpoints and session reads sit behind the data limiter. Appending a
turn sits behind the stricter AI limiter. Health and metrics routes get a
coarse per-IP flood guard from go-chi/httprate instead.

# Responses

Every JSON response is a models.APIResponse. Errors from the query core are
*apperr.Error values and map to stable codes and statuses:

	PARTITION_UNAVAILABLE  503
	CONNECTION_ERROR       503
	INVALID_CURSOR         400
	VALIDATION_ERROR       400  (details carry stage and token)
	RATE_LIMIT_EXCEEDED    429  (Retry-After header set)
	QUERY_TIMEOUT          504

Malformed request parameters are BAD_REQUEST (400) with per-field details.

# Dependencies

Handler receives the record Store and the session Store explicitly; nothing
here reaches for package-level state.
*/
package api

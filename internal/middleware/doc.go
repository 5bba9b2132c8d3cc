// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - Request ID: UUID-based request tracking; the ID is copied into the
    logging context so query log records can be joined to requests
  - Prometheus Metrics: request count, latency and in-flight gauge, labelled
    by chi route pattern

Both are written as func(http.HandlerFunc) http.HandlerFunc and adapted to
chi's r.Use() by the api package:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

Caller-facing rate limiting lives in package api on top of package
ratelimit, since its rejection body is part of the API contract.
*/
package middleware

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/prodledger/internal/middleware"
	"github.com/tomtom215/prodledger/internal/models"
	"github.com/tomtom215/prodledger/internal/ratelimit"
)

// Limiters are the two caller-facing sliding-window limiters.
type Limiters struct {
	AI   *ratelimit.Limiter
	Data *ratelimit.Limiter
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	limiters      Limiters
}

// NewRouter creates a Router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware, limiters Limiters) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw, limiters: limiters}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: CodeNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, &models.APIError{Code: CodeMethodNotAllowed, Message: "method not allowed"})
	})

	// ========================
	// Health & Metrics
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.FloodGuard())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.With(router.chiMiddleware.FloodGuard()).Handle("/metrics", promhttp.Handler())

	// ========================
	// Query Core
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.CallerLimit(router.limiters.Data))

			r.Get("/records", router.handler.Records)
			r.Get("/records/summary", router.handler.RecordsSummary)
			r.Get("/records/summary/lines", router.handler.RecordsSummaryLines)
			r.Post("/query", router.handler.Query)

			r.Post("/chat/sessions", router.handler.CreateSession)
			r.Get("/chat/sessions/{id}", router.handler.GetSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.CallerLimit(router.limiters.AI))

			r.Post("/chat/sessions/{id}/turns", router.handler.AppendTurn)
		})
	})

	return r
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/prodledger/internal/config"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/ratelimit"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// Flood guard for health and metrics routes
	FloodRequests int
	FloodWindow   time.Duration

	// RateLimitDisabled turns off the caller limiters and the flood guard
	RateLimitDisabled bool

	// CallerKeyFunc identifies a caller for the sliding-window limiters
	CallerKeyFunc httprate.KeyFunc
}

// DefaultChiMiddlewareConfig returns a secure default configuration.
// CORS origins default to empty, requiring explicit configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins:   []string{},
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		CORSExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,

		FloodRequests: 1000,
		FloodWindow:   time.Minute,
	}
}

// ChiMiddlewareConfigFromConfig builds the middleware configuration from the
// server and rate_limit sections.
func ChiMiddlewareConfigFromConfig(cfg *config.Config) *ChiMiddlewareConfig {
	mc := DefaultChiMiddlewareConfig()
	mc.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mc.RateLimitDisabled = cfg.RateLimit.Disabled
	return mc
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		ExposedHeaders:   config.CORSExposedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns a Chi-compatible CORS middleware using go-chi/cors.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

func passthrough(next http.Handler) http.Handler { return next }

// FloodGuard returns a coarse per-IP limit for routes that never touch the
// query core.
func (m *ChiMiddleware) FloodGuard() func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(m.config.FloodRequests, m.config.FloodWindow)
}

// callerKey identifies the caller. Keys that cannot be derived fall back to
// one shared bucket, which fails closed.
func (m *ChiMiddleware) callerKey(r *http.Request) string {
	keyFunc := m.config.CallerKeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	key, err := keyFunc(r)
	if err != nil || key == "" {
		return "unknown"
	}
	return key
}

// CallerLimit admits requests through limiter, keyed by caller. Rejections
// are RATE_LIMIT_EXCEEDED with a Retry-After header. The caller key is put on
// the logging context either way.
func (m *ChiMiddleware) CallerLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled || limiter == nil {
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := m.callerKey(r)
			r = r.WithContext(logging.ContextWithCallerKey(r.Context(), key))

			if err := limiter.Allow(key); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

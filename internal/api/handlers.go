// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"time"

	"github.com/tomtom215/prodledger/internal/chat"
	"github.com/tomtom215/prodledger/internal/database"
)

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: response writing and parameter parsing
//   - handlers_health.go: liveness and readiness
//   - handlers_records.go: listing, summaries and ad-hoc SQL
//   - handlers_chat.go: conversation sessions
type Handler struct {
	store     *database.Store
	sessions  *chat.Store
	startTime time.Time
}

// NewHandler creates a new API handler.
//
// Example:
//
//	handler := api.NewHandler(store, sessions)
//	router := api.NewRouter(handler, api.NewChiMiddleware(nil), limiters)
//	http.ListenAndServe(":8080", router.SetupChi())
func NewHandler(store *database.Store, sessions *chat.Store) *Handler {
	return &Handler{
		store:     store,
		sessions:  sessions,
		startTime: time.Now(),
	}
}

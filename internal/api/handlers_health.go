// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/prodledger/internal/models"
)

// Readiness states.
const (
	healthOK          = "ok"
	healthDegraded    = "degraded"
	healthUnavailable = "unavailable"
)

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
//
// 200 "ok" when both partition files are present, 200 "degraded" when only
// the live file is (cross-partition queries answer from live alone), and 503
// "unavailable" when the live file is missing.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	tracker := h.store.Manager().Tracker()
	version := tracker.CurrentVersion()
	partitions := tracker.Availability()

	status, code := healthOK, http.StatusOK
	switch {
	case !partitions["live"]:
		status, code = healthUnavailable, http.StatusServiceUnavailable
	case !partitions["archive"]:
		status = healthDegraded
	}

	respondSuccess(w, code, models.HealthStatus{
		Status:      status,
		DataVersion: version,
		Partitions:  partitions,
		Uptime:      time.Since(h.startTime).Seconds(),
	}, models.Metadata{DataVersion: version})
}

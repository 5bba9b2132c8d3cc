// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package logging provides centralized zerolog-based structured logging for Prodledger.
//
// # Quick Start
//
//	import "github.com/tomtom215/prodledger/internal/logging"
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Msg("Starting prodledger")
//	logging.Warn().Err(err).Msg("Publish failed")
//	logging.Ctx(ctx).Info().Str("operation", "list_records").Msg("Query done")
//
// # Configuration
//
// The logging section of the application config maps onto Config:
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false
//
// # Context
//
// The HTTP middleware stores request ID, correlation ID and caller key on the
// request context. Ctx copies them onto every event, so query log lines can
// be joined with access logs.
//
// # Suture Integration
//
// NewSlogLogger returns an slog.Logger backed by zerolog. The supervisor tree
// hands it to sutureslog so service restarts land in the same log stream.
package logging

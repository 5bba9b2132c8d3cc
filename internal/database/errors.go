// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/logging"
)

// closeWithLog closes a resource and logs any error.
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}

// lockErrorMarkers identify transient open failures worth retrying.
var lockErrorMarkers = []string{
	"database is locked",
	"sqlite_busy",
	"unable to open",
}

// isLockError reports whether err is a transient lock or open failure, typically
// the upstream feed holding a write lock or a rollover swapping the file.
func isLockError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range lockErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isContextError reports whether err came from cancellation or a deadline.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wrapQueryError passes typed errors through and classifies the rest.
// A deadline on the caller's context is reported as QueryTimeout.
func wrapQueryError(p Partition, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.QueryTimeout(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Connection(p.String(), err)
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/models"
)

// ExecuteValidatedQuery runs caller-supplied read-only SQL after the safety
// validator accepts it. args are bound positionally.
//
// The statement runs on a dedicated connection that is closed afterwards,
// never one owned by a worker. The live file is the main schema (also
// reachable as "live") and the archive is attached as "archive". The call is
// bounded by the configured ad-hoc timeout; on expiry sqlite is interrupted,
// the connection is discarded and QueryTimeout is returned.
func (s *Store) ExecuteValidatedQuery(ctx context.Context, raw string, args ...any) (*models.AdhocResult, error) {
	obs := observation{op: OpAdhoc, target: "adhoc", start: time.Now()}

	safe, err := s.guard.Validate(raw)
	if err != nil {
		s.finish(ctx, obs, err)
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.AdhocTimeout)
	defer cancel()

	db, used, err := s.mgr.OpenAdhoc(qctx)
	if err != nil {
		err = adhocError(qctx, err)
		s.finish(ctx, obs, err)
		return nil, err
	}
	defer closeWithLog(db, "ad-hoc connection")
	obs.used = partitionNames(used)
	obs.lookup.Version = s.mgr.Version()

	result, err := runAdhoc(qctx, db, safe.Text, args)
	if err != nil {
		err = adhocError(qctx, err)
		s.finish(ctx, obs, err)
		return nil, err
	}

	obs.rows = result.RowCount
	s.finish(ctx, obs, nil)
	return result, nil
}

// adhocError reports a deadline on the ad-hoc context as QueryTimeout.
func adhocError(qctx context.Context, err error) error {
	if errors.Is(qctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.QueryTimeout(err)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Connection("adhoc", err)
}

func runAdhoc(ctx context.Context, db *sql.DB, text string, args []any) (*models.AdhocResult, error) {
	rows, err := db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "ad-hoc rows")

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.AdhocResult{SQL: text, Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// OpenAdhoc opens a dedicated read-only connection for one ad-hoc statement.
// The caller must close it. The live file is main when present, otherwise the
// archive is. The returned partitions are those reachable on the connection.
func (m *Manager) OpenAdhoc(ctx context.Context) (*sql.DB, []Partition, error) {
	liveOK := m.tracker.Available(PartitionLive)
	archiveOK := m.tracker.Available(PartitionArchive)

	var (
		main   Partition
		attach []attachment
	)
	switch {
	case liveOK:
		main = PartitionLive
		if archiveOK {
			attach = append(attach, attachment{alias: archiveAlias, path: m.tracker.Path(PartitionArchive), required: true})
		}
		attach = append(attach, attachment{alias: liveAlias, path: m.tracker.Path(PartitionLive), optional: true})
	case archiveOK:
		main = PartitionArchive
		attach = append(attach, attachment{alias: archiveAlias, path: m.tracker.Path(PartitionArchive)})
	default:
		return nil, nil, apperr.PartitionUnavailable(PartitionLive.String(), nil)
	}

	db, aliases, err := m.connectWithRetry(ctx, main, m.tracker.Path(main), attach)
	if err != nil {
		return nil, nil, err
	}

	used := []Partition{main}
	if main == PartitionLive && aliases.ok(archiveAlias) {
		used = append(used, PartitionArchive)
	}
	return db, used, nil
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package querylog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/prodledger/internal/logging"
)

// LogSink writes records through zerolog. Records slower than SlowThreshold, or
// with a non-ok outcome, are logged at WARN; everything else at INFO.
type LogSink struct {
	SlowThreshold time.Duration
	logger        *zerolog.Logger
}

// NewLogSink creates a sink writing to the global logger.
func NewLogSink(slowThreshold time.Duration) *LogSink {
	return &LogSink{SlowThreshold: slowThreshold}
}

// NewLogSinkWithLogger creates a sink writing to logger (used in tests).
func NewLogSinkWithLogger(slowThreshold time.Duration, logger zerolog.Logger) *LogSink {
	return &LogSink{SlowThreshold: slowThreshold, logger: &logger}
}

// IsSlow reports whether rec exceeds the slow threshold. A zero threshold disables it.
func (s *LogSink) IsSlow(rec Record) bool {
	return s.SlowThreshold > 0 && rec.Duration() > s.SlowThreshold
}

// Emit logs rec.
func (s *LogSink) Emit(ctx context.Context, rec Record) {
	l := s.logger
	if l == nil {
		l = logging.Ctx(ctx)
	}

	var evt *zerolog.Event
	switch {
	case rec.Outcome != OutcomeOK:
		evt = l.Warn()
	case s.IsSlow(rec):
		evt = l.Warn().Bool("slow", true)
	default:
		evt = l.Info()
	}

	evt.Str("operation", rec.Operation).
		Strs("partitions_used", rec.PartitionsUsed).
		Float64("duration_ms", rec.DurationMs).
		Int("row_count", rec.RowCount).
		Str("outcome", rec.Outcome).
		Bool("degraded", rec.Degraded).
		Bool("cache_hit", rec.CacheHit).
		Str("data_version", rec.DataVersion).
		Msg("query")
}

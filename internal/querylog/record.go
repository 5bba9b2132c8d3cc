// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package querylog

import (
	"context"
	"time"

	"github.com/tomtom215/prodledger/internal/apperr"
)

// OutcomeOK marks a query that returned a result.
const OutcomeOK = "ok"

// Record is the structured entry emitted once per query.
//
// The core supplies raw measurements only; sinks decide how to classify them
// (for example WARN above a slow threshold).
type Record struct {
	Operation      string    `json:"operation"`
	PartitionsUsed []string  `json:"partitions_used"`
	DurationMs     float64   `json:"duration_ms"`
	RowCount       int       `json:"row_count"`
	Outcome        string    `json:"outcome"` // "ok" or an error code such as QUERY_TIMEOUT
	Degraded       bool      `json:"degraded,omitempty"`
	CacheHit       bool      `json:"cache_hit,omitempty"`
	DataVersion    string    `json:"data_version,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Duration returns DurationMs as a time.Duration.
func (r Record) Duration() time.Duration {
	return time.Duration(r.DurationMs * float64(time.Millisecond))
}

// OutcomeFor maps a query error to the outcome recorded in the log.
func OutcomeFor(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return apperr.KindOf(err).Code()
}

// Sink receives query log records. Implementations must not block the query path
// for longer than a log write.
type Sink interface {
	Emit(ctx context.Context, rec Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, rec Record) {
	f(ctx, rec)
}

// Nop discards records.
var Nop Sink = SinkFunc(func(context.Context, Record) {})

// FanOut delivers every record to each sink in order.
type FanOut []Sink

// Emit forwards rec to every sink.
func (f FanOut) Emit(ctx context.Context, rec Record) {
	for _, s := range f {
		if s != nil {
			s.Emit(ctx, rec)
		}
	}
}

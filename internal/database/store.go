// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/prodledger/internal/cache"
	"github.com/tomtom215/prodledger/internal/config"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/metrics"
	"github.com/tomtom215/prodledger/internal/querylog"
	"github.com/tomtom215/prodledger/internal/validation"
)

// Operation names used for cache keys, metrics and the query log.
const (
	OpListRecords     = "list_records"
	OpSummarize       = "summarize"
	OpSummarizeByLine = "summarize_by_line"
	OpAdhoc           = "adhoc"
)

// Page size bounds applied when the caller passes zero or too much.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// StoreConfig tunes a Store.
type StoreConfig struct {
	Cutoff          time.Time
	ListingTTL      time.Duration
	AggregateTTL    time.Duration
	AdhocTimeout    time.Duration
	AdhocRowCap     int
	DefaultPageSize int
	MaxPageSize     int
}

// StoreConfigFromConfig builds a StoreConfig from the loaded configuration.
func StoreConfigFromConfig(cfg *config.Config) (StoreConfig, error) {
	cutoff, err := cfg.Partitions.Cutoff()
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Cutoff:          cutoff,
		ListingTTL:      cfg.Cache.ListingTTL,
		AggregateTTL:    cfg.Cache.AggregateTTL,
		AdhocTimeout:    cfg.Adhoc.Timeout,
		AdhocRowCap:     cfg.Adhoc.RowCap,
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
	}, nil
}

func (c *StoreConfig) applyDefaults() {
	if c.ListingTTL <= 0 {
		c.ListingTTL = 60 * time.Second
	}
	if c.AggregateTTL <= 0 {
		c.AggregateTTL = 300 * time.Second
	}
	if c.AdhocTimeout <= 0 {
		c.AdhocTimeout = 5 * time.Second
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = MaxPageSize
	}
}

// Store is the query core: it routes each request to the partitions that can
// answer it, serves repeated requests from the versioned result cache, and
// emits one query log record per call.
type Store struct {
	mgr   *Manager
	cache *cache.ResultCache
	guard *validation.SQLGuard
	sink  querylog.Sink
	cfg   StoreConfig
}

// NewStore wires a Store. A nil sink discards query log records.
func NewStore(mgr *Manager, rc *cache.ResultCache, sink querylog.Sink, cfg StoreConfig) *Store {
	cfg.applyDefaults()
	if sink == nil {
		sink = querylog.Nop
	}
	return &Store{
		mgr:   mgr,
		cache: rc,
		guard: validation.NewSQLGuard(mgr.Table(), cfg.AdhocRowCap),
		sink:  sink,
		cfg:   cfg,
	}
}

// Manager returns the connection manager.
func (s *Store) Manager() *Manager { return s.mgr }

// Cutoff returns the date from which records are live.
func (s *Store) Cutoff() time.Time { return s.cfg.Cutoff }

// DataVersion returns the current global data version.
func (s *Store) DataVersion() string { return s.mgr.Version() }

// clampLimit applies the page size defaults and bounds.
func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return limit
}

// observation is what one query reports to metrics and the query log.
type observation struct {
	op       string
	target   string
	start    time.Time
	used     []string
	rows     int
	degraded bool
	lookup   cache.Lookup
}

func (s *Store) finish(ctx context.Context, o observation, err error) {
	elapsed := time.Since(o.start)
	outcome := querylog.OutcomeFor(err)

	kind := ""
	if err != nil {
		kind = outcome
	}
	metrics.RecordQuery(o.op, o.target, elapsed, o.rows, kind)
	if o.degraded {
		metrics.DegradedQueries.WithLabelValues(o.op).Inc()
	}

	used := o.used
	if used == nil {
		used = []string{}
	}
	s.sink.Emit(ctx, querylog.Record{
		Operation:      o.op,
		PartitionsUsed: used,
		DurationMs:     float64(elapsed.Microseconds()) / 1000,
		RowCount:       o.rows,
		Outcome:        outcome,
		Degraded:       o.degraded,
		CacheHit:       o.lookup.Hit,
		DataVersion:    o.lookup.Version,
		RequestID:      logging.RequestIDFromContext(ctx),
		Timestamp:      o.start.UTC(),
	})
}

func partitionNames(ps []Partition) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func (s *Store) String() string {
	return fmt.Sprintf("Store(table=%s, cutoff=%s)", s.mgr.Table(), s.cfg.Cutoff.Format(time.DateOnly))
}

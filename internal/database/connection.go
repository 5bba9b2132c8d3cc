// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
connection.go - Worker Pool and Partition Handles

Each Worker owns one read-only *sql.DB per partition, limited to a single
connection so the archive ATTACH on the live handle survives for the handle's
lifetime. Handles are tagged with the global data version they were opened
under and reopened when it changes.

Open Path:
  - DSN file:<path>?mode=ro&_query_only=true
  - the live handle ATTACHes the archive as "archive" when the archive exists;
    a failed ATTACH keeps the handle and is reported when a query needs both
  - lock-style failures are retried with exponential backoff
  - each partition's opens run through a gobreaker circuit breaker
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/config"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/metrics"
)

// archiveAlias is the schema name of the attached archive.
const archiveAlias = "archive"

// liveAlias is the extra schema name of the live file on ad-hoc connections.
const liveAlias = "live"

// Options tunes the Manager.
type Options struct {
	Table           string
	Workers         int
	OpenRetries     int
	RetryDelay      time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// OptionsFromConfig converts the partitions config section.
func OptionsFromConfig(cfg config.PartitionsConfig) Options {
	return Options{
		Table:           cfg.Table,
		Workers:         cfg.Workers,
		OpenRetries:     cfg.OpenRetries,
		RetryDelay:      cfg.RetryDelay,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
}

func (o *Options) applyDefaults() {
	if o.Table == "" {
		o.Table = "production_records"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.OpenRetries < 0 {
		o.OpenRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 25 * time.Millisecond
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 30 * time.Second
	}
}

// Handle is a worker-owned read-only connection to one partition.
type Handle struct {
	DB        *sql.DB
	Partition Partition

	// Version is the global data version the handle was opened under.
	Version string

	// ArchiveAttached is true on a live handle whose connection has the
	// archive attached under the "archive" schema.
	ArchiveAttached bool

	// AttachErr is why an existing archive could not be attached.
	AttachErr error
}

// Worker owns one handle per partition. A Worker is used by one request at a time.
type Worker struct {
	id      int
	mgr     *Manager
	handles map[Partition]*Handle
}

// ID returns the worker index.
func (w *Worker) ID() int { return w.id }

// Conn returns a handle for p that matches the current data version, reopening
// a stale one. A missing file yields PartitionUnavailable.
func (w *Worker) Conn(ctx context.Context, p Partition) (*Handle, error) {
	version := w.mgr.tracker.CurrentVersion()

	if !w.mgr.tracker.Available(p) {
		w.drop(p)
		return nil, apperr.PartitionUnavailable(p.String(), nil)
	}

	if h := w.handles[p]; h != nil {
		if h.Version == version {
			return h, nil
		}
		logging.Debug().
			Int("worker", w.id).
			Str("partition", p.String()).
			Str("old_version", h.Version).
			Str("new_version", version).
			Msg("Reopening partition handle after data change")
		w.drop(p)
	}

	o, err := w.mgr.openPartition(ctx, p)
	if err != nil {
		return nil, err
	}

	h := &Handle{DB: o.db, Partition: p, Version: version, ArchiveAttached: o.attached, AttachErr: o.attachErr}
	w.handles[p] = h
	return h, nil
}

func (w *Worker) drop(p Partition) {
	if h := w.handles[p]; h != nil {
		closeWithLog(h.DB, p.String()+" partition handle")
		delete(w.handles, p)
	}
}

func (w *Worker) closeAll() {
	for _, p := range AllPartitions {
		w.drop(p)
	}
}

// opened is what a breaker-guarded open produces.
type opened struct {
	db        *sql.DB
	attached  bool
	attachErr error
}

// Manager owns the worker pool and the per-partition open breakers.
type Manager struct {
	tracker  *VersionTracker
	opts     Options
	breakers map[Partition]*gobreaker.CircuitBreaker[*opened]
	pool     chan *Worker
	workers  []*Worker

	closeOnce sync.Once
}

// NewManager creates a pool of opts.Workers workers. No file is opened until
// a worker asks for a handle.
func NewManager(tracker *VersionTracker, opts Options) *Manager {
	opts.applyDefaults()

	m := &Manager{
		tracker:  tracker,
		opts:     opts,
		breakers: make(map[Partition]*gobreaker.CircuitBreaker[*opened], len(AllPartitions)),
		pool:     make(chan *Worker, opts.Workers),
		workers:  make([]*Worker, opts.Workers),
	}

	for _, p := range AllPartitions {
		m.breakers[p] = newPartitionBreaker(p, opts)
	}

	for i := range m.workers {
		w := &Worker{id: i, mgr: m, handles: make(map[Partition]*Handle, len(AllPartitions))}
		m.workers[i] = w
		m.pool <- w
	}
	metrics.WorkersIdle.Set(float64(len(m.pool)))

	return m
}

func newPartitionBreaker(p Partition, opts Options) *gobreaker.CircuitBreaker[*opened] {
	name := p.String()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*opened](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},

		// Cancellation by the caller says nothing about the file.
		IsSuccessful: func(err error) bool {
			return err == nil || isContextError(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("partition", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Partition breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Tracker returns the version tracker.
func (m *Manager) Tracker() *VersionTracker { return m.tracker }

// Table returns the record table name.
func (m *Manager) Table() string { return m.opts.Table }

// Version returns the current global data version.
func (m *Manager) Version() string { return m.tracker.CurrentVersion() }

// Acquire checks out a worker, blocking until one is idle or ctx is done.
func (m *Manager) Acquire(ctx context.Context) (*Worker, error) {
	select {
	case w := <-m.pool:
		metrics.WorkersIdle.Set(float64(len(m.pool)))
		return w, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a worker to the pool.
func (m *Manager) Release(w *Worker) {
	m.pool <- w
	metrics.WorkersIdle.Set(float64(len(m.pool)))
}

// WithWorker runs fn with a checked-out worker.
func (m *Manager) WithWorker(ctx context.Context, fn func(w *Worker) error) error {
	w, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer m.Release(w)
	return fn(w)
}

// Close closes every worker's handles. Call it only after traffic has stopped.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		for _, w := range m.workers {
			w.closeAll()
		}
	})
	return nil
}

// openPartition opens p through its breaker. An archive that fails to attach
// to the live handle does not fail the open; it is reported in attachErr.
func (m *Manager) openPartition(ctx context.Context, p Partition) (*opened, error) {
	var attach []attachment
	if p == PartitionLive && m.tracker.Available(PartitionArchive) {
		attach = append(attach, attachment{alias: archiveAlias, path: m.tracker.Path(PartitionArchive)})
	}

	res, err := m.breakers[p].Execute(func() (*opened, error) {
		db, attached, err := m.connectWithRetry(ctx, p, m.tracker.Path(p), attach)
		if err != nil {
			return nil, err
		}
		return &opened{db: db, attached: attached.ok(archiveAlias), attachErr: attached[archiveAlias]}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Connection(p.String(), err)
		}
		return nil, err
	}
	return res, nil
}

// connectWithRetry retries lock-style failures with exponential backoff from
// RetryDelay. Other failures and exhausted retries surface as ConnectionError,
// labelled with the attached partition when a required ATTACH failed.
func (m *Manager) connectWithRetry(ctx context.Context, p Partition, path string, attach []attachment) (*sql.DB, attachResult, error) {
	var lastErr error
	for attempt := 0; attempt <= m.opts.OpenRetries; attempt++ {
		if attempt > 0 {
			delay := m.opts.RetryDelay * time.Duration(1<<uint(attempt-1))
			metrics.RecordPartitionOpen(p.String(), "retry")
			logging.Debug().
				Str("partition", p.String()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying partition open")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		db, aliases, err := connect(ctx, path, attach)
		if err == nil {
			metrics.RecordPartitionOpen(p.String(), "ok")
			return db, aliases, nil
		}
		if isContextError(err) {
			return nil, nil, err
		}
		lastErr = err
		if !isLockError(err) {
			break
		}
	}

	metrics.RecordPartitionOpen(p.String(), "error")
	var ae *attachError
	if errors.As(lastErr, &ae) {
		return nil, nil, apperr.Connection(ae.alias, lastErr)
	}
	return nil, nil, apperr.Connection(p.String(), fmt.Errorf("open %s: %w", path, lastErr))
}

// attachment is a database ATTACHed onto every new connection.
type attachment struct {
	alias    string
	path     string
	required bool // failure fails the connection
	optional bool // failure logged at debug
}

// attachResult maps each attempted alias to its ATTACH error, nil on success.
type attachResult map[string]error

func (r attachResult) ok(alias string) bool {
	err, tried := r[alias]
	return tried && err == nil
}

// attachError is a failed required ATTACH.
type attachError struct {
	alias string
	path  string
	err   error
}

func (e *attachError) Error() string {
	return fmt.Sprintf("attach %s (%s): %v", e.alias, e.path, e.err)
}

func (e *attachError) Unwrap() error { return e.err }

// sqliteConnector opens mattn/go-sqlite3 connections through a driver carrying a ConnectHook.
type sqliteConnector struct {
	driver *sqlite3.SQLiteDriver
	dsn    string
}

func (c *sqliteConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *sqliteConnector) Driver() driver.Driver {
	return c.driver
}

// connect opens a single-connection read-only handle on path and attaches
// each attachment. A failed required ATTACH fails the open; any other failed
// ATTACH is logged and reported in the returned result.
func connect(ctx context.Context, path string, attach []attachment) (*sql.DB, attachResult, error) {
	var (
		mu      sync.Mutex
		aliases = make(attachResult, len(attach))
	)

	drv := &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, a := range attach {
				_, err := conn.Exec("ATTACH DATABASE ? AS "+a.alias, []driver.Value{fileURI(a.path, "mode=ro")})
				mu.Lock()
				aliases[a.alias] = err
				mu.Unlock()
				if err != nil && a.required {
					return &attachError{alias: a.alias, path: a.path, err: err}
				}
				if err != nil {
					ev := logging.Warn()
					if a.optional {
						ev = logging.Debug()
					}
					ev.Str("alias", a.alias).Str("path", a.path).Err(err).Msg("Failed to attach partition")
				}
			}
			return nil
		},
	}

	db := sql.OpenDB(&sqliteConnector{driver: drv, dsn: readOnlyDSN(path)})
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	out := make(attachResult, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return db, out, nil
}

// uriEscaper escapes the characters SQLite treats specially in a URI path.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func fileURI(path, params string) string {
	return "file:" + uriEscaper.Replace(path) + "?" + params
}

// readOnlyDSN is the DSN every partition handle is opened with.
func readOnlyDSN(path string) string {
	return fileURI(path, "mode=ro&_query_only=true")
}

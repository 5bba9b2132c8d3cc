// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/prodledger/internal/cache"
	"github.com/tomtom215/prodledger/internal/querylog"
)

const createRecordsTable = `CREATE TABLE production_records (
	row_id INTEGER PRIMARY KEY,
	production_date TEXT NOT NULL,
	line TEXT,
	product_code TEXT,
	shift TEXT,
	quantity_produced REAL,
	quantity_rejected REAL,
	downtime_minutes REAL
)`

// fixtureRow is one row inserted into a partition file.
type fixtureRow struct {
	id       int64
	date     string
	line     string
	product  string
	shift    string
	produced float64
	rejected float64
	downtime float64
}

// writePartition creates a SQLite file at path holding rows.
func writePartition(t *testing.T, path string, rows []fixtureRow) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture %s: %v", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(createRecordsTable); err != nil {
		t.Fatalf("create table: %v", err)
	}
	insertRows(t, db, rows)
}

// appendRows inserts rows into an existing partition file.
func appendRows(t *testing.T, path string, rows []fixtureRow) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture %s: %v", path, err)
	}
	defer db.Close()
	insertRows(t, db, rows)
}

func insertRows(t *testing.T, db *sql.DB, rows []fixtureRow) {
	t.Helper()
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO production_records
			(row_id, production_date, line, product_code, shift, quantity_produced, quantity_rejected, downtime_minutes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.id, r.date, r.line, r.product, r.shift, r.produced, r.rejected, r.downtime)
		if err != nil {
			t.Fatalf("insert row %d: %v", r.id, err)
		}
	}
}

// generateRows builds n rows per day for days consecutive dates ending the day
// before end, ids starting at firstID. Lines and shifts rotate.
func generateRows(end time.Time, days, perDay int, firstID int64) []fixtureRow {
	lines := []string{"L1", "L2", "L3"}
	shifts := []string{"A", "B", "C"}

	var rows []fixtureRow
	id := firstID
	for d := days; d >= 1; d-- {
		date := end.AddDate(0, 0, -d).Format(time.DateOnly)
		for i := 0; i < perDay; i++ {
			rows = append(rows, fixtureRow{
				id:       id,
				date:     date,
				line:     lines[int(id)%len(lines)],
				product:  fmt.Sprintf("P-%d", id%4),
				shift:    shifts[i%len(shifts)],
				produced: float64(100 + id%7),
				rejected: float64(id % 3),
				downtime: float64(id % 5),
			})
			id++
		}
	}
	return rows
}

// fixture is a pair of partition files plus a Store over them.
type fixture struct {
	dir         string
	livePath    string
	archivePath string
	tracker     *VersionTracker
	manager     *Manager
	cache       *cache.ResultCache
	store       *Store
	sink        *recordingSink
}

// newFixture writes both partitions around testCutoff and builds a Store.
// Archive rows cover the 5 days before the cutoff, live rows the cutoff and
// the 4 days after it. Row ids overlap between the files.
func newFixture(t *testing.T, withArchive bool) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		dir:         dir,
		livePath:    filepath.Join(dir, "production_live.db"),
		archivePath: filepath.Join(dir, "production_archive.db"),
		sink:        &recordingSink{},
	}

	writePartition(t, f.livePath, generateRows(testCutoff.AddDate(0, 0, 5), 5, 4, 1))
	if withArchive {
		writePartition(t, f.archivePath, generateRows(testCutoff, 5, 4, 1))
	}

	f.tracker = NewVersionTracker(f.livePath, f.archivePath)
	f.manager = NewManager(f.tracker, Options{Workers: 2, OpenRetries: 1, RetryDelay: time.Millisecond})
	f.cache = cache.New(128, f.tracker.CurrentVersion)
	f.store = NewStore(f.manager, f.cache, f.sink, StoreConfig{Cutoff: testCutoff})

	t.Cleanup(func() { _ = f.manager.Close() })
	return f
}

// touch moves a file's mtime forward so its version changes.
func touch(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	next := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(path, next, next); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// recordingSink collects query log records.
type recordingSink struct {
	mu      sync.Mutex
	records []querylog.Record
}

func (s *recordingSink) Emit(_ context.Context, rec querylog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) last() querylog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return querylog.Record{}
	}
	return s.records[len(s.records)-1]
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomtom215/prodledger/internal/cache"
	"github.com/tomtom215/prodledger/internal/chat"
	"github.com/tomtom215/prodledger/internal/database"
	"github.com/tomtom215/prodledger/internal/models"
	"github.com/tomtom215/prodledger/internal/ratelimit"
)

var testCutoff = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// testServer is a router over two small partition files.
type testServer struct {
	handler     http.Handler
	livePath    string
	archivePath string
	sessions    *chat.Store
}

// writeRecords creates a partition file with perDay rows for each of days
// consecutive dates starting at first.
func writeRecords(t *testing.T, path string, first time.Time, days, perDay int) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE production_records (
		row_id INTEGER PRIMARY KEY, production_date TEXT NOT NULL, line TEXT,
		product_code TEXT, shift TEXT, quantity_produced REAL,
		quantity_rejected REAL, downtime_minutes REAL)`); err != nil {
		t.Fatal(err)
	}

	id := 1
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d).Format(time.DateOnly)
		for i := 0; i < perDay; i++ {
			_, err := db.Exec(`INSERT INTO production_records VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, date, fmt.Sprintf("L%d", i%2+1), "P-1", "A", 100.0, 2.0, 5.0)
			if err != nil {
				t.Fatal(err)
			}
			id++
		}
	}
}

type serverOptions struct {
	withArchive bool
	limiters    Limiters
	mw          *ChiMiddlewareConfig
}

// newTestServer builds live rows for 3 days from the cutoff and, optionally,
// archive rows for the 3 days before it, 2 rows per day each.
func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	dir := t.TempDir()
	ts := &testServer{
		livePath:    filepath.Join(dir, "live.db"),
		archivePath: filepath.Join(dir, "archive.db"),
		sessions:    chat.NewStore(2, time.Hour),
	}
	writeRecords(t, ts.livePath, testCutoff, 3, 2)
	if opts.withArchive {
		writeRecords(t, ts.archivePath, testCutoff.AddDate(0, 0, -3), 3, 2)
	}

	tracker := database.NewVersionTracker(ts.livePath, ts.archivePath)
	mgr := database.NewManager(tracker, database.Options{Workers: 2, RetryDelay: time.Millisecond})
	t.Cleanup(func() { _ = mgr.Close() })

	store := database.NewStore(mgr, cache.New(64, tracker.CurrentVersion), nil, database.StoreConfig{Cutoff: testCutoff})

	if opts.limiters.AI == nil {
		opts.limiters.AI = ratelimit.NewAI(1000, time.Minute)
	}
	if opts.limiters.Data == nil {
		opts.limiters.Data = ratelimit.NewData(1000, time.Minute)
	}

	router := NewRouter(NewHandler(store, ts.sessions), NewChiMiddleware(opts.mw), opts.limiters)
	ts.handler = router.SetupChi()
	return ts
}

// apiResult is an APIResponse with Data left raw.
type apiResult struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, apiResult) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var res apiResult
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("%s %s: decode response: %v\n%s", method, target, err, rec.Body.String())
		}
	}
	return rec, res
}

func decodeData(t *testing.T, res apiResult, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(res.Data, dst); err != nil {
		t.Fatalf("decode data: %v\n%s", err, res.Data)
	}
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, res apiResult, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	if res.Status != "error" || res.Error == nil || res.Error.Code != code {
		t.Errorf("error = %+v, want code %s", res.Error, code)
	}
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/tomtom215/prodledger/internal/database"
	"github.com/tomtom215/prodledger/internal/models"
)

func TestRecords_PaginatesAcrossPartitions(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})

	var (
		all    []models.ProductionRecord
		cursor string
		pages  int
	)
	for {
		target := "/api/v1/records?limit=4"
		if cursor != "" {
			target += "&cursor=" + url.QueryEscape(cursor)
		}
		rec, res := ts.do(t, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("page %d status = %d: %s", pages+1, rec.Code, rec.Body.String())
		}
		if res.Metadata.DataVersion == "" {
			t.Error("data_version missing from metadata")
		}

		var page models.RecordsResponse
		decodeData(t, res, &page)
		all = append(all, page.Records...)
		pages++

		if !page.Pagination.HasMore {
			if page.Pagination.NextCursor != nil {
				t.Error("last page carries next_cursor")
			}
			break
		}
		cursor = *page.Pagination.NextCursor
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(all) != 12 || pages != 3 {
		t.Fatalf("got %d records over %d pages, want 12 over 3", len(all), pages)
	}
	if all[0].ProductionDate != "2026-01-03" || all[len(all)-1].ProductionDate != "2025-12-29" {
		t.Errorf("order = %s .. %s", all[0].ProductionDate, all[len(all)-1].ProductionDate)
	}
}

func TestRecords_Filters(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})
	rec, res := ts.do(t, http.MethodGet, "/api/v1/records?from=2026-01-01&lines=L1,%20L2&shift=A", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var page models.RecordsResponse
	decodeData(t, res, &page)
	if len(page.Records) != 6 || !reflect.DeepEqual(page.PartitionsUsed, []string{"live"}) {
		t.Errorf("records = %d from %v, want 6 from [live]", len(page.Records), page.PartitionsUsed)
	}
}

func TestRecords_PaginationReportsAppliedLimit(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"explicit", "?limit=4", 4},
		{"default", "", database.DefaultPageSize},
		{"clamped", "?limit=5000", database.MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, res := ts.do(t, http.MethodGet, "/api/v1/records"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var page models.RecordsResponse
			decodeData(t, res, &page)
			if page.Pagination.Limit != tt.want {
				t.Errorf("pagination.limit = %d, want %d", page.Pagination.Limit, tt.want)
			}
		})
	}
}

func TestRecords_Errors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"bad cursor", "/api/v1/records?cursor=%21%21%21", http.StatusBadRequest, "INVALID_CURSOR"},
		{"bad date", "/api/v1/records?from=01-02-2026", http.StatusBadRequest, CodeBadRequest},
		{"impossible date", "/api/v1/records?to=2026-02-30", http.StatusBadRequest, CodeBadRequest},
		{"non-numeric limit", "/api/v1/records?limit=ten", http.StatusBadRequest, CodeBadRequest},
		{"negative limit", "/api/v1/records?limit=-1", http.StatusBadRequest, CodeBadRequest},
		{"summary with cursor", "/api/v1/records/summary?cursor=abc", http.StatusBadRequest, CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, res := ts.do(t, http.MethodGet, tt.target, nil)
			wantError(t, rec, res, tt.status, tt.code)
		})
	}
}

func TestRecords_BadDateDetails(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})
	rec, res := ts.do(t, http.MethodGet, "/api/v1/records?from=yesterday", nil)
	wantError(t, rec, res, http.StatusBadRequest, CodeBadRequest)
	if res.Error != nil && (res.Error.Details["field"] != "From" || res.Error.Details["tag"] != "dateonly") {
		t.Errorf("details = %v", res.Error.Details)
	}
}

func TestRecords_DegradedWithoutArchive(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{})
	rec, res := ts.do(t, http.MethodGet, "/api/v1/records", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var page models.RecordsResponse
	decodeData(t, res, &page)
	if !page.Degraded || len(page.Records) != 6 {
		t.Errorf("degraded = %v with %d records", page.Degraded, len(page.Records))
	}

	rec, res = ts.do(t, http.MethodGet, "/api/v1/records?to=2025-12-31", nil)
	wantError(t, rec, res, http.StatusServiceUnavailable, "PARTITION_UNAVAILABLE")
	if res.Error != nil && res.Error.Details["partition"] != "archive" {
		t.Errorf("details = %v", res.Error.Details)
	}
}

func TestRecordsSummary(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})

	rec, res := ts.do(t, http.MethodGet, "/api/v1/records/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var sum models.Summary
	decodeData(t, res, &sum)
	if sum.RecordCount != 12 || sum.TotalProduced != 1200 || sum.RejectRate != 0.02 {
		t.Errorf("summary = %+v", sum)
	}

	rec, res = ts.do(t, http.MethodGet, "/api/v1/records/summary/lines?from=2025-12-31&to=2026-01-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var lines models.LineSummaries
	decodeData(t, res, &lines)
	if len(lines.Lines) != 2 || lines.Lines[0].Line != "L1" || lines.Lines[0].RecordCount != 2 {
		t.Errorf("lines = %+v", lines.Lines)
	}
	if len(lines.PartitionsUsed) != 2 {
		t.Errorf("partitions = %v", lines.PartitionsUsed)
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})

	rec, res := ts.do(t, http.MethodPost, "/api/v1/query", QueryRequest{
		SQL:  "SELECT line, COUNT(*) AS n FROM production_records WHERE shift = ? GROUP BY line ORDER BY line",
		Args: []interface{}{"A"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out models.AdhocResult
	decodeData(t, res, &out)
	if out.RowCount != 2 || !reflect.DeepEqual(out.Columns, []string{"line", "n"}) {
		t.Errorf("result = %+v", out)
	}
	if !strings.HasSuffix(out.SQL, "LIMIT 1000") {
		t.Errorf("sql = %q", out.SQL)
	}
}

func TestQuery_Rejections(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, serverOptions{withArchive: true})

	rec, res := ts.do(t, http.MethodPost, "/api/v1/query", QueryRequest{SQL: "SELECT 1 FROM production_records; DROP TABLE x"})
	wantError(t, rec, res, http.StatusBadRequest, "VALIDATION_ERROR")
	if res.Error != nil && (res.Error.Details["stage"] != "separator" || res.Error.Details["token"] != ";") {
		t.Errorf("details = %v", res.Error.Details)
	}

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty body", nil},
		{"not json", "SELECT 1"},
		{"unknown field", `{"sql": "SELECT 1 FROM production_records", "limit": 5}`},
		{"missing sql", `{"args": []}`},
		{"object arg", `{"sql": "SELECT * FROM production_records WHERE line = ?", "args": [{"x": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, res := ts.do(t, http.MethodPost, "/api/v1/query", tt.body)
			wantError(t, rec, res, http.StatusBadRequest, CodeBadRequest)
		})
	}
}

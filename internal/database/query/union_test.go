// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package query

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tomtom215/prodledger/internal/models"
)

var bothBranches = []Branch{
	{Schema: "main", Source: models.SourceLive},
	{Schema: "archive", Source: models.SourceArchive},
}

func TestBuildListing_Union(t *testing.T) {
	t.Parallel()

	l := BuildListing("production_records", bothBranches, "line = ?", []interface{}{"L1"}, nil, 51)

	wantSQL := "SELECT * FROM (" +
		"SELECT row_id, production_date, line, product_code, shift, quantity_produced, quantity_rejected, downtime_minutes, 'live' AS source_partition FROM main.production_records WHERE line = ?" +
		" UNION ALL " +
		"SELECT row_id, production_date, line, product_code, shift, quantity_produced, quantity_rejected, downtime_minutes, 'archive' AS source_partition FROM archive.production_records WHERE line = ?" +
		") ORDER BY production_date DESC, source_partition DESC, row_id DESC LIMIT ?"
	if l.SQL != wantSQL {
		t.Errorf("SQL =\n%s\nwant\n%s", l.SQL, wantSQL)
	}

	wantArgs := []interface{}{"L1", "L1", 51}
	if !reflect.DeepEqual(l.Args, wantArgs) {
		t.Errorf("Args = %v, want %v", l.Args, wantArgs)
	}
}

func TestBuildListing_Cursor(t *testing.T) {
	t.Parallel()

	after := &models.Cursor{Date: "2026-01-15", Source: models.SourceArchive, ID: 42}
	l := BuildListing("production_records", bothBranches[:1], "1=1", nil, after, 11)

	if !strings.Contains(l.SQL, ") WHERE "+cursorPredicate+" ORDER BY") {
		t.Errorf("cursor predicate missing or misplaced: %s", l.SQL)
	}
	wantArgs := []interface{}{
		"2026-01-15",
		"2026-01-15", "archive",
		"2026-01-15", "archive", int64(42),
		11,
	}
	if !reflect.DeepEqual(l.Args, wantArgs) {
		t.Errorf("Args = %v, want %v", l.Args, wantArgs)
	}
	if strings.Count(l.SQL, "?") != len(l.Args) {
		t.Errorf("placeholder count %d != arg count %d", strings.Count(l.SQL, "?"), len(l.Args))
	}
}

func TestBuildPartial(t *testing.T) {
	t.Parallel()

	plain := BuildPartial("main", "production_records", "1=1", false)
	if !strings.HasPrefix(plain, "SELECT COALESCE(SUM(quantity_produced), 0)") || strings.Contains(plain, "GROUP BY") {
		t.Errorf("unexpected plain partial: %s", plain)
	}

	grouped := BuildPartial("archive", "production_records", "shift = ?", true)
	if !strings.Contains(grouped, "FROM archive.production_records WHERE shift = ? GROUP BY COALESCE(line, '')") {
		t.Errorf("unexpected grouped partial: %s", grouped)
	}
}

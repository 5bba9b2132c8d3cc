// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package validation

import (
	"errors"
	"testing"

	"github.com/tomtom215/prodledger/internal/apperr"
)

func TestValidateSQL_Accepted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		sql           string
		wantText      string
		limitAppended bool
	}{
		{
			name:          "separator inside block comment is stripped",
			sql:           "/* ; */ SELECT 1 FROM production_records",
			wantText:      "SELECT 1 FROM production_records LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "bare select gains row cap",
			sql:           "SELECT * FROM production_records",
			wantText:      "SELECT * FROM production_records LIMIT 1000",
			limitAppended: true,
		},
		{
			name:     "existing limit kept",
			sql:      "select line, sum(quantity_produced) from production_records group by line limit 5",
			wantText: "select line, sum(quantity_produced) from production_records group by line limit 5",
		},
		{
			name:          "schema qualified union",
			sql:           "SELECT row_id FROM main.production_records UNION ALL SELECT row_id FROM archive.production_records",
			wantText:      "SELECT row_id FROM main.production_records UNION ALL SELECT row_id FROM archive.production_records LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "subquery limit does not count",
			sql:           "SELECT * FROM (SELECT * FROM production_records LIMIT 10) AS t",
			wantText:      "SELECT * FROM (SELECT * FROM production_records LIMIT 10) AS t LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "line comment removed",
			sql:           "SELECT count(*) FROM production_records -- all rows",
			wantText:      "SELECT count(*) FROM production_records LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "comment markers inside literal survive",
			sql:           "SELECT * FROM production_records WHERE product_code = 'A--1/*x*/'",
			wantText:      "SELECT * FROM production_records WHERE product_code = 'A--1/*x*/' LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "self join with aliases",
			sql:           "SELECT a.row_id FROM live.production_records a JOIN archive.production_records b ON a.product_code = b.product_code",
			wantText:      "SELECT a.row_id FROM live.production_records a JOIN archive.production_records b ON a.product_code = b.product_code LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "parenthesized join group",
			sql:           "SELECT a.line FROM (production_records a JOIN archive.production_records b ON a.row_id = b.row_id), production_records c WHERE c.line = a.line",
			wantText:      "SELECT a.line FROM (production_records a JOIN archive.production_records b ON a.row_id = b.row_id), production_records c WHERE c.line = a.line LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "left join with using",
			sql:           "SELECT * FROM production_records a LEFT OUTER JOIN archive.production_records b USING (row_id) ORDER BY a.row_id",
			wantText:      "SELECT * FROM production_records a LEFT OUTER JOIN archive.production_records b USING (row_id) ORDER BY a.row_id LIMIT 1000",
			limitAppended: true,
		},
		{
			name:          "comma list in from",
			sql:           "SELECT 1 FROM production_records p, archive.production_records q WHERE p.row_id = q.row_id",
			wantText:      "SELECT 1 FROM production_records p, archive.production_records q WHERE p.row_id = q.row_id LIMIT 1000",
			limitAppended: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			safe, err := ValidateSQL(tt.sql)
			if err != nil {
				t.Fatalf("ValidateSQL() error = %v", err)
			}

			if safe.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", safe.Text, tt.wantText)
			}
			if safe.LimitAppended != tt.limitAppended {
				t.Errorf("LimitAppended = %v, want %v", safe.LimitAppended, tt.limitAppended)
			}
			if len(safe.Tables) == 0 {
				t.Error("expected at least one table reference")
			}
		})
	}
}

func TestValidateSQL_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sql       string
		wantStage string
	}{
		{"stacked statement", "SELECT 1; DROP TABLE x", StageSeparator},
		{"trailing separator", "SELECT * FROM production_records;", StageSeparator},
		{"separator in literal", "SELECT * FROM production_records WHERE line = ';'", StageSeparator},
		{"delete behind comment", "/* */ DELETE FROM production_records", StageStatementKind},
		{"with clause", "WITH x AS (SELECT 1) SELECT * FROM x", StageStatementKind},
		{"empty after comments", "-- nothing", StageStatementKind},
		{"unterminated block comment", "SELECT 1 /* FROM production_records", StageComments},
		{"unterminated quote", "SELECT * FROM production_records WHERE line = 'L1", StageComments},
		{"deny keyword in subquery", "SELECT * FROM production_records WHERE row_id IN (SELECT 1 FROM production_records WHERE 1 = (DELETE))", StageDenyList},
		{"pragma function", "SELECT * FROM production_records WHERE PRAGMA", StageDenyList},
		{"other table", "SELECT * FROM other_table", StageAllowList},
		{"other table in join", "SELECT * FROM production_records JOIN users ON 1 = 1", StageAllowList},
		{"other table in comma list", "SELECT * FROM production_records, sqlite_master", StageAllowList},
		{"other table in subquery", "SELECT * FROM (SELECT * FROM sqlite_master)", StageAllowList},
		{"unknown schema", "SELECT * FROM temp.production_records", StageAllowList},
		{"table valued function", "SELECT * FROM production_records(1)", StageAllowList},
		{"no table", "SELECT 1", StageAllowList},
		{"comma after join constraint", "SELECT name, sql FROM production_records a JOIN production_records b ON 1=1, sqlite_master", StageAllowList},
		{"comma after join", "SELECT * FROM production_records a JOIN production_records b, pragma_database_list", StageAllowList},
		{"parenthesized table", "SELECT name FROM (sqlite_master), production_records", StageAllowList},
		{"table inside join group", "SELECT * FROM (production_records a JOIN sqlite_master b ON 1 = 1)", StageAllowList},
		{"table after using list", "SELECT * FROM production_records a JOIN production_records b USING (line), sqlite_master", StageAllowList},
		{"in table expression", "SELECT * FROM production_records WHERE 'main' IN pragma_database_list", StageAllowList},
		{"unclosed table group", "SELECT * FROM (production_records", StageAllowList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ValidateSQL(tt.sql)
			if err == nil {
				t.Fatalf("ValidateSQL(%q) expected rejection", tt.sql)
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}

			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *apperr.Error, got %T", err)
			}
			if appErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q (reason: %s)", appErr.Stage, tt.wantStage, appErr.Reason)
			}
		})
	}
}

func TestValidateSQL_StagesRunInOrder(t *testing.T) {
	t.Parallel()

	// Fails both separator and statement kind; separator runs first.
	_, err := ValidateSQL("DROP TABLE production_records; SELECT 1")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Stage != StageSeparator {
		t.Fatalf("expected separator rejection, got %v", err)
	}

	// Fails statement kind and deny list; statement kind runs first.
	_, err = ValidateSQL("UPDATE production_records SET line = 'x'")
	if !errors.As(err, &appErr) || appErr.Stage != StageStatementKind {
		t.Fatalf("expected statement_kind rejection, got %v", err)
	}
}

func TestSQLGuard_CustomTableAndCap(t *testing.T) {
	t.Parallel()

	g := NewSQLGuard("Shift_Log", 25)

	safe, err := g.Validate("SELECT * FROM shift_log")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if safe.Text != "SELECT * FROM shift_log LIMIT 25" {
		t.Errorf("Text = %q", safe.Text)
	}

	if _, err := g.Validate("SELECT * FROM production_records"); err == nil {
		t.Error("expected production_records to be rejected by a shift_log guard")
	}
}

func TestStripComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "SELECT 1", want: "SELECT 1"},
		{in: "SELECT/**/1", want: "SELECT 1"},
		{in: "SELECT 1 -- tail", want: "SELECT 1  "},
		{in: "SELECT '--' AS x", want: "SELECT '--' AS x"},
		{in: `SELECT "a/*b" FROM t`, want: `SELECT "a/*b" FROM t`},
		{in: "SELECT 'it''s'", want: "SELECT 'it''s'"},
		{in: "SELECT /* open", wantErr: true},
		{in: "SELECT 'open", wantErr: true},
	}

	for _, tt := range tests {
		got, err := StripComments(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("StripComments(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("StripComments(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("StripComments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

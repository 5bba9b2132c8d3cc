// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package query

import (
	"reflect"
	"testing"
	"time"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}
	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_AddDateRange(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	whereClause, args := NewWhereBuilder().AddDateRange(&from, &to).Build()

	if expected := "production_date >= ? AND production_date < ?"; whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	want := []interface{}{"2025-01-01", "2026-01-01"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestWhereBuilder_NilBoundsSkipped(t *testing.T) {
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	whereClause, args := NewWhereBuilder().AddDateRange(nil, &to).Build()
	if whereClause != "production_date < ?" {
		t.Errorf("got %q", whereClause)
	}
	if len(args) != 1 || args[0] != "2026-03-01" {
		t.Errorf("args = %v", args)
	}
}

func TestWhereBuilder_Fragments(t *testing.T) {
	tests := []struct {
		name      string
		build     func(wb *WhereBuilder)
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "line",
			build:     func(wb *WhereBuilder) { wb.AddLine("L1") },
			wantWhere: "line = ?",
			wantArgs:  []interface{}{"L1"},
		},
		{
			name:      "empty equals skipped",
			build:     func(wb *WhereBuilder) { wb.AddLine("").AddProductCode("").AddShift("") },
			wantWhere: "1=1",
			wantArgs:  []interface{}{},
		},
		{
			name:      "lines in list",
			build:     func(wb *WhereBuilder) { wb.AddLines([]string{"L1", "L2", "L3"}) },
			wantWhere: "line IN (?, ?, ?)",
			wantArgs:  []interface{}{"L1", "L2", "L3"},
		},
		{
			name: "combined",
			build: func(wb *WhereBuilder) {
				wb.AddProductCode("P-9").AddShift("night")
			},
			wantWhere: "product_code = ? AND shift = ?",
			wantArgs:  []interface{}{"P-9", "night"},
		},
		{
			name:      "hostile value stays an argument",
			build:     func(wb *WhereBuilder) { wb.AddLine("x' OR '1'='1") },
			wantWhere: "line = ?",
			wantArgs:  []interface{}{"x' OR '1'='1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			tt.build(wb)
			gotWhere, gotArgs := wb.Build()
			if gotWhere != tt.wantWhere {
				t.Errorf("where = %q, want %q", gotWhere, tt.wantWhere)
			}
			if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("args = %v, want %v", gotArgs, tt.wantArgs)
			}
		})
	}
}

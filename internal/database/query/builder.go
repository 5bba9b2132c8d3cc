// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package query

import (
	"strings"
	"time"
)

// WhereBuilder constructs parameterized WHERE clauses over production_records
// from a fixed set of predicate fragments. Caller values only ever become
// bind arguments; the clause text is assembled from constants.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddDateRange(from, to)
//	wb.AddLines([]string{"L1", "L2"})
//	whereClause, args := wb.Build()
//	// production_date >= ? AND production_date < ? AND line IN (?, ?)
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddDateFrom adds "production_date >= ?" for the calendar date of from.
func (wb *WhereBuilder) AddDateFrom(from time.Time) *WhereBuilder {
	wb.clauses = append(wb.clauses, "production_date >= ?")
	wb.args = append(wb.args, from.Format(time.DateOnly))
	return wb
}

// AddDateBefore adds the exclusive upper bound "production_date < ?".
func (wb *WhereBuilder) AddDateBefore(before time.Time) *WhereBuilder {
	wb.clauses = append(wb.clauses, "production_date < ?")
	wb.args = append(wb.args, before.Format(time.DateOnly))
	return wb
}

// AddDateRange adds an inclusive [from, to] date range, normalized to
// [from, to+1day). Nil bounds are skipped.
func (wb *WhereBuilder) AddDateRange(from, to *time.Time) *WhereBuilder {
	if from != nil {
		wb.AddDateFrom(*from)
	}
	if to != nil {
		wb.AddDateBefore(to.AddDate(0, 0, 1))
	}
	return wb
}

// AddLine adds "line = ?". Empty values are skipped.
func (wb *WhereBuilder) AddLine(line string) *WhereBuilder {
	return wb.addEquals("line = ?", line)
}

// AddProductCode adds "product_code = ?". Empty values are skipped.
func (wb *WhereBuilder) AddProductCode(code string) *WhereBuilder {
	return wb.addEquals("product_code = ?", code)
}

// AddShift adds "shift = ?". Empty values are skipped.
func (wb *WhereBuilder) AddShift(shift string) *WhereBuilder {
	return wb.addEquals("shift = ?", shift)
}

// AddLines adds "line IN (?, ?, ...)". An empty slice is skipped.
func (wb *WhereBuilder) AddLines(lines []string) *WhereBuilder {
	if len(lines) == 0 {
		return wb
	}
	placeholders := make([]string, len(lines))
	for i, line := range lines {
		placeholders[i] = "?"
		wb.args = append(wb.args, line)
	}
	wb.clauses = append(wb.clauses, "line IN ("+strings.Join(placeholders, ", ")+")")
	return wb
}

func (wb *WhereBuilder) addEquals(clause, value string) *WhereBuilder {
	if value == "" {
		return wb
	}
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, value)
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

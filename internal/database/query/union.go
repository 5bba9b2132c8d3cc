// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package query

import (
	"fmt"
	"strings"

	"github.com/tomtom215/prodledger/internal/models"
)

// recordColumns are selected from every branch, in scan order.
const recordColumns = "row_id, production_date, line, product_code, shift, quantity_produced, quantity_rejected, downtime_minutes"

// OrderBy is the single total order of every listing.
const OrderBy = "production_date DESC, source_partition DESC, row_id DESC"

// cursorPredicate continues strictly after a (date, source, id) position in OrderBy.
const cursorPredicate = "(production_date < ? OR (production_date = ? AND source_partition < ?) OR (production_date = ? AND source_partition = ? AND row_id < ?))"

// Branch is one partition's SELECT in a union.
type Branch struct {
	// Schema qualifies the table: "main" for the connection's own file,
	// "archive" for the attached archive.
	Schema string

	// Source is the literal emitted as source_partition.
	Source string
}

// Listing is a built listing statement.
type Listing struct {
	SQL  string
	Args []interface{}
}

// BuildListing assembles one statement over branches:
//
//	SELECT * FROM (<branch> UNION ALL <branch>) WHERE <cursor> ORDER BY ... LIMIT ?
//
// The where clause and its args are repeated for each branch. after may be nil
// for the first page. fetch is the LIMIT bound, normally page size + 1.
func BuildListing(table string, branches []Branch, where string, whereArgs []interface{}, after *models.Cursor, fetch int) Listing {
	parts := make([]string, len(branches))
	args := make([]interface{}, 0, len(branches)*len(whereArgs)+7)
	for i, b := range branches {
		parts[i] = fmt.Sprintf("SELECT %s, '%s' AS source_partition FROM %s.%s WHERE %s",
			recordColumns, b.Source, b.Schema, table, where)
		args = append(args, whereArgs...)
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM (")
	sb.WriteString(strings.Join(parts, " UNION ALL "))
	sb.WriteString(")")
	if after != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(cursorPredicate)
		args = append(args,
			after.Date,
			after.Date, after.Source,
			after.Date, after.Source, after.ID,
		)
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(OrderBy)
	sb.WriteString(" LIMIT ?")
	args = append(args, fetch)

	return Listing{SQL: sb.String(), Args: args}
}

// BuildPartial returns the per-partition pre-aggregate over schema.table.
// With byLine the partials are grouped by line, which becomes the first column.
//
// Columns: [line,] SUM(quantity_produced), SUM(quantity_rejected),
// SUM(downtime_minutes), COUNT(*), MIN(production_date), MAX(production_date).
func BuildPartial(schema, table, where string, byLine bool) string {
	aggregates := "COALESCE(SUM(quantity_produced), 0), COALESCE(SUM(quantity_rejected), 0), " +
		"COALESCE(SUM(downtime_minutes), 0), COUNT(*), MIN(production_date), MAX(production_date)"

	if byLine {
		return fmt.Sprintf("SELECT COALESCE(line, ''), %s FROM %s.%s WHERE %s GROUP BY COALESCE(line, '')",
			aggregates, schema, table, where)
	}
	return fmt.Sprintf("SELECT %s FROM %s.%s WHERE %s", aggregates, schema, table, where)
}

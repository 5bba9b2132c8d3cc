// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package query builds the parameterized SQL used by the database package.
//
// WhereBuilder assembles filters from a fixed set of fragments (date from,
// date before, line, product code, shift, line list). BuildListing wraps one
// SELECT per partition in a UNION ALL with the keyset continuation and the
// total order:
//
//	production_date DESC, source_partition DESC, row_id DESC
//
// BuildPartial produces the per-partition pre-aggregate that the caller merges.
//
// No caller value is ever formatted into SQL text. Schema, table and source
// literals come from the database package's own constants and validated config.
package query

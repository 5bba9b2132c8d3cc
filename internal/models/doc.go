// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package models defines the data structures shared by the query core and the API.

Key Components:

  - ProductionRecord: one row of production_records tagged with its source partition
  - RecordFilter: enumerated filter dimensions (date range, line, product, shift)
  - Cursor: keyset position (production_date, source_partition, row_id)
  - RecordPage, Summary, LineSummary, AdhocResult: core results
  - APIResponse, APIError, Metadata, PaginationInfo: HTTP envelope

Models carry no behaviour beyond JSON tags; encoding of cursors and SQL lives in
the database package.
*/
package models

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package models

import (
	"time"
)

// Partition source tags carried by every returned row.
const (
	SourceLive    = "live"
	SourceArchive = "archive"
)

// ProductionRecord is one row of production_records as returned by the query core.
//
// SourcePartition is not stored in either file; it is added by the union query so the
// (production_date, source_partition, row_id) sort key is total even when row_ids
// collide across partitions.
type ProductionRecord struct {
	RowID            int64   `json:"row_id"`
	ProductionDate   string  `json:"production_date"` // YYYY-MM-DD
	Line             string  `json:"line"`
	ProductCode      string  `json:"product_code"`
	Shift            string  `json:"shift"`
	QuantityProduced float64 `json:"quantity_produced"`
	QuantityRejected float64 `json:"quantity_rejected"`
	DowntimeMinutes  float64 `json:"downtime_minutes"`
	SourcePartition  string  `json:"source_partition"`
}

// RecordFilter holds the enumerated filter dimensions for record queries.
//
// From and To are inclusive calendar dates (UTC midnight). Nil means unbounded.
// Line and Lines combine with AND; callers normally set one of them.
type RecordFilter struct {
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Line        string     `json:"line,omitempty"`
	Lines       []string   `json:"lines,omitempty"`
	ProductCode string     `json:"product_code,omitempty"`
	Shift       string     `json:"shift,omitempty"`
}

// Cursor is the decoded keyset position of the last row of a page.
// Wire format: base64url of {"date":"YYYY-MM-DD","source":"live|archive","id":N}.
type Cursor struct {
	Date   string `json:"date"`
	Source string `json:"source"`
	ID     int64  `json:"id"`
}

// RecordPage is one page of a keyset-paginated listing.
type RecordPage struct {
	Records        []ProductionRecord `json:"records"`
	NextCursor     string             `json:"next_cursor,omitempty"`
	HasMore        bool               `json:"has_more"`
	Limit          int                `json:"limit"` // page size after defaults and clamping
	PartitionsUsed []string           `json:"partitions_used"`
	Degraded       bool               `json:"degraded,omitempty"`
}

// Summary is the merged aggregate over the selected partitions.
// Averages are derived after partial sums from each partition are merged.
type Summary struct {
	RecordCount    int64    `json:"record_count"`
	TotalProduced  float64  `json:"total_produced"`
	TotalRejected  float64  `json:"total_rejected"`
	TotalDowntime  float64  `json:"total_downtime_minutes"`
	AvgProduced    float64  `json:"avg_produced"`
	AvgDowntime    float64  `json:"avg_downtime_minutes"`
	RejectRate     float64  `json:"reject_rate"` // rejected / produced, 0 when nothing produced
	FirstDate      string   `json:"first_date,omitempty"`
	LastDate       string   `json:"last_date,omitempty"`
	PartitionsUsed []string `json:"partitions_used"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// LineSummary is a Summary grouped by production line.
type LineSummary struct {
	Line          string  `json:"line"`
	RecordCount   int64   `json:"record_count"`
	TotalProduced float64 `json:"total_produced"`
	TotalRejected float64 `json:"total_rejected"`
	TotalDowntime float64 `json:"total_downtime_minutes"`
	AvgProduced   float64 `json:"avg_produced"`
	AvgDowntime   float64 `json:"avg_downtime_minutes"`
	RejectRate    float64 `json:"reject_rate"`
	FirstDate     string  `json:"first_date,omitempty"`
	LastDate      string  `json:"last_date,omitempty"`
}

// LineSummaries wraps grouped summaries with the partitions that produced them.
type LineSummaries struct {
	Lines          []LineSummary `json:"lines"`
	PartitionsUsed []string      `json:"partitions_used"`
	Degraded       bool          `json:"degraded,omitempty"`
}

// AdhocResult is the tabular result of a validated ad-hoc statement.
type AdhocResult struct {
	SQL      string   `json:"sql"` // statement actually executed, LIMIT included
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

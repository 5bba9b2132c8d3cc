// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/prodledger/internal/models"
	"github.com/tomtom215/prodledger/internal/validation"
)

// Records handles GET /api/v1/records.
//
// Query parameters: from, to (YYYY-MM-DD, inclusive), line, lines (comma
// separated), product_code, shift, cursor, limit. Pass the returned
// pagination.next_cursor back unchanged to fetch the next page.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := parseRecordsRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := req.Filter()
	if err != nil {
		writeError(w, r, err)
		return
	}

	version := h.store.DataVersion()
	page, err := h.store.ListRecords(r.Context(), filter, req.Cursor, req.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pagination := models.PaginationInfo{
		Limit:   page.Limit,
		HasMore: page.HasMore,
	}
	if page.NextCursor != "" {
		next := page.NextCursor
		pagination.NextCursor = &next
	}

	respondSuccess(w, http.StatusOK, models.RecordsResponse{
		Records:        page.Records,
		Pagination:     pagination,
		PartitionsUsed: page.PartitionsUsed,
		Degraded:       page.Degraded,
	}, models.Metadata{QueryTimeMS: elapsedMS(start), DataVersion: version})
}

// RecordsSummary handles GET /api/v1/records/summary.
func (h *Handler) RecordsSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter, ok := h.summaryFilter(w, r)
	if !ok {
		return
	}

	version := h.store.DataVersion()
	sum, err := h.store.Summarize(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, sum, models.Metadata{QueryTimeMS: elapsedMS(start), DataVersion: version})
}

// RecordsSummaryLines handles GET /api/v1/records/summary/lines.
func (h *Handler) RecordsSummaryLines(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter, ok := h.summaryFilter(w, r)
	if !ok {
		return
	}

	version := h.store.DataVersion()
	res, err := h.store.SummarizeByLine(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, res, models.Metadata{QueryTimeMS: elapsedMS(start), DataVersion: version})
}

// summaryFilter parses the filter of a summary endpoint. Paging parameters
// make no sense there and are rejected.
func (h *Handler) summaryFilter(w http.ResponseWriter, r *http.Request) (models.RecordFilter, bool) {
	req, err := parseRecordsRequest(r)
	if err == nil && (req.Cursor != "" || req.Limit != 0) {
		err = newBadRequest("cursor and limit are not accepted by summary endpoints")
	}
	if err != nil {
		writeError(w, r, err)
		return models.RecordFilter{}, false
	}

	filter, err := req.Filter()
	if err != nil {
		writeError(w, r, err)
		return models.RecordFilter{}, false
	}
	return filter, true
}

// Query handles POST /api/v1/query: caller-supplied SQL run after the safety
// validator accepts it.
//
// Request body:
//
//	{"sql": "SELECT line, SUM(quantity_produced) FROM production_records WHERE shift = ? GROUP BY line", "args": ["A"]}
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req QueryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, newBadRequest(err.Error()))
		return
	}
	if reqErr := validation.ValidateStruct(&req); reqErr != nil {
		writeError(w, r, reqErr)
		return
	}
	if err := req.checkArgs(); err != nil {
		writeError(w, r, err)
		return
	}

	version := h.store.DataVersion()
	res, err := h.store.ExecuteValidatedQuery(r.Context(), req.SQL, req.Args...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, res, models.Metadata{QueryTimeMS: elapsedMS(start), DataVersion: version})
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/validation"
)

func TestToAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"partition unavailable", apperr.PartitionUnavailable("archive", nil), http.StatusServiceUnavailable, "PARTITION_UNAVAILABLE"},
		{"connection", apperr.Connection("live", errors.New("disk")), http.StatusServiceUnavailable, "CONNECTION_ERROR"},
		{"wrapped cursor", fmt.Errorf("list: %w", apperr.InvalidCursor("bad", nil)), http.StatusBadRequest, "INVALID_CURSOR"},
		{"validator", apperr.Rejected("deny_list", "PRAGMA", "keyword PRAGMA is not allowed"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"rate limited", apperr.RateLimited("ai", 7), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"timeout", apperr.QueryTimeout(context.DeadlineExceeded), http.StatusGatewayTimeout, "QUERY_TIMEOUT"},
		{"request fields", &validation.RequestError{Fields: []validation.FieldError{{Field: "From", Tag: "dateonly", Message: "bad"}}}, http.StatusBadRequest, CodeBadRequest},
		{"bad request", newBadRequest("nope"), http.StatusBadRequest, CodeBadRequest},
		{"canceled", context.Canceled, http.StatusServiceUnavailable, CodeCanceled},
		{"plain", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, apiErr := toAPIError(tt.err)
			if status != tt.wantStatus || apiErr.Code != tt.wantCode {
				t.Errorf("toAPIError() = %d %s, want %d %s", status, apiErr.Code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestToAPIError_HidesCause(t *testing.T) {
	t.Parallel()

	_, apiErr := toAPIError(apperr.Connection("live", errors.New("/secret/path/live.db: disk I/O error")))
	if apiErr.Message != "database connection failed" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	for k, v := range apiErr.Details {
		if s, ok := v.(string); ok && s == "/secret/path/live.db: disk I/O error" {
			t.Errorf("cause leaked in details[%s]", k)
		}
	}
}

func TestWriteError_RetryAfter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil), apperr.RateLimited("data", 42))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Errorf("Retry-After = %q, want 42", got)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("a\nb\tc\x7f"); got != `a\x0ab\x09c\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}

func TestParseCommaSeparated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{" , ,", 0},
		{"L1", 1},
		{"L1, L2 ,,L3", 3},
	}
	for _, tt := range tests {
		if got := parseCommaSeparated(tt.in); len(got) != tt.want {
			t.Errorf("parseCommaSeparated(%q) = %v", tt.in, got)
		}
	}
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/models"
)

// wireCursor uses pointers so a missing field is distinguishable from a zero value.
type wireCursor struct {
	Date   *string `json:"date"`
	Source *string `json:"source"`
	ID     *int64  `json:"id"`
}

// EncodeCursor returns the opaque continuation token for c.
func EncodeCursor(c models.Cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		// Cursor has only string and int fields; Marshal cannot fail.
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// CursorFromRecord returns the cursor positioned at r.
func CursorFromRecord(r models.ProductionRecord) models.Cursor {
	return models.Cursor{Date: r.ProductionDate, Source: r.SourcePartition, ID: r.RowID}
}

// DecodeCursor parses a continuation token. Any malformed token yields an
// InvalidCursor error; there is no fallback to the first page.
func DecodeCursor(s string) (models.Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		// Accept padded tokens from clients that re-encode.
		data, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return models.Cursor{}, apperr.InvalidCursor("not base64url", err)
		}
	}

	var w wireCursor
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Cursor{}, apperr.InvalidCursor("not a JSON object", err)
	}
	if w.Date == nil || w.Source == nil || w.ID == nil {
		return models.Cursor{}, apperr.InvalidCursor("missing date, source or id", nil)
	}
	if _, err := time.Parse(time.DateOnly, *w.Date); err != nil {
		return models.Cursor{}, apperr.InvalidCursor("date is not YYYY-MM-DD", err)
	}
	if *w.Source != models.SourceLive && *w.Source != models.SourceArchive {
		return models.Cursor{}, apperr.InvalidCursor("source must be live or archive", nil)
	}

	return models.Cursor{Date: *w.Date, Source: *w.Source, ID: *w.ID}, nil
}

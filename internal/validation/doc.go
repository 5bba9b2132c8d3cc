// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package validation guards everything a caller can send.
//
// Two validators live here:
//
//   - SQLGuard, the five-stage safety validator for ad-hoc read-only SQL
//   - ValidateStruct, go-playground/validator v10 over request structs
//
// # SQL Safety Stages
//
// Stages run in order and each is a hard gate:
//
//  1. comments: strip -- and /* */ outside quoted text; unterminated comments or quotes reject
//  2. separator: any ";" rejects (no stacked statements)
//  3. statement_kind: the first token must be SELECT
//  4. deny_list: INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, REPLACE, ATTACH,
//     DETACH, PRAGMA, VACUUM, REINDEX and TRUNCATE reject anywhere, subqueries included
//  5. allow_list: every FROM/JOIN reference must be the sanctioned table,
//     optionally qualified by main, live or archive
//
// A statement with no top-level LIMIT gets " LIMIT <rowCap>" appended.
// Rejections are *apperr.Error values with Stage and Token set:
//
//	safe, err := validation.ValidateSQL(raw)
//	var appErr *apperr.Error
//	if errors.As(err, &appErr) {
//	    log.Printf("rejected at %s near %q", appErr.Stage, appErr.Token)
//	}
//
// The guard is conservative: a keyword inside a string literal still trips
// the deny-list.
//
// # Request Validation
//
//	type RecordsRequest struct {
//	    From  string `validate:"omitempty,dateonly"`
//	    Limit int    `validate:"omitempty,gte=1,lte=1000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, "BAD_REQUEST", verr.Error(), verr.Details())
//	}
//
// Custom tags: dateonly (YYYY-MM-DD) and sessionid.
package validation

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package apperr defines the error taxonomy shared by the query core and the API layer.
//
// Every failure surfaced to a caller carries a Kind with a stable code and message,
// so callers can branch on the kind (for example retrying on RateLimitExceeded)
// without matching on error strings:
//
//	if errors.Is(err, apperr.ErrRateLimited) {
//	    var e *apperr.Error
//	    errors.As(err, &e)
//	    time.Sleep(time.Duration(e.RetryAfter) * time.Second)
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	// KindPartitionUnavailable means a partition file is absent. Recovered locally when optional.
	KindPartitionUnavailable Kind = iota + 1

	// KindConnection means the database could not be opened after bounded retries.
	KindConnection

	// KindInvalidCursor means a pagination cursor could not be decoded.
	KindInvalidCursor

	// KindValidation means the SQL safety validator rejected a statement.
	KindValidation

	// KindRateLimited means the caller exceeded its sliding-window budget.
	KindRateLimited

	// KindQueryTimeout means an ad-hoc statement exceeded its wall-clock budget.
	KindQueryTimeout
)

type kindInfo struct {
	code    string
	message string
	status  int
}

var kinds = map[Kind]kindInfo{
	KindPartitionUnavailable: {"PARTITION_UNAVAILABLE", "partition unavailable", http.StatusServiceUnavailable},
	KindConnection:           {"CONNECTION_ERROR", "database connection failed", http.StatusServiceUnavailable},
	KindInvalidCursor:        {"INVALID_CURSOR", "invalid pagination cursor", http.StatusBadRequest},
	KindValidation:           {"VALIDATION_ERROR", "query rejected by safety validator", http.StatusBadRequest},
	KindRateLimited:          {"RATE_LIMIT_EXCEEDED", "rate limit exceeded", http.StatusTooManyRequests},
	KindQueryTimeout:         {"QUERY_TIMEOUT", "query timed out", http.StatusGatewayTimeout},
}

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return "INTERNAL_ERROR"
}

// Message returns the stable user-facing message for the kind.
func (k Kind) Message() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return "internal error"
}

// HTTPStatus returns the HTTP status the API layer uses for the kind.
func (k Kind) HTTPStatus() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	return k.Code()
}

// Error is the structured error type returned by the query core.
type Error struct {
	Kind Kind

	// Reason is the detail shown to the caller alongside the stable message,
	// e.g. the validator stage and offending token.
	Reason string

	// Partition names the partition involved, if any.
	Partition string

	// Stage and Token identify where the SQL safety validator stopped.
	Stage string
	Token string

	// RetryAfter is the number of seconds until a rate-limited caller may retry.
	RetryAfter int

	Cause error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	msg := e.Kind.Message()
	if e.Partition != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Partition)
	}
	if e.Reason != "" {
		msg = msg + ": " + e.Reason
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is matching by kind.
var (
	ErrPartitionUnavailable = &Error{Kind: KindPartitionUnavailable}
	ErrConnection           = &Error{Kind: KindConnection}
	ErrInvalidCursor        = &Error{Kind: KindInvalidCursor}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrQueryTimeout         = &Error{Kind: KindQueryTimeout}
)

// PartitionUnavailable returns an error for a missing partition file.
func PartitionUnavailable(partition string, cause error) *Error {
	return &Error{Kind: KindPartitionUnavailable, Partition: partition, Cause: cause}
}

// Connection returns an error for a failed open or query.
func Connection(partition string, cause error) *Error {
	return &Error{Kind: KindConnection, Partition: partition, Cause: cause}
}

// InvalidCursor returns an error for an undecodable cursor.
func InvalidCursor(reason string, cause error) *Error {
	return &Error{Kind: KindInvalidCursor, Reason: reason, Cause: cause}
}

// Validation returns a validator rejection.
func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// Rejected returns a validator rejection naming the failed stage and offending token.
func Rejected(stage, token, reason string) *Error {
	return &Error{
		Kind:   KindValidation,
		Stage:  stage,
		Token:  token,
		Reason: fmt.Sprintf("%s stage: %s", stage, reason),
	}
}

// RateLimited returns a rejection carrying a retry-after hint in seconds.
func RateLimited(limiter string, retryAfter int) *Error {
	return &Error{Kind: KindRateLimited, Reason: limiter, RetryAfter: retryAfter}
}

// QueryTimeout returns an error for a statement that exceeded its budget.
func QueryTimeout(cause error) *Error {
	return &Error{Kind: KindQueryTimeout, Cause: cause}
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/prodledger/internal/apperr"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/models"
	"github.com/tomtom215/prodledger/internal/validation"
)

// Request-level error codes. Query core codes come from apperr.Kind.Code.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeCanceled         = "REQUEST_CANCELED"
	CodeInternal         = "INTERNAL_ERROR"
)

// badRequest is a malformed parameter the handler caught before the core.
type badRequest struct {
	msg     string
	details map[string]interface{}
}

func (e *badRequest) Error() string { return e.msg }

func newBadRequest(msg string) error {
	return &badRequest{msg: msg}
}

// writeError maps err to an APIError and status and writes it.
// Rate-limit rejections also get a Retry-After header.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := toAPIError(err)

	if status == http.StatusTooManyRequests {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
		}
	}

	event := logging.Ctx(r.Context()).Debug()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Error()
	}
	event.
		Str("code", apiErr.Code).
		Int("status", status).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Str("error", sanitizeLogValue(err.Error())).
		Msg("API Error")

	respondError(w, status, apiErr)
}

// toAPIError returns the status and body for err.
func toAPIError(err error) (int, *models.APIError) {
	var (
		appErr *apperr.Error
		reqErr *validation.RequestError
		badReq *badRequest
	)

	switch {
	case errors.As(err, &appErr):
		return appErr.Kind.HTTPStatus(), &models.APIError{
			Code:    appErr.Kind.Code(),
			Message: appErr.Kind.Message(),
			Details: appErrDetails(appErr),
		}

	case errors.As(err, &reqErr):
		return http.StatusBadRequest, &models.APIError{
			Code:    CodeBadRequest,
			Message: reqErr.Error(),
			Details: reqErr.Details(),
		}

	case errors.As(err, &badReq):
		return http.StatusBadRequest, &models.APIError{
			Code:    CodeBadRequest,
			Message: badReq.msg,
			Details: badReq.details,
		}

	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, &models.APIError{
			Code:    CodeCanceled,
			Message: "request canceled",
		}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &models.APIError{
			Code:    apperr.KindQueryTimeout.Code(),
			Message: apperr.KindQueryTimeout.Message(),
		}

	default:
		return http.StatusInternalServerError, &models.APIError{
			Code:    CodeInternal,
			Message: "internal server error",
		}
	}
}

// appErrDetails exposes the caller-relevant fields of a core error. The
// underlying cause stays in the logs.
func appErrDetails(e *apperr.Error) map[string]interface{} {
	details := make(map[string]interface{})
	if e.Reason != "" {
		details["reason"] = e.Reason
	}
	if e.Partition != "" {
		details["partition"] = e.Partition
	}
	if e.Stage != "" {
		details["stage"] = e.Stage
	}
	if e.Token != "" {
		details["token"] = e.Token
	}
	if e.RetryAfter > 0 {
		details["retry_after_seconds"] = e.RetryAfter
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

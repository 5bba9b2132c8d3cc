// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/prodledger/internal/models"
	"github.com/tomtom215/prodledger/internal/validation"
)

// RecordsRequest holds the query parameters shared by the record endpoints.
type RecordsRequest struct {
	From        string   `validate:"omitempty,dateonly"`
	To          string   `validate:"omitempty,dateonly"`
	Line        string   `validate:"omitempty,max=64"`
	Lines       []string `validate:"omitempty,max=32,dive,min=1,max=64"`
	ProductCode string   `validate:"omitempty,max=64"`
	Shift       string   `validate:"omitempty,max=16"`
	Cursor      string   `validate:"omitempty,max=512"`
	Limit       int      `validate:"gte=0"`
}

// parseRecordsRequest reads and validates the record query parameters.
func parseRecordsRequest(r *http.Request) (RecordsRequest, error) {
	q := r.URL.Query()

	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		return RecordsRequest{}, newBadRequest(err.Error())
	}

	req := RecordsRequest{
		From:        q.Get("from"),
		To:          q.Get("to"),
		Line:        q.Get("line"),
		Lines:       parseCommaSeparated(q.Get("lines")),
		ProductCode: q.Get("product_code"),
		Shift:       q.Get("shift"),
		Cursor:      q.Get("cursor"),
		Limit:       limit,
	}
	if reqErr := validation.ValidateStruct(&req); reqErr != nil {
		return RecordsRequest{}, reqErr
	}
	return req, nil
}

// Filter converts the request to a RecordFilter. Dates are already validated.
func (req RecordsRequest) Filter() (models.RecordFilter, error) {
	f := models.RecordFilter{
		Line:        req.Line,
		Lines:       req.Lines,
		ProductCode: req.ProductCode,
		Shift:       req.Shift,
	}

	var err error
	if f.From, err = parseDate("from", req.From); err != nil {
		return models.RecordFilter{}, err
	}
	if f.To, err = parseDate("to", req.To); err != nil {
		return models.RecordFilter{}, err
	}
	return f, nil
}

func parseDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, newBadRequest(fmt.Sprintf("%s must be a date in YYYY-MM-DD format", name))
	}
	return &t, nil
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	SQL  string        `json:"sql" validate:"required,max=10000"`
	Args []interface{} `json:"args,omitempty" validate:"omitempty,max=32"`
}

// checkArgs allows only scalar JSON values as bind arguments.
func (req QueryRequest) checkArgs() error {
	for i, a := range req.Args {
		switch a.(type) {
		case nil, string, float64, bool:
		default:
			return newBadRequest(fmt.Sprintf("args[%d] must be a string, number, boolean or null", i))
		}
	}
	return nil
}

// TurnRequest is the body of POST /api/v1/chat/sessions/{id}/turns: one
// exchange produced by the AI tool-calling collaborator.
type TurnRequest struct {
	User  string `json:"user" validate:"required,max=8000"`
	Model string `json:"model" validate:"required,max=32000"`
}

// sessionPath validates the {id} URL parameter.
type sessionPath struct {
	ID string `validate:"required,sessionid"`
}

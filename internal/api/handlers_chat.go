// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/prodledger/internal/chat"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/models"
	"github.com/tomtom215/prodledger/internal/validation"
)

// SessionResponse is a conversation history.
type SessionResponse struct {
	ID         string      `json:"id"`
	Turns      []chat.Turn `json:"turns"`
	MaxTurns   int         `json:"max_turns"`
	LastAccess *time.Time  `json:"last_access,omitempty"`
}

// sweepSessions drops idle sessions. Every session-touching request runs it
// before any lookup.
func (h *Handler) sweepSessions(r *http.Request) {
	if n := h.sessions.SweepExpired(); n > 0 {
		logging.Ctx(r.Context()).Debug().Int("expired", n).Msg("Swept idle chat sessions")
	}
}

// sessionID reads and validates the {id} URL parameter.
func sessionID(r *http.Request) (string, error) {
	p := sessionPath{ID: chi.URLParam(r, "id")}
	if reqErr := validation.ValidateStruct(&p); reqErr != nil {
		return "", reqErr
	}
	return p.ID, nil
}

// CreateSession handles POST /api/v1/chat/sessions. It only mints an ID;
// the session exists once its first exchange is stored.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	h.sweepSessions(r)

	respondSuccess(w, http.StatusCreated, SessionResponse{
		ID:       chat.NewSessionID(),
		Turns:    []chat.Turn{},
		MaxTurns: h.sessions.MaxTurns(),
	}, models.Metadata{})
}

// GetSession handles GET /api/v1/chat/sessions/{id}. Unknown or expired
// sessions return an empty history.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.sweepSessions(r)

	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := SessionResponse{
		ID:       id,
		Turns:    h.sessions.GetHistory(id),
		MaxTurns: h.sessions.MaxTurns(),
	}
	if sess, ok := h.sessions.Session(id); ok {
		last := sess.LastAccess.UTC()
		resp.LastAccess = &last
	}
	respondSuccess(w, http.StatusOK, resp, models.Metadata{})
}

// AppendTurn handles POST /api/v1/chat/sessions/{id}/turns and returns the
// stored history, truncated to the most recent exchanges.
func (h *Handler) AppendTurn(w http.ResponseWriter, r *http.Request) {
	h.sweepSessions(r)

	id, err := sessionID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req TurnRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, newBadRequest(err.Error()))
		return
	}
	if reqErr := validation.ValidateStruct(&req); reqErr != nil {
		writeError(w, r, reqErr)
		return
	}

	turns := h.sessions.AppendExchange(id, req.User, req.Model)
	respondSuccess(w, http.StatusOK, SessionResponse{
		ID:       id,
		Turns:    turns,
		MaxTurns: h.sessions.MaxTurns(),
	}, models.Metadata{})
}

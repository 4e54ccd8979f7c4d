// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
	"github.com/Yuiko81/anek-counter/internal/domain/session"
)

// ConversationDependencies defines the interface for the multi-step
// logging flow.
type ConversationDependencies interface {
	EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error)
	BeginConversation(ctx context.Context, convID string, userID int64, typeCode string) error
	SetConversationMinutes(ctx context.Context, convID string, minutes int) error
	FinishConversation(ctx context.Context, convID string, rating int) (session.Conversation, error)
	CancelConversation(ctx context.Context, convID string)
	WeeklyPersonalSummary(ctx context.Context, userID int64) ([]model.TypeStat, error)
	WeeklyRank(ctx context.Context, userID int64) (model.Ranks, error)
}

// ConversationsHandler drives the pick type -> enter minutes -> pick
// rating flow over HTTP, one step per request.
type ConversationsHandler struct {
	deps ConversationDependencies
}

// NewConversationsHandler creates a new conversations handler.
func NewConversationsHandler(deps ConversationDependencies) *ConversationsHandler {
	return &ConversationsHandler{deps: deps}
}

type beginRequest struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Type      string `json:"type"`
}

type minutesRequest struct {
	Minutes int `json:"minutes"`
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

type stepResponse struct {
	Status string `json:"status"`
}

// Handle routes requests under /conversations/{id}[/step].
func (h *ConversationsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	convID, step, _ := strings.Cut(rest, "/")
	if convID == "" || strings.Contains(step, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodDelete && step == "":
		h.handleCancel(w, r, convID)
	case r.Method == http.MethodPost && step == "type":
		h.handleBegin(w, r, convID)
	case r.Method == http.MethodPost && step == "minutes":
		h.handleMinutes(w, r, convID)
	case r.Method == http.MethodPost && step == "rating":
		h.handleRating(w, r, convID)
	default:
		http.NotFound(w, r)
	}
}

func (h *ConversationsHandler) handleBegin(w http.ResponseWriter, r *http.Request, convID string) {
	var req beginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing or invalid user_id"))
		return
	}

	ctx := r.Context()
	user, err := h.deps.EnsureUser(ctx, req.UserID, req.Username, req.FirstName)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if err := h.deps.BeginConversation(ctx, convID, user.ID, req.Type); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Status: "awaiting_minutes"})
}

func (h *ConversationsHandler) handleMinutes(w http.ResponseWriter, r *http.Request, convID string) {
	var req minutesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.SetConversationMinutes(r.Context(), convID, req.Minutes); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Status: "awaiting_rating"})
}

func (h *ConversationsHandler) handleRating(w http.ResponseWriter, r *http.Request, convID string) {
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx := r.Context()
	conv, err := h.deps.FinishConversation(ctx, convID, req.Rating)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	resp, err := buildRecordedResponse(ctx, h.deps, conv.UserID, conv.TypeCode, conv.Minutes, req.Rating)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ConversationsHandler) handleCancel(w http.ResponseWriter, r *http.Request, convID string) {
	h.deps.CancelConversation(r.Context(), convID)
	w.WriteHeader(http.StatusNoContent)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
)

// EventDependencies defines the interface for one-shot event logging.
type EventDependencies interface {
	EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error)
	RecordEvent(ctx context.Context, userID int64, typeCode string, minutes, rating int) error
	WeeklyPersonalSummary(ctx context.Context, userID int64) ([]model.TypeStat, error)
	WeeklyRank(ctx context.Context, userID int64) (model.Ranks, error)
}

// EventsHandler handles one-shot event logging requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest is the POST /events body: identity plus the full event
// triple, for callers that collected everything in a single turn.
type eventRequest struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Type      string `json:"type"`
	Minutes   int    `json:"minutes"`
	Rating    int    `json:"rating"`
}

func (e eventRequest) validate() error {
	if e.UserID <= 0 {
		return errors.New("missing or invalid user_id")
	}
	return nil
}

// recordedResponse echoes the recorded event together with the weekly
// summary and global positions shown to the user after every insert.
type recordedResponse struct {
	Type    string        `json:"type"`
	Minutes int           `json:"minutes"`
	Rating  int           `json:"rating"`
	Summary []typeSummary `json:"summary"`
	Ranks   ranksPayload  `json:"ranks"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx := r.Context()
	user, err := h.deps.EnsureUser(ctx, req.UserID, req.Username, req.FirstName)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if err := h.deps.RecordEvent(ctx, user.ID, req.Type, req.Minutes, req.Rating); err != nil {
		writeCoreError(w, err)
		return
	}

	resp, err := buildRecordedResponse(ctx, h.deps, user.ID, req.Type, req.Minutes, req.Rating)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// summaryDependencies is the slice of the core both logging flows use
// to assemble the post-insert summary.
type summaryDependencies interface {
	WeeklyPersonalSummary(ctx context.Context, userID int64) ([]model.TypeStat, error)
	WeeklyRank(ctx context.Context, userID int64) (model.Ranks, error)
}

// buildRecordedResponse assembles the post-insert summary: the user's
// last 7 days per type (zero-backfilled) and their weekly positions.
func buildRecordedResponse(ctx context.Context, deps summaryDependencies, userID int64, typeCode string, minutes, rating int) (recordedResponse, error) {
	stats, err := deps.WeeklyPersonalSummary(ctx, userID)
	if err != nil {
		return recordedResponse{}, err
	}
	ranks, err := deps.WeeklyRank(ctx, userID)
	if err != nil {
		return recordedResponse{}, err
	}
	return recordedResponse{
		Type:    typeCode,
		Minutes: minutes,
		Rating:  rating,
		Summary: backfillSummary(stats),
		Ranks:   ranksToPayload(ranks),
	}, nil
}

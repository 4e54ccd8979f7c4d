// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
)

// TopDependencies defines the interface for leaderboard queries.
type TopDependencies interface {
	GlobalTop(ctx context.Context, periodToken string, minRecords int) (model.Leaderboards, error)
}

// TopHandler handles leaderboard requests.
type TopHandler struct {
	deps              TopDependencies
	defaultMinRecords int
}

// NewTopHandler creates a new leaderboard handler.
func NewTopHandler(deps TopDependencies, defaultMinRecords int) *TopHandler {
	return &TopHandler{deps: deps, defaultMinRecords: defaultMinRecords}
}

type countEntryPayload struct {
	DisplayName string `json:"display_name"`
	Count       int64  `json:"count"`
}

type timeEntryPayload struct {
	DisplayName string `json:"display_name"`
	Minutes     int64  `json:"minutes"`
}

type ratingEntryPayload struct {
	DisplayName string  `json:"display_name"`
	AvgRating   float64 `json:"avg_rating"`
	Count       int64   `json:"count"`
}

type topResponse struct {
	JokeCount  []countEntryPayload  `json:"joke_count"`
	StoryCount []countEntryPayload  `json:"story_count"`
	Time       []timeEntryPayload   `json:"time"`
	Rating     []ratingEntryPayload `json:"rating"`
}

// HandleGetTop handles GET /top?period=&min_records= requests.
func (h *TopHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	minRecords := h.defaultMinRecords
	if raw := q.Get("min_records"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		minRecords = n
	}

	top, err := h.deps.GlobalTop(r.Context(), q.Get("period"), minRecords)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topToResponse(top))
}

func topToResponse(top model.Leaderboards) topResponse {
	resp := topResponse{
		JokeCount:  make([]countEntryPayload, 0, len(top.JokeCount)),
		StoryCount: make([]countEntryPayload, 0, len(top.StoryCount)),
		Time:       make([]timeEntryPayload, 0, len(top.Time)),
		Rating:     make([]ratingEntryPayload, 0, len(top.Rating)),
	}
	for _, e := range top.JokeCount {
		resp.JokeCount = append(resp.JokeCount, countEntryPayload{displayNameOrMarker(e.DisplayName), e.Count})
	}
	for _, e := range top.StoryCount {
		resp.StoryCount = append(resp.StoryCount, countEntryPayload{displayNameOrMarker(e.DisplayName), e.Count})
	}
	for _, e := range top.Time {
		resp.Time = append(resp.Time, timeEntryPayload{displayNameOrMarker(e.DisplayName), e.Minutes})
	}
	for _, e := range top.Rating {
		resp.Rating = append(resp.Rating, ratingEntryPayload{displayNameOrMarker(e.DisplayName), e.AvgRating, e.Count})
	}
	return resp
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
)

// StatsDependencies defines the interface for personal statistics.
type StatsDependencies interface {
	PersonalStats(ctx context.Context, userID int64, periodToken string) ([]model.TypeStat, error)
}

// StatsHandler handles personal statistics requests.
type StatsHandler struct {
	deps StatsDependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type statsResponse struct {
	UserID  int64         `json:"user_id"`
	Period  string        `json:"period"`
	Summary []typeSummary `json:"summary"`
}

// HandleGetStats handles GET /stats/{user_id}?period= requests.
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/stats/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	userID, err := parseID(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	periodToken := r.URL.Query().Get("period")
	stats, err := h.deps.PersonalStats(r.Context(), userID, periodToken)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		UserID:  userID,
		Period:  effectivePeriod(periodToken),
		Summary: backfillSummary(stats),
	})
}

// effectivePeriod echoes the period actually applied, surfacing the
// documented default for empty input.
func effectivePeriod(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return "week"
	}
	return token
}

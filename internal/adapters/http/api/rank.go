// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	WeeklyRank(ctx context.Context, userID int64) (model.Ranks, error)
}

// RankHandler handles weekly rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{user_id} requests. The window is
// always the last 7 days.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/rank/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	userID, err := parseID(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ranks, err := h.deps.WeeklyRank(r.Context(), userID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranksToPayload(ranks))
}

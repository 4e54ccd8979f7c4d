// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// HealthDependencies defines the interface for readiness checks.
type HealthDependencies interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles liveness and readiness requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady handles GET /readyz requests by pinging the store.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

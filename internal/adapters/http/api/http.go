// Package api declares HTTP contracts and route registration helpers.
//
// This is the surface the conversation/command layer calls; the chat
// transport itself lives outside this repository.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/Yuiko81/anek-counter/internal/adapters/repository"
	"github.com/Yuiko81/anek-counter/internal/domain/model"
	"github.com/Yuiko81/anek-counter/internal/domain/period"
	"github.com/Yuiko81/anek-counter/internal/domain/session"
)

// noNameMarker replaces an empty display name in rendered entries.
const noNameMarker = "no name"

// Core bundles the service operations the handlers depend on. Using an
// interface bundle keeps the handler layer loosely coupled to
// implementations in other packages.
type Core interface {
	EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error)
	RecordEvent(ctx context.Context, userID int64, typeCode string, minutes, rating int) error
	PersonalStats(ctx context.Context, userID int64, periodToken string) ([]model.TypeStat, error)
	WeeklyPersonalSummary(ctx context.Context, userID int64) ([]model.TypeStat, error)
	GlobalTop(ctx context.Context, periodToken string, minRecords int) (model.Leaderboards, error)
	WeeklyRank(ctx context.Context, userID int64) (model.Ranks, error)

	BeginConversation(ctx context.Context, convID string, userID int64, typeCode string) error
	SetConversationMinutes(ctx context.Context, convID string, minutes int) error
	FinishConversation(ctx context.Context, convID string, rating int) (session.Conversation, error)
	CancelConversation(ctx context.Context, convID string)

	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	eventsHandler        *EventsHandler
	statsHandler         *StatsHandler
	topHandler           *TopHandler
	rankHandler          *RankHandler
	conversationsHandler *ConversationsHandler
}

// NewServer creates a new API server with all handlers.
// defaultMinRecords applies when /top is called without min_records.
func NewServer(core Core, defaultMinRecords int) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(core),
		eventsHandler:        NewEventsHandler(core),
		statsHandler:         NewStatsHandler(core),
		topHandler:           NewTopHandler(core, defaultMinRecords),
		rankHandler:          NewRankHandler(core),
		conversationsHandler: NewConversationsHandler(core),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/stats/", MetricsMiddleware(s.statsHandler.HandleGetStats, "stats"))
	mux.HandleFunc("/top", MetricsMiddleware(s.topHandler.HandleGetTop, "top"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/conversations/", MetricsMiddleware(s.conversationsHandler.Handle, "conversations"))
}

// typeSummary is one rendered row of a personal summary.
type typeSummary struct {
	Type      string  `json:"type"`
	Count     int64   `json:"count"`
	Minutes   int64   `json:"minutes"`
	AvgRating float64 `json:"avg_rating"`
}

// ranksPayload mirrors the weekly rank read model; absent metrics are null.
type ranksPayload struct {
	JokeRank  *int `json:"joke_rank"`
	StoryRank *int `json:"story_rank"`
	TimeRank  *int `json:"time_rank"`
}

type errorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// backfillSummary renders grouped stats with a zero-valued row for
// every known type absent from the data, ordered by type code.
func backfillSummary(stats []model.TypeStat) []typeSummary {
	byCode := make(map[string]model.TypeStat, len(stats))
	for _, s := range stats {
		byCode[s.Code] = s
	}

	codes := model.KnownTypes()
	sort.Strings(codes)

	out := make([]typeSummary, 0, len(codes))
	for _, code := range codes {
		s := byCode[code]
		out = append(out, typeSummary{
			Type:      code,
			Count:     s.Count,
			Minutes:   s.Minutes,
			AvgRating: s.AvgRating,
		})
	}
	return out
}

func ranksToPayload(r model.Ranks) ranksPayload {
	return ranksPayload{JokeRank: r.Joke, StoryRank: r.Story, TimeRank: r.Time}
}

func displayNameOrMarker(name string) string {
	if name == "" {
		return noNameMarker
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}

	var fieldErrs model.FieldErrors
	if errors.As(err, &fieldErrs) {
		resp.Fields = make(map[string][]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			resp.Fields[fe.Field] = append(resp.Fields[fe.Field], fe.Msg)
		}
	}
	writeJSON(w, status, resp)
}

// writeCoreError translates the core error taxonomy to HTTP statuses.
func writeCoreError(w http.ResponseWriter, err error) {
	var fieldErrs model.FieldErrors
	switch {
	case errors.Is(err, period.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "invalid_period", err)
	case errors.As(err, &fieldErrs):
		writeError(w, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, repository.ErrUnknownEventType):
		writeError(w, http.StatusUnprocessableEntity, "unknown_type", err)
	case errors.Is(err, session.ErrNoConversation):
		writeError(w, http.StatusNotFound, "no_conversation", err)
	case errors.Is(err, session.ErrUnexpectedState), errors.Is(err, session.ErrIncomplete):
		writeError(w, http.StatusConflict, "conversation_state", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseID parses a positive decimal user id.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

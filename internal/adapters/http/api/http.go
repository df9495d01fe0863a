// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StandingsDependencies
	EventDependencies
	InvalidateDependencies
}

// StandingsRequest selects a scoreboard rendering.
type StandingsRequest = service.StandingsRequest

// Snapshot is the ranked scoreboard returned by GET standings.
type Snapshot = types.Snapshot

// Server wires HTTP routes for the scoreboard API.
type Server struct {
	healthHandler     *HealthHandler
	stats             StatsProvider
	standingsHandler  *StandingsHandler
	eventsHandler     *EventsHandler
	invalidateHandler *InvalidateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		stats:             statsProvider,
		standingsHandler:  NewStandingsHandler(deps),
		eventsHandler:     NewEventsHandler(deps),
		invalidateHandler: NewInvalidateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("GET /contests/{id}/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
	mux.HandleFunc("GET /contests/{id}/events", MetricsMiddleware(s.eventsHandler.HandleGetEvents, "events"))
	mux.HandleFunc("POST /contests/{id}/invalidate", MetricsMiddleware(s.invalidateHandler.HandleInvalidate, "invalidate"))
	mux.HandleFunc("/", MetricsMiddleware(handleNotFound, "not_found"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", NewKind(r.Method+" "+r.URL.Path, ErrNotFound))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates engine errors into status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	err = Wrap(op, err)
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, scoring.ErrDetailUnavailable):
		writeError(w, http.StatusNotImplemented, "details_unavailable", err)
	case errors.Is(err, model.ErrInvalidContest):
		writeError(w, http.StatusUnprocessableEntity, "invalid_contest", err)
	case errors.Is(err, model.ErrDataAccess):
		writeError(w, http.StatusServiceUnavailable, "data_unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// contestID returns the {id} path segment.
func contestID(r *http.Request) (string, bool) {
	id := r.PathValue("id")
	return id, id != ""
}

// parseView reads the mode query parameter.
func parseView(r *http.Request) (model.View, error) {
	return model.ParseView(r.URL.Query().Get("mode"))
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// StandingsDependencies defines the interface for standings queries.
type StandingsDependencies interface {
	Standings(ctx context.Context, req StandingsRequest) (*Snapshot, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps StandingsDependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// HandleGetStandings handles
// GET /contests/{id}/standings?mode=contestant|admin&sort=score|name&users=a,b&details=true
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	req, err := parseStandingsRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	snap, err := h.deps.Standings(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseStandingsRequest(r *http.Request) (StandingsRequest, error) {
	var req StandingsRequest

	id, ok := contestID(r)
	if !ok {
		return req, fmt.Errorf("missing contest id")
	}
	req.ContestID = id

	view, err := parseView(r)
	if err != nil {
		return req, err
	}
	req.View = view

	q := r.URL.Query()
	switch q.Get("sort") {
	case "", "score":
	case "name":
		req.SortByName = true
	default:
		return req, fmt.Errorf("unknown sort %q; use score or name", q.Get("sort"))
	}

	if users := q.Get("users"); users != "" {
		for _, u := range strings.Split(users, ",") {
			if u = strings.TrimSpace(u); u != "" {
				req.UserFilter = append(req.UserFilter, u)
			}
		}
	}

	if d := q.Get("details"); d != "" {
		req.IncludeRunDetails, err = strconv.ParseBool(d)
		if err != nil {
			return req, fmt.Errorf("invalid details flag %q", d)
		}
	}
	return req, nil
}

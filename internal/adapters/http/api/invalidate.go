package api

import (
	"context"
	"errors"
	"net/http"
)

// InvalidateDependencies defines the interface for cache invalidation.
type InvalidateDependencies interface {
	Invalidate(ctx context.Context, contestID string) error
}

// InvalidateHandler handles cache invalidation requests.
type InvalidateHandler struct {
	deps InvalidateDependencies
}

// NewInvalidateHandler creates a new invalidate handler.
func NewInvalidateHandler(deps InvalidateDependencies) *InvalidateHandler {
	return &InvalidateHandler{deps: deps}
}

// HandleInvalidate handles POST /contests/{id}/invalidate. The judge calls it
// after a run of the contest is graded.
func (h *InvalidateHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.invalidate"
	id, ok := contestID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing contest id")))
		return
	}
	if err := h.deps.Invalidate(r.Context(), id); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package eventlog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/api"
)

// Lister reads the event history of a pattern.
type Lister interface {
	ListByPattern(ctx context.Context, patternID uuid.UUID, params ListParams) ([]Event, int64, error)
}

type Handler struct {
	events Lister
}

func NewHandler(events Lister) *Handler {
	return &Handler{events: events}
}

// ListPatternEvents serves GET /patterns/{patternID}/events.
func (h *Handler) ListPatternEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "patternID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid pattern ID"))
		return
	}

	params := parseListParams(r)
	events, total, err := h.events.ListByPattern(r.Context(), id, params)
	if err != nil {
		slog.Error("listing pattern events", "pattern_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, events, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	if et := q.Get("event_type"); et != "" {
		params.EventType = et
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}
	return params
}

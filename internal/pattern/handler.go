package pattern

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/api"
)

// maxListLimit caps one page of the listing endpoint.
const maxListLimit = 100

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		ActionType: ActionType(q.Get("action_type")),
		Hostname:   q.Get("hostname"),
		Limit:      maxListLimit,
	}
	if f.ActionType != "" && !f.ActionType.IsValid() {
		api.HandleError(w, api.NewBadRequestError("invalid action_type"))
		return
	}
	if l := q.Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit > 0 && limit < maxListLimit {
			f.Limit = limit
		}
	}
	onlyStale := q.Get("needs_retraining") == "true"

	patterns, err := h.svc.Candidates(r.Context(), f)
	if err != nil {
		slog.Error("listing patterns", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	views := make([]View, 0, len(patterns))
	for _, p := range patterns {
		v := NewView(p)
		if onlyStale && !v.ShouldBeRetrained {
			continue
		}
		views = append(views, v)
	}
	api.JSON(w, http.StatusOK, views)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleErr(w, "fetching pattern", err)
		return
	}
	api.JSON(w, http.StatusOK, NewView(p))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := patternID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Retire(r.Context(), id); err != nil {
		h.handleErr(w, "deleting pattern", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "pattern deleted successfully")
}

func (h *Handler) handleErr(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrNotFound) {
		api.HandleError(w, api.NewNotFoundError("pattern not found"))
		return
	}
	slog.Error(msg, "error", err)
	api.HandleError(w, api.ErrInternalServer)
}

func patternID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "patternID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid pattern ID"))
		return uuid.Nil, false
	}
	return id, true
}

package training

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/api"
	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/pattern"
)

type StartRequest struct {
	Website           string `json:"website" validate:"omitempty,hostname"`
	URL               string `json:"url" validate:"omitempty,url"`
	Title             string `json:"title" validate:"max=1000"`
	PageStructureHash string `json:"page_structure_hash" validate:"max=64"`
}

type SelectionRequest struct {
	ActionType         string         `json:"action_type" validate:"required,oneof=fill_text click_element select_project select_chat"`
	ElementDescription string         `json:"element_description" validate:"max=255"`
	Payload            map[string]any `json:"payload"`
	CorrelationID      string         `json:"correlation_id" validate:"max=255"`
}

type EndRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type startResponse struct {
	Session *Session `json:"session"`
	Signal  Signal   `json:"signal"`
}

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	if req.Website == "" && req.URL == "" {
		api.HandleError(w, api.NewValidationError("website or url is required"))
		return
	}

	current := page.NewContext(req.URL, req.Title, req.PageStructureHash, time.Now())
	sess, sig, err := h.svc.Start(r.Context(), req.Website, current)
	if err != nil {
		h.handleErr(w, "starting training session", err)
		return
	}

	status := http.StatusCreated
	if sig.Type == SignalTrainingAlreadyActive {
		status = http.StatusOK
	}
	api.JSON(w, status, startResponse{Session: sess, Signal: sig})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleErr(w, "fetching training session", err)
		return
	}
	api.JSON(w, http.StatusOK, sess)
}

func (h *Handler) RequestSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	g, err := h.svc.RequestSelection(r.Context(), id, pattern.ActionType(req.ActionType),
		req.ElementDescription, req.Payload, req.CorrelationID)
	if err != nil {
		h.handleErr(w, "requesting element selection", err)
		return
	}
	api.JSON(w, http.StatusOK, g)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req Selection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if req.Selector == "" && req.Element == nil {
		api.HandleError(w, api.NewValidationError("selector or element is required"))
		return
	}

	out, err := h.svc.Confirm(r.Context(), id, req)
	if err != nil {
		h.handleErr(w, "confirming element selection", err)
		return
	}

	status := http.StatusCreated
	if !out.Learned() {
		status = http.StatusUnprocessableEntity
	}
	api.JSON(w, status, out)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		h.handleErr(w, "cancelling guidance", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "guidance cancelled")
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req EndRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.HandleError(w, api.ErrBadRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			api.HandleError(w, api.NewValidationError(err.Error()))
			return
		}
	}

	summary, err := h.svc.End(r.Context(), id, req.Reason)
	if err != nil {
		h.handleErr(w, "ending training session", err)
		return
	}
	api.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleErr(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		api.HandleError(w, api.NewNotFoundError("training session not found"))
	case errors.Is(err, ErrSessionNotActive), errors.Is(err, ErrNoActiveGuidance):
		api.HandleError(w, api.NewConflictError(err.Error()))
	case errors.Is(err, ErrUnknownAction):
		api.HandleError(w, api.NewBadRequestError(err.Error()))
	default:
		slog.Error(msg, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid session ID"))
		return uuid.Nil, false
	}
	return id, true
}

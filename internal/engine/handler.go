package engine

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/api"
	inats "github.com/aiox-platform/autopilot/internal/nats"
	"github.com/aiox-platform/autopilot/internal/selector"
	"github.com/aiox-platform/autopilot/internal/training"
)

// AutomationRequest is the body of POST /automation/requests.
type AutomationRequest struct {
	ActionType        string         `json:"action_type" validate:"required,oneof=fill_text click_element select_project select_chat"`
	Payload           map[string]any `json:"payload"`
	URL               string         `json:"url" validate:"omitempty,url"`
	Title             string         `json:"title" validate:"max=1000"`
	PageStructureHash string         `json:"page_structure_hash" validate:"max=64"`
	CorrelationID     string         `json:"correlation_id" validate:"max=255"`
}

// GuidanceResponseRequest is the body of POST /automation/guidance-responses.
type GuidanceResponseRequest struct {
	SessionID     string            `json:"session_id" validate:"required,uuid"`
	GuidanceID    string            `json:"guidance_id" validate:"omitempty,uuid"`
	CorrelationID string            `json:"correlation_id" validate:"max=255"`
	Response      string            `json:"response" validate:"required,oneof=confirmed cancelled"`
	Selector      string            `json:"selector" validate:"max=1000"`
	Element       *selector.Element `json:"element"`
}

type Handler struct {
	engine   *Engine
	validate *validator.Validate
}

func NewHandler(e *Engine) *Handler {
	return &Handler{engine: e, validate: validator.New()}
}

// Submit runs one automation request synchronously.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req AutomationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	out, err := h.engine.Handle(r.Context(), toRequest(inats.ExecuteRequest{
		ActionType:        req.ActionType,
		Payload:           req.Payload,
		URL:               req.URL,
		Title:             req.Title,
		PageStructureHash: req.PageStructureHash,
		CorrelationID:     req.CorrelationID,
	}))
	switch {
	case err == nil:
		api.JSON(w, http.StatusOK, out)
	case errors.Is(err, ErrPatternBusy):
		api.HandleError(w, api.NewConflictError(err.Error()))
	default:
		slog.Error("handling automation request", "correlation_id", req.CorrelationID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

// RespondToGuidance accepts the user's answer to a displayed guidance.
func (h *Handler) RespondToGuidance(w http.ResponseWriter, r *http.Request) {
	var req GuidanceResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	resp := inats.GuidanceResponse{
		CorrelationID: req.CorrelationID,
		Response:      req.Response,
		Selector:      req.Selector,
		Element:       req.Element,
	}
	resp.SessionID = uuid.MustParse(req.SessionID)
	if req.GuidanceID != "" {
		resp.GuidanceID = uuid.MustParse(req.GuidanceID)
	}

	err := h.engine.Respond(r.Context(), resp)
	switch {
	case err == nil:
		api.JSONMessage(w, http.StatusOK, "guidance response accepted")
	case errors.Is(err, training.ErrSessionNotFound):
		api.HandleError(w, api.NewNotFoundError("training session not found"))
	case isProtocolError(err):
		api.HandleError(w, api.NewConflictError(err.Error()))
	default:
		slog.Error("handling guidance response", "session_id", req.SessionID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

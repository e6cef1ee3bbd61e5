package matcher

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aiox-platform/autopilot/internal/api"
	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/pattern"
)

// MatchRequest is the body of POST /patterns/match.
type MatchRequest struct {
	ActionType        string         `json:"action_type" validate:"required,oneof=fill_text click_element select_project select_chat"`
	Payload           map[string]any `json:"payload"`
	URL               string         `json:"url" validate:"required,url"`
	Title             string         `json:"title" validate:"max=1000"`
	PageStructureHash string         `json:"page_structure_hash" validate:"max=64"`
	CorrelationID     string         `json:"correlation_id" validate:"max=255"`
}

// ToRequest converts the body into a pattern.Request captured now.
func (r MatchRequest) ToRequest() pattern.Request {
	return pattern.Request{
		ActionType:    pattern.ActionType(r.ActionType),
		Payload:       r.Payload,
		Context:       page.NewContext(r.URL, r.Title, r.PageStructureHash, time.Now()),
		CorrelationID: r.CorrelationID,
	}
}

type Handler struct {
	matcher  *Matcher
	validate *validator.Validate
}

func NewHandler(m *Matcher) *Handler {
	return &Handler{matcher: m, validate: validator.New()}
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	rec, err := h.matcher.Match(r.Context(), req.ToRequest())
	if err != nil {
		slog.Error("matching pattern", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, rec)
}

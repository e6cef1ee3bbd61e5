package nats

import (
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/selector"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamRequests = "AUTOPILOT_REQUESTS"
	StreamGuidance = "AUTOPILOT_GUIDANCE"
	StreamEvents   = "AUTOPILOT_EVENTS"
)

// Subject constants.
const (
	SubjectExecuteRequest    = "autopilot.requests.execute"
	SubjectGuidanceDisplayed = "autopilot.guidance.displayed"
	SubjectGuidanceResponse  = "autopilot.guidance.responses"
	SubjectEventsAll         = "autopilot.events.>"
	SubjectPatternEvent      = "autopilot.events.pattern"
	SubjectTrainingEvent     = "autopilot.events.training"
)

// Guidance response kinds.
const (
	ResponseConfirmed = "confirmed"
	ResponseCancelled = "cancelled"
)

// ExecuteRequest asks the engine to perform one action on the current page.
type ExecuteRequest struct {
	RequestID         string         `json:"request_id"`
	ActionType        string         `json:"action_type"`
	Payload           map[string]any `json:"payload"`
	URL               string         `json:"url,omitempty"`
	Title             string         `json:"title,omitempty"`
	PageStructureHash string         `json:"page_structure_hash,omitempty"`
	CorrelationID     string         `json:"correlation_id"`
	RequestedAt       time.Time      `json:"requested_at"`
}

// GuidanceDisplayed is published for the UI when the user must point at an element.
type GuidanceDisplayed struct {
	SessionID          uuid.UUID `json:"session_id"`
	GuidanceID         uuid.UUID `json:"guidance_id"`
	ActionType         string    `json:"action_type"`
	ElementDescription string    `json:"element_description"`
	Instructions       string    `json:"instructions"`
	CorrelationID      string    `json:"correlation_id,omitempty"`
	DisplayedAt        time.Time `json:"displayed_at"`
}

// GuidanceResponse carries the user's answer to a displayed guidance.
type GuidanceResponse struct {
	SessionID     uuid.UUID         `json:"session_id"`
	GuidanceID    uuid.UUID         `json:"guidance_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Response      string            `json:"response"` // confirmed, cancelled
	Selector      string            `json:"selector,omitempty"`
	Element       *selector.Element `json:"element,omitempty"`
}

// PatternEvent reports a pattern execution outcome.
type PatternEvent struct {
	EventID              uuid.UUID `json:"event_id"`
	EventType            string    `json:"event_type"`
	PatternID            uuid.UUID `json:"pattern_id"`
	ActionType           string    `json:"action_type"`
	CorrelationID        string    `json:"correlation_id,omitempty"`
	Hostname             string    `json:"hostname,omitempty"`
	Reason               string    `json:"reason,omitempty"`
	Confidence           float64   `json:"confidence"`
	UsageCount           int       `json:"usage_count"`
	SuccessfulExecutions int       `json:"successful_executions"`
	DurationMs           int64     `json:"duration_ms"`
	Timestamp            time.Time `json:"timestamp"`
}

// TrainingEvent reports a training session transition or learning outcome.
type TrainingEvent struct {
	EventID    uuid.UUID  `json:"event_id"`
	EventType  string     `json:"event_type"`
	SessionID  uuid.UUID  `json:"session_id"`
	Website    string     `json:"website"`
	ActionType string     `json:"action_type,omitempty"`
	PatternID  *uuid.UUID `json:"pattern_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

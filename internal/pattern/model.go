package pattern

import (
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/page"
)

// ActionType tags what a request or pattern does on the page.
type ActionType string

const (
	ActionFillText      ActionType = "fill_text"
	ActionClickElement  ActionType = "click_element"
	ActionSelectProject ActionType = "select_project"
	ActionSelectChat    ActionType = "select_chat"
)

// ValidActionTypes returns every supported action type.
func ValidActionTypes() []ActionType {
	return []ActionType{ActionFillText, ActionClickElement, ActionSelectProject, ActionSelectChat}
}

// IsValid checks if the action type is supported.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionFillText, ActionClickElement, ActionSelectProject, ActionSelectChat:
		return true
	default:
		return false
	}
}

// Payload keys with a meaning to the engine.
const (
	KeyElement     = "element"
	KeyValue       = "value"
	KeyProjectName = "projectName"
	KeyChatName    = "chatName"
)

// Request is an intent to perform one action. It is consumed once.
type Request struct {
	ActionType    ActionType     `json:"action_type"`
	Payload       map[string]any `json:"payload"`
	Context       page.Context   `json:"context"`
	CorrelationID string         `json:"correlation_id"`
}

// ExecutionRecord is one recorded outcome of a pattern.
type ExecutionRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Pattern is a persisted, learned example of how to perform an action on a page.
type Pattern struct {
	ID                   uuid.UUID         `json:"id"`
	ActionType           ActionType        `json:"action_type"`
	Payload              map[string]any    `json:"payload"`
	Selector             string            `json:"selector"`
	Context              page.Context      `json:"context"`
	Confidence           float64           `json:"confidence"`
	UsageCount           int               `json:"usage_count"`
	SuccessfulExecutions int               `json:"successful_executions"`
	ExecutionHistory     []ExecutionRecord `json:"execution_history"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// MatchCriteria is the derived score of one (request, pattern) pair. It is never persisted.
type MatchCriteria struct {
	ActionTypeMatch      bool    `json:"action_type_match"`
	PayloadSimilarity    float64 `json:"payload_similarity"`
	ContextCompatibility float64 `json:"context_compatibility"`
	ConfidenceThreshold  float64 `json:"confidence_threshold"`
	OverallScore         float64 `json:"overall_score"`
}

// ReliabilityLevel is a coarse band over the reliability score.
type ReliabilityLevel string

const (
	ReliabilityHigh       ReliabilityLevel = "high"
	ReliabilityMedium     ReliabilityLevel = "medium"
	ReliabilityLow        ReliabilityLevel = "low"
	ReliabilityUnreliable ReliabilityLevel = "unreliable"
)

// EventType tags results and events produced by the engine.
type EventType string

const (
	EventPatternExecuted        EventType = "AutomationPatternExecuted"
	EventPatternExecutionFailed EventType = "PatternExecutionFailed"
	EventPatternLearned         EventType = "PatternLearned"
	EventPatternLearningFailed  EventType = "PatternLearningFailed"
)

// Result is the typed outcome of Execute. Failures are values, never panics or errors.
type Result struct {
	Event         EventType     `json:"event"`
	PatternID     uuid.UUID     `json:"pattern_id"`
	ActionType    ActionType    `json:"action_type"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	// Attempted is true when the page effect ran and the statistics changed.
	Attempted bool          `json:"attempted"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the pattern was executed successfully.
func (r Result) Succeeded() bool {
	return r.Event == EventPatternExecuted
}

// Filter narrows a List call. Zero fields match everything; a zero Limit
// returns every matching row.
type Filter struct {
	ActionType ActionType
	Hostname   string
	Limit      int
}

// Update is a partial change to a stored pattern. Nil fields are left untouched.
type Update struct {
	Selector             *string
	Confidence           *float64
	UsageCount           *int
	SuccessfulExecutions *int
	ExecutionHistory     *[]ExecutionRecord
}

// StatsUpdate captures the mutable statistics of p as an Update.
func StatsUpdate(p *Pattern) Update {
	history := append([]ExecutionRecord(nil), p.ExecutionHistory...)
	confidence := p.Confidence
	usage := p.UsageCount
	successes := p.SuccessfulExecutions
	return Update{
		Confidence:           &confidence,
		UsageCount:           &usage,
		SuccessfulExecutions: &successes,
		ExecutionHistory:     &history,
	}
}

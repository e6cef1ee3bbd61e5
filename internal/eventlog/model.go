// Package eventlog persists engine events published on the events stream.
package eventlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event matches the pattern_events table schema.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	EventType     string          `json:"event_type"`
	PatternID     *uuid.UUID      `json:"pattern_id,omitempty"`
	SessionID     *uuid.UUID      `json:"session_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for event queries.
type ListParams struct {
	EventType string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

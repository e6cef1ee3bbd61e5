// Package training implements the teach-by-example workflow that produces new patterns.
package training

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/pattern"
)

// Protocol errors: a method was called in a state that does not allow it.
var (
	ErrSessionNotActive = errors.New("training session is not active")
	ErrNoActiveGuidance = errors.New("no active guidance")
	ErrSessionNotFound  = errors.New("training session not found")
	ErrUnknownAction    = errors.New("unknown action type")
)

type Mode string

const (
	ModeInactive Mode = "inactive"
	ModeTraining Mode = "training"
)

type SignalType string

const (
	SignalSessionStarted        SignalType = "TrainingSessionStarted"
	SignalTrainingAlreadyActive SignalType = "TrainingAlreadyActive"
	SignalSessionEnded          SignalType = "TrainingSessionEnded"
	SignalGuidanceDisplayed     SignalType = "UserGuidanceDisplayed"
	SignalPatternLearned        SignalType = SignalType(pattern.EventPatternLearned)
	SignalPatternLearningFailed SignalType = SignalType(pattern.EventPatternLearningFailed)
)

var instructionTemplates = map[pattern.ActionType]string{
	pattern.ActionFillText:      "Please click on the %s input field where you want to enter text.",
	pattern.ActionClickElement:  "Please click on the %s you want to be clicked.",
	pattern.ActionSelectProject: "Please click on the project %s in the project list.",
	pattern.ActionSelectChat:    "Please click on the chat %s in the chat list.",
}

// Instructions renders the per-action prompt shown to the user.
func Instructions(actionType pattern.ActionType, elementDescription string) (string, error) {
	tmpl, ok := instructionTemplates[actionType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, actionType)
	}
	desc := strings.TrimSpace(elementDescription)
	if desc == "" {
		desc = "target"
	}
	return fmt.Sprintf(tmpl, desc), nil
}

// Guidance is the instruction currently shown to the user.
type Guidance struct {
	ID                 uuid.UUID          `json:"id"`
	ActionType         pattern.ActionType `json:"action_type"`
	ElementDescription string             `json:"element_description"`
	Instructions       string             `json:"instructions"`
	Payload            map[string]any     `json:"payload"`
	Context            page.Context       `json:"context"`
	CorrelationID      string             `json:"correlation_id,omitempty"`
	RequestedAt        time.Time          `json:"requested_at"`
}

// LearnRequest is the hand-off from a confirmed guidance to pattern construction.
type LearnRequest struct {
	GuidanceID uuid.UUID          `json:"guidance_id"`
	ActionType pattern.ActionType `json:"action_type"`
	Selector   string             `json:"selector"`
	Payload    map[string]any     `json:"payload"`
	Context    page.Context       `json:"context"`
}

// Signal reports a session transition for the host to dispatch.
type Signal struct {
	Type       SignalType         `json:"type"`
	SessionID  uuid.UUID          `json:"session_id"`
	Website    string             `json:"website"`
	ActionType pattern.ActionType `json:"action_type,omitempty"`
	PatternID  uuid.UUID          `json:"pattern_id,omitempty"`
	Error      string             `json:"error,omitempty"`
	At         time.Time          `json:"at"`
}

// Outcome is the result of ElementSelected. Pattern is nil when learning failed.
type Outcome struct {
	Signal  Signal           `json:"signal"`
	Pattern *pattern.Pattern `json:"pattern,omitempty"`
}

// Learned reports whether a pattern was produced.
func (o Outcome) Learned() bool {
	return o.Pattern != nil
}

// Summary is returned when a session ends.
type Summary struct {
	SessionID       uuid.UUID     `json:"session_id"`
	Website         string        `json:"website"`
	Reason          string        `json:"reason,omitempty"`
	Duration        time.Duration `json:"duration"`
	PatternsLearned int           `json:"patterns_learned"`
	EndedAt         time.Time     `json:"ended_at"`
}

// Session holds one teaching episode. All transitions are plain methods
// returning values; callers dispatch the returned signals.
type Session struct {
	ID              uuid.UUID          `json:"id"`
	Website         string             `json:"website"`
	Mode            Mode               `json:"mode"`
	StartedAt       time.Time          `json:"started_at"`
	EndedAt         *time.Time         `json:"ended_at,omitempty"`
	CurrentContext  page.Context       `json:"current_context"`
	LearnedPatterns []*pattern.Pattern `json:"learned_patterns"`
	ActiveGuidance  *Guidance          `json:"active_guidance,omitempty"`
}

// NewSession creates an inactive session for website.
func NewSession(website string) *Session {
	return &Session{
		ID:              uuid.New(),
		Website:         strings.ToLower(website),
		Mode:            ModeInactive,
		LearnedPatterns: []*pattern.Pattern{},
	}
}

func (s *Session) IsActive() bool {
	return s.Mode == ModeTraining
}

// EnableTrainingMode starts training. When already active it changes nothing and
// returns SignalTrainingAlreadyActive.
func (s *Session) EnableTrainingMode(current page.Context) Signal {
	now := time.Now()
	if s.IsActive() {
		return s.signal(SignalTrainingAlreadyActive, now)
	}

	s.Mode = ModeTraining
	s.StartedAt = now
	s.EndedAt = nil
	s.CurrentContext = current
	s.ActiveGuidance = nil
	return s.signal(SignalSessionStarted, now)
}

// RequestElementSelection prompts the user to point at the element for actionType.
// payload, when given, becomes the template payload of the learned pattern.
func (s *Session) RequestElementSelection(actionType pattern.ActionType, elementDescription string, current page.Context, payload map[string]any) (*Guidance, error) {
	if !s.IsActive() {
		return nil, ErrSessionNotActive
	}
	instructions, err := Instructions(actionType, elementDescription)
	if err != nil {
		return nil, err
	}

	p := maps.Clone(payload)
	if p == nil {
		p = map[string]any{}
	}
	if _, ok := p[pattern.KeyElement]; !ok && elementDescription != "" {
		p[pattern.KeyElement] = elementDescription
	}

	g := &Guidance{
		ID:                 uuid.New(),
		ActionType:         actionType,
		ElementDescription: elementDescription,
		Instructions:       instructions,
		Payload:            p,
		Context:            current,
		RequestedAt:        time.Now(),
	}
	s.ActiveGuidance = g
	s.CurrentContext = current
	return g, nil
}

// UserConfirmed turns the active guidance into a learning request for selector.
func (s *Session) UserConfirmed(selector string) (LearnRequest, error) {
	if !s.IsActive() {
		return LearnRequest{}, ErrSessionNotActive
	}
	if s.ActiveGuidance == nil {
		return LearnRequest{}, ErrNoActiveGuidance
	}
	g := s.ActiveGuidance
	return LearnRequest{
		GuidanceID: g.ID,
		ActionType: g.ActionType,
		Selector:   strings.TrimSpace(selector),
		Payload:    maps.Clone(g.Payload),
		Context:    g.Context,
	}, nil
}

// ElementSelected builds a pattern from the active guidance. A construction failure is
// reported in the Outcome and leaves the session unchanged.
func (s *Session) ElementSelected(selector string, current page.Context) (Outcome, error) {
	if !s.IsActive() {
		return Outcome{}, ErrSessionNotActive
	}
	if s.ActiveGuidance == nil {
		return Outcome{}, ErrNoActiveGuidance
	}
	g := s.ActiveGuidance
	if current.IsZero() {
		current = g.Context
	}

	now := time.Now()
	p, err := pattern.New(g.ActionType, maps.Clone(g.Payload), selector, current)
	if err != nil {
		sig := s.signal(SignalPatternLearningFailed, now)
		sig.ActionType = g.ActionType
		sig.Error = err.Error()
		return Outcome{Signal: sig}, nil
	}

	s.LearnedPatterns = append(s.LearnedPatterns, p)
	s.ActiveGuidance = nil
	s.CurrentContext = current

	sig := s.signal(SignalPatternLearned, now)
	sig.ActionType = p.ActionType
	sig.PatternID = p.ID
	return Outcome{Signal: sig, Pattern: p}, nil
}

// UserCancelled drops the active guidance; the session keeps training.
func (s *Session) UserCancelled() error {
	if !s.IsActive() {
		return ErrSessionNotActive
	}
	s.ActiveGuidance = nil
	return nil
}

// EndTrainingSession returns to inactive and summarises the episode.
func (s *Session) EndTrainingSession(reason string) (Summary, error) {
	if !s.IsActive() {
		return Summary{}, ErrSessionNotActive
	}
	now := time.Now()
	s.Mode = ModeInactive
	s.EndedAt = &now
	s.ActiveGuidance = nil

	return Summary{
		SessionID:       s.ID,
		Website:         s.Website,
		Reason:          reason,
		Duration:        now.Sub(s.StartedAt),
		PatternsLearned: len(s.LearnedPatterns),
		EndedAt:         now,
	}, nil
}

func (s *Session) signal(t SignalType, at time.Time) Signal {
	return Signal{Type: t, SessionID: s.ID, Website: s.Website, At: at}
}

// Package engine routes automation requests: replay a learned pattern when one
// matches, otherwise ask the user to teach one.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/matcher"
	"github.com/aiox-platform/autopilot/internal/metrics"
	inats "github.com/aiox-platform/autopilot/internal/nats"
	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/pattern"
	"github.com/aiox-platform/autopilot/internal/training"
)

// ErrPatternBusy is returned when another execution holds the pattern's lock.
var ErrPatternBusy = errors.New("pattern is being executed")

// Decisions reported in an Outcome.
const (
	DecisionExecuted = "executed"
	DecisionTraining = "training"
)

// Matcher recommends a stored pattern for a request.
type Matcher interface {
	Match(ctx context.Context, req pattern.Request) (matcher.Recommendation, error)
}

// PatternStore reloads a pattern under its lock and persists execution statistics.
type PatternStore interface {
	Get(ctx context.Context, id uuid.UUID) (*pattern.Pattern, error)
	SaveStats(ctx context.Context, p *pattern.Pattern) error
}

// Trainer is the slice of training.Service the engine drives.
type Trainer interface {
	Get(ctx context.Context, id uuid.UUID) (*training.Session, error)
	Start(ctx context.Context, website string, current page.Context) (*training.Session, training.Signal, error)
	RequestSelection(ctx context.Context, id uuid.UUID, actionType pattern.ActionType, description string, payload map[string]any, correlationID string) (*training.Guidance, error)
	Confirm(ctx context.Context, id uuid.UUID, sel training.Selection) (training.Outcome, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Publisher is the slice of nats.Publisher the engine uses.
type Publisher interface {
	PublishPatternEvent(ctx context.Context, event inats.PatternEvent) error
	PublishTrainingEvent(ctx context.Context, event inats.TrainingEvent) error
	PublishGuidanceDisplayed(ctx context.Context, g inats.GuidanceDisplayed) error
}

// Outcome reports what Handle did with a request.
type Outcome struct {
	Decision       string                 `json:"decision"`
	Recommendation matcher.Recommendation `json:"recommendation"`
	Result         *pattern.Result        `json:"result,omitempty"`
	SessionID      uuid.UUID              `json:"session_id,omitempty"`
	Guidance       *training.Guidance     `json:"guidance,omitempty"`
}

type Engine struct {
	matcher   Matcher
	patterns  PatternStore
	trainer   Trainer
	locker    *Locker
	effector  pattern.Effector
	pages     page.ContextProvider
	publisher Publisher
}

// New wires the engine. pages and publisher may be nil.
func New(m Matcher, patterns PatternStore, trainer Trainer, locker *Locker, eff pattern.Effector, pages page.ContextProvider, pub Publisher) *Engine {
	return &Engine{
		matcher:   m,
		patterns:  patterns,
		trainer:   trainer,
		locker:    locker,
		effector:  eff,
		pages:     pages,
		publisher: pub,
	}
}

// Handle matches req against the stored patterns and either executes the
// recommended pattern or opens training for the request's website.
func (e *Engine) Handle(ctx context.Context, req pattern.Request) (Outcome, error) {
	if !req.ActionType.IsValid() {
		return Outcome{}, fmt.Errorf("%w: %q", training.ErrUnknownAction, req.ActionType)
	}
	if req.Context.IsZero() && e.pages != nil {
		current, err := e.pages.Current(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("capturing page context: %w", err)
		}
		req.Context = current
	}

	rec, err := e.matcher.Match(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	if rec.Execute {
		return e.execute(ctx, req, rec)
	}
	return e.train(ctx, req, rec)
}

// execute runs the recommended pattern under its lock. The pattern is reloaded
// after the lock is taken: the matched copy may predate another execution's
// saved statistics.
func (e *Engine) execute(ctx context.Context, req pattern.Request, rec matcher.Recommendation) (Outcome, error) {
	release, ok, err := e.locker.Acquire(ctx, rec.Pattern.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrPatternBusy, rec.Pattern.ID)
	}
	defer release()

	p, err := e.patterns.Get(ctx, rec.Pattern.ID)
	if errors.Is(err, pattern.ErrNotFound) {
		slog.Info("matched pattern retired before execution", "pattern_id", rec.Pattern.ID)
		return e.train(ctx, req, matcher.Recommendation{Outcome: matcher.OutcomeNoCandidate})
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("reloading pattern: %w", err)
	}
	rec.Pattern = p

	res := p.Execute(ctx, req, rec.Criteria.OverallScore, e.effector)

	if res.Attempted {
		status := "success"
		if !res.Succeeded() {
			status = "failure"
		}
		metrics.PatternExecutionsTotal.WithLabelValues(string(p.ActionType), status).Inc()
		metrics.PatternExecutionDuration.WithLabelValues(string(p.ActionType)).Observe(res.Duration.Seconds())

		if err := e.patterns.SaveStats(ctx, p); err != nil {
			return Outcome{}, fmt.Errorf("saving pattern statistics: %w", err)
		}
	} else {
		metrics.PatternExecutionsTotal.WithLabelValues(string(p.ActionType), "rejected").Inc()
	}

	if res.Succeeded() {
		slog.Info("pattern executed",
			"pattern_id", p.ID,
			"correlation_id", req.CorrelationID,
			"confidence", p.Confidence,
			"duration", res.Duration,
		)
	} else {
		slog.Warn("pattern execution failed",
			"pattern_id", p.ID,
			"correlation_id", req.CorrelationID,
			"reason", res.Reason,
		)
	}
	e.publishResult(ctx, p, req, res)

	return Outcome{Decision: DecisionExecuted, Recommendation: rec, Result: &res}, nil
}

func (e *Engine) train(ctx context.Context, req pattern.Request, rec matcher.Recommendation) (Outcome, error) {
	sess, _, err := e.trainer.Start(ctx, req.Context.Hostname, req.Context)
	if err != nil {
		return Outcome{}, fmt.Errorf("starting training: %w", err)
	}

	g, err := e.trainer.RequestSelection(ctx, sess.ID, req.ActionType,
		elementDescription(req.Payload), req.Payload, req.CorrelationID)
	if err != nil {
		return Outcome{}, fmt.Errorf("requesting element selection: %w", err)
	}

	slog.Info("no pattern matched, guidance requested",
		"session_id", sess.ID,
		"action_type", req.ActionType,
		"correlation_id", req.CorrelationID,
		"match_outcome", rec.Outcome,
	)
	return Outcome{Decision: DecisionTraining, Recommendation: rec, SessionID: sess.ID, Guidance: g}, nil
}

func (e *Engine) publishResult(ctx context.Context, p *pattern.Pattern, req pattern.Request, res pattern.Result) {
	if e.publisher == nil {
		return
	}
	event := inats.PatternEvent{
		EventID:              uuid.New(),
		EventType:            string(res.Event),
		PatternID:            p.ID,
		ActionType:           string(p.ActionType),
		CorrelationID:        req.CorrelationID,
		Hostname:             req.Context.Hostname,
		Reason:               res.Reason,
		Confidence:           p.Confidence,
		UsageCount:           p.UsageCount,
		SuccessfulExecutions: p.SuccessfulExecutions,
		DurationMs:           res.Duration.Milliseconds(),
		Timestamp:            time.Now().UTC(),
	}
	if err := e.publisher.PublishPatternEvent(ctx, event); err != nil {
		slog.Error("publishing pattern event", "pattern_id", p.ID, "error", err)
	}
}

// elementDescription names the target element for the guidance prompt.
func elementDescription(payload map[string]any) string {
	for _, key := range []string{pattern.KeyElement, pattern.KeyProjectName, pattern.KeyChatName} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

package engine

import (
	"context"

	"github.com/google/uuid"

	inats "github.com/aiox-platform/autopilot/internal/nats"
	"github.com/aiox-platform/autopilot/internal/training"
)

// Notifier publishes training signals and guidance prompts on the event streams.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) NotifySignal(ctx context.Context, sig training.Signal) error {
	event := inats.TrainingEvent{
		EventID:    uuid.New(),
		EventType:  string(sig.Type),
		SessionID:  sig.SessionID,
		Website:    sig.Website,
		ActionType: string(sig.ActionType),
		Error:      sig.Error,
		Timestamp:  sig.At.UTC(),
	}
	if sig.PatternID != uuid.Nil {
		id := sig.PatternID
		event.PatternID = &id
	}
	return n.pub.PublishTrainingEvent(ctx, event)
}

// NotifyGuidance sends the prompt to the UI and records it on the events stream.
func (n *Notifier) NotifyGuidance(ctx context.Context, sessionID uuid.UUID, g training.Guidance) error {
	err := n.pub.PublishGuidanceDisplayed(ctx, inats.GuidanceDisplayed{
		SessionID:          sessionID,
		GuidanceID:         g.ID,
		ActionType:         string(g.ActionType),
		ElementDescription: g.ElementDescription,
		Instructions:       g.Instructions,
		CorrelationID:      g.CorrelationID,
		DisplayedAt:        g.RequestedAt.UTC(),
	})
	if err != nil {
		return err
	}
	return n.pub.PublishTrainingEvent(ctx, inats.TrainingEvent{
		EventID:    uuid.New(),
		EventType:  string(training.SignalGuidanceDisplayed),
		SessionID:  sessionID,
		Website:    g.Context.Hostname,
		ActionType: string(g.ActionType),
		Timestamp:  g.RequestedAt.UTC(),
	})
}

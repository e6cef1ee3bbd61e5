package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/aiox-platform/autopilot/internal/metrics"
	inats "github.com/aiox-platform/autopilot/internal/nats"
)

const consumerName = "event-persister"

// Inserter persists one event.
type Inserter interface {
	Insert(ctx context.Context, e *Event) error
}

// Consumer listens on the events stream and writes every event to the log.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{repo: repo, consumerMgr: consumerMgr}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumerMgr.Consume(ctx, inats.StreamEvents, consumerName, inats.SubjectEventsAll, c.handleEvent)
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	event, err := decode(msg.Subject(), msg.Data())
	if err != nil {
		// Redelivery cannot fix a malformed payload.
		slog.Error("event consumer: decoding event", "subject", msg.Subject(), "error", err)
		_ = msg.Term()
		return
	}

	if err := c.repo.Insert(ctx, event); err != nil {
		slog.Error("event consumer: persisting event", "event_type", event.EventType, "error", err)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	metrics.EventsPersistedTotal.WithLabelValues(event.EventType).Inc()

	slog.Debug("event consumer: persisted event",
		"event_type", event.EventType,
		"pattern_id", event.PatternID,
		"session_id", event.SessionID,
	)
}

func decode(subject string, data []byte) (*Event, error) {
	switch subject {
	case inats.SubjectPatternEvent:
		var pe inats.PatternEvent
		if err := json.Unmarshal(data, &pe); err != nil {
			return nil, err
		}
		return fromPatternEvent(pe), nil
	case inats.SubjectTrainingEvent:
		var te inats.TrainingEvent
		if err := json.Unmarshal(data, &te); err != nil {
			return nil, err
		}
		return fromTrainingEvent(te), nil
	default:
		return nil, fmt.Errorf("unexpected subject %q", subject)
	}
}

func fromPatternEvent(pe inats.PatternEvent) *Event {
	id := pe.PatternID
	details, _ := json.Marshal(map[string]any{
		"action_type":           pe.ActionType,
		"hostname":              pe.Hostname,
		"reason":                pe.Reason,
		"confidence":            pe.Confidence,
		"usage_count":           pe.UsageCount,
		"successful_executions": pe.SuccessfulExecutions,
		"duration_ms":           pe.DurationMs,
	})
	return &Event{
		ID:            pe.EventID,
		EventType:     pe.EventType,
		PatternID:     &id,
		CorrelationID: pe.CorrelationID,
		Details:       details,
		CreatedAt:     pe.Timestamp,
	}
}

func fromTrainingEvent(te inats.TrainingEvent) *Event {
	sessionID := te.SessionID
	details, _ := json.Marshal(map[string]any{
		"website":     te.Website,
		"action_type": te.ActionType,
		"error":       te.Error,
	})
	return &Event{
		ID:        te.EventID,
		EventType: te.EventType,
		PatternID: te.PatternID,
		SessionID: &sessionID,
		Details:   details,
		CreatedAt: te.Timestamp,
	}
}

package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishExecuteRequest queues an automation request for the engine.
func (p *Publisher) PublishExecuteRequest(ctx context.Context, req ExecuteRequest) error {
	return p.publish(ctx, SubjectExecuteRequest, req)
}

// PublishGuidanceDisplayed publishes a guidance prompt for the UI.
func (p *Publisher) PublishGuidanceDisplayed(ctx context.Context, g GuidanceDisplayed) error {
	return p.publish(ctx, SubjectGuidanceDisplayed, g)
}

// PublishGuidanceResponse publishes the user's answer to a guidance prompt.
func (p *Publisher) PublishGuidanceResponse(ctx context.Context, r GuidanceResponse) error {
	return p.publish(ctx, SubjectGuidanceResponse, r)
}

// PublishPatternEvent publishes a pattern execution outcome.
func (p *Publisher) PublishPatternEvent(ctx context.Context, event PatternEvent) error {
	return p.publish(ctx, SubjectPatternEvent, event)
}

// PublishTrainingEvent publishes a training session event.
func (p *Publisher) PublishTrainingEvent(ctx context.Context, event TrainingEvent) error {
	return p.publish(ctx, SubjectTrainingEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

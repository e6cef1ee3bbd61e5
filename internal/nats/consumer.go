package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// FetchBatch is how many messages a consume loop pulls per fetch.
const FetchBatch = 10

// ConsumerManager handles durable consumer creation and retrieval.
type ConsumerManager struct {
	js jetstream.JetStream
}

// NewConsumerManager creates a new ConsumerManager.
func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// EnsureConsumer creates or updates a durable consumer on the given stream.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, stream, name, filterSubject string) (jetstream.Consumer, error) {
	cfg := jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}

	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, stream, cfg)
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, stream, err)
	}
	return consumer, nil
}

// Handler processes one message and is responsible for acking it.
type Handler func(ctx context.Context, msg jetstream.Msg)

// Consume ensures a durable consumer and feeds its messages to handle one at a time,
// in stream order. Blocks until ctx is cancelled.
func (cm *ConsumerManager) Consume(ctx context.Context, stream, name, filterSubject string, handle Handler) error {
	consumer, err := cm.EnsureConsumer(ctx, stream, name, filterSubject)
	if err != nil {
		return err
	}

	slog.Info("consumer started", "consumer", name, "subject", filterSubject)

	for {
		msgs, err := consumer.Fetch(FetchBatch, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching messages", "consumer", name, "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

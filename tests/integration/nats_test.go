//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aiox-platform/autopilot/internal/config"
	"github.com/aiox-platform/autopilot/internal/eventlog"
	inats "github.com/aiox-platform/autopilot/internal/nats"
)

func setupNATSContainer(t *testing.T) *inats.Client {
	t.Helper()
	ctx := context.Background()

	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--jetstream", "--store_dir", "/data"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { natsContainer.Terminate(ctx) })

	host, _ := natsContainer.Host(ctx)
	port, _ := natsContainer.MappedPort(ctx, "4222")

	client, err := inats.NewClient(ctx, config.NATSConfig{
		URL: fmt.Sprintf("nats://%s:%s", host, port.Port()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestNATSPublishConsume(t *testing.T) {
	client := setupNATSContainer(t)
	ctx := context.Background()

	publisher := inats.NewPublisher(client.JetStream())
	consumerMgr := inats.NewConsumerManager(client.JetStream())

	t.Run("publish and fetch execute request", func(t *testing.T) {
		req := inats.ExecuteRequest{
			RequestID:     "req-1",
			ActionType:    "fill_text",
			Payload:       map[string]any{"value": "hello"},
			URL:           "https://chat.example.com/",
			CorrelationID: "corr-1",
			RequestedAt:   time.Now().UTC(),
		}
		require.NoError(t, publisher.PublishExecuteRequest(ctx, req))

		consumer, err := consumerMgr.EnsureConsumer(ctx, inats.StreamRequests, "test-consumer", inats.SubjectExecuteRequest)
		require.NoError(t, err)

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		var received inats.ExecuteRequest
		for m := range msgs.Messages() {
			require.NoError(t, json.Unmarshal(m.Data(), &received))
			_ = m.Ack()
		}

		assert.Equal(t, "req-1", received.RequestID)
		assert.Equal(t, "hello", received.Payload["value"])
	})

	t.Run("NATS client answers ping", func(t *testing.T) {
		assert.NoError(t, client.Ping(ctx))
	})
}

func TestEventLogConsumerPersistsPatternEvents(t *testing.T) {
	env := SetupTestEnv(t)
	client := setupNATSContainer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := eventlog.NewConsumer(env.Events, inats.NewConsumerManager(client.JetStream()))
	go func() { _ = consumer.Start(ctx) }()

	patternID := uuid.New()
	publisher := inats.NewPublisher(client.JetStream())
	require.NoError(t, publisher.PublishPatternEvent(ctx, inats.PatternEvent{
		EventID:    uuid.New(),
		EventType:  "AutomationPatternExecuted",
		PatternID:  patternID,
		ActionType: "click_element",
		Confidence: 0.95,
		Timestamp:  time.Now().UTC(),
	}))

	require.Eventually(t, func() bool {
		_, total, err := env.Events.ListByPattern(ctx, patternID, eventlog.DefaultListParams())
		return err == nil && total == 1
	}, 10*time.Second, 100*time.Millisecond)
}

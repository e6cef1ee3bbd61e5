package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/aiox-platform/autopilot/internal/nats"
	"github.com/aiox-platform/autopilot/internal/nats/natstest"
)

type recordingInserter struct {
	events []*Event
	err    error
}

func (r *recordingInserter) Insert(_ context.Context, e *Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func TestHandleEvent_PatternEvent(t *testing.T) {
	repo := &recordingInserter{}
	c := NewConsumer(repo, nil)

	pe := inats.PatternEvent{
		EventID:              uuid.New(),
		EventType:            "AutomationPatternExecuted",
		PatternID:            uuid.New(),
		ActionType:           "fill_text",
		CorrelationID:        "corr-1",
		Hostname:             "chat.example.com",
		Confidence:           1.05,
		UsageCount:           1,
		SuccessfulExecutions: 1,
		DurationMs:           12,
		Timestamp:            time.Now().UTC(),
	}
	msg := natstest.NewJSONMsg(inats.SubjectPatternEvent, pe)

	c.handleEvent(context.Background(), msg)

	assert.True(t, msg.Acked)
	require.Len(t, repo.events, 1)
	got := repo.events[0]
	assert.Equal(t, pe.EventID, got.ID)
	assert.Equal(t, "AutomationPatternExecuted", got.EventType)
	require.NotNil(t, got.PatternID)
	assert.Equal(t, pe.PatternID, *got.PatternID)
	assert.Nil(t, got.SessionID)
	assert.Equal(t, "corr-1", got.CorrelationID)

	var details map[string]any
	require.NoError(t, json.Unmarshal(got.Details, &details))
	assert.Equal(t, "chat.example.com", details["hostname"])
	assert.InDelta(t, 1.05, details["confidence"], 1e-9)
}

func TestHandleEvent_TrainingEvent(t *testing.T) {
	repo := &recordingInserter{}
	c := NewConsumer(repo, nil)

	patternID := uuid.New()
	te := inats.TrainingEvent{
		EventID:    uuid.New(),
		EventType:  "PatternLearned",
		SessionID:  uuid.New(),
		Website:    "chat.example.com",
		ActionType: "click_element",
		PatternID:  &patternID,
		Timestamp:  time.Now().UTC(),
	}
	msg := natstest.NewJSONMsg(inats.SubjectTrainingEvent, te)

	c.handleEvent(context.Background(), msg)

	assert.True(t, msg.Acked)
	require.Len(t, repo.events, 1)
	got := repo.events[0]
	require.NotNil(t, got.SessionID)
	assert.Equal(t, te.SessionID, *got.SessionID)
	require.NotNil(t, got.PatternID)
	assert.Equal(t, patternID, *got.PatternID)
}

func TestHandleEvent_TrainingEventWithoutPattern(t *testing.T) {
	repo := &recordingInserter{}
	c := NewConsumer(repo, nil)

	msg := natstest.NewJSONMsg(inats.SubjectTrainingEvent, inats.TrainingEvent{
		EventID:   uuid.New(),
		EventType: "TrainingSessionStarted",
		SessionID: uuid.New(),
		Website:   "chat.example.com",
		Timestamp: time.Now().UTC(),
	})

	c.handleEvent(context.Background(), msg)

	require.Len(t, repo.events, 1)
	assert.Nil(t, repo.events[0].PatternID)
}

func TestHandleEvent_MalformedIsTerminated(t *testing.T) {
	repo := &recordingInserter{}
	c := NewConsumer(repo, nil)

	msg := natstest.NewMsg(inats.SubjectPatternEvent, []byte("{not json"))
	c.handleEvent(context.Background(), msg)

	assert.True(t, msg.Termed)
	assert.False(t, msg.Acked)
	assert.Empty(t, repo.events)
}

func TestHandleEvent_UnknownSubjectIsTerminated(t *testing.T) {
	c := NewConsumer(&recordingInserter{}, nil)

	msg := natstest.NewMsg("autopilot.events.other", []byte(`{}`))
	c.handleEvent(context.Background(), msg)

	assert.True(t, msg.Termed)
}

func TestHandleEvent_InsertFailureNaks(t *testing.T) {
	repo := &recordingInserter{err: errors.New("db down")}
	c := NewConsumer(repo, nil)

	msg := natstest.NewJSONMsg(inats.SubjectPatternEvent, inats.PatternEvent{
		EventID:   uuid.New(),
		EventType: "PatternExecutionFailed",
		PatternID: uuid.New(),
		Timestamp: time.Now().UTC(),
	})
	c.handleEvent(context.Background(), msg)

	assert.True(t, msg.Nacked)
	assert.False(t, msg.Acked)
}

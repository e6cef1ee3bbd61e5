package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/aiox-platform/autopilot/internal/nats"
	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/pattern"
	"github.com/aiox-platform/autopilot/internal/training"
)

const (
	requestConsumer  = "engine-requests"
	guidanceConsumer = "engine-guidance"

	busyRetryDelay = time.Second
)

// Start consumes execute requests and guidance responses until ctx is cancelled.
// A failing consumer stops the other one.
func (e *Engine) Start(ctx context.Context, cm *inats.ConsumerManager) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	run := func(stream, name, subject string, handle inats.Handler) {
		defer wg.Done()
		if err := cm.Consume(ctx, stream, name, subject, handle); err != nil {
			errCh <- err
			cancel()
		}
	}

	wg.Add(2)
	go run(inats.StreamRequests, requestConsumer, inats.SubjectExecuteRequest, e.handleExecuteRequest)
	go run(inats.StreamGuidance, guidanceConsumer, inats.SubjectGuidanceResponse, e.handleGuidanceResponse)
	wg.Wait()
	close(errCh)

	return <-errCh
}

func (e *Engine) handleExecuteRequest(ctx context.Context, msg jetstream.Msg) {
	var in inats.ExecuteRequest
	if err := json.Unmarshal(msg.Data(), &in); err != nil {
		slog.Error("engine: unmarshaling execute request", "error", err)
		_ = msg.Term()
		return
	}

	out, err := e.Handle(ctx, toRequest(in))
	switch {
	case err == nil:
		_ = msg.Ack()
		slog.Debug("engine: request handled",
			"request_id", in.RequestID,
			"correlation_id", in.CorrelationID,
			"decision", out.Decision,
		)
	case errors.Is(err, ErrPatternBusy):
		_ = msg.NakWithDelay(busyRetryDelay)
	case errors.Is(err, training.ErrUnknownAction):
		slog.Warn("engine: rejecting execute request", "request_id", in.RequestID, "error", err)
		_ = msg.Term()
	default:
		slog.Error("engine: handling execute request", "request_id", in.RequestID, "error", err)
		_ = msg.Nak()
	}
}

func (e *Engine) handleGuidanceResponse(ctx context.Context, msg jetstream.Msg) {
	var resp inats.GuidanceResponse
	if err := json.Unmarshal(msg.Data(), &resp); err != nil {
		slog.Error("engine: unmarshaling guidance response", "error", err)
		_ = msg.Term()
		return
	}

	err := e.Respond(ctx, resp)
	switch {
	case err == nil:
		_ = msg.Ack()
	case isProtocolError(err):
		// Out-of-order or stale responses are dropped, never retried.
		slog.Warn("engine: discarding guidance response",
			"session_id", resp.SessionID,
			"guidance_id", resp.GuidanceID,
			"correlation_id", resp.CorrelationID,
			"error", err,
		)
		_ = msg.Term()
	default:
		slog.Error("engine: handling guidance response", "session_id", resp.SessionID, "error", err)
		_ = msg.Nak()
	}
}

// ErrStaleGuidance is returned when a response targets a guidance that is no longer active.
var ErrStaleGuidance = errors.New("guidance is no longer active")

// ErrUnknownResponse is returned for a response kind other than confirmed or cancelled.
var ErrUnknownResponse = errors.New("unknown guidance response")

// Respond routes the user's answer to a displayed guidance to the training service.
func (e *Engine) Respond(ctx context.Context, resp inats.GuidanceResponse) error {
	sess, err := e.trainer.Get(ctx, resp.SessionID)
	if err != nil {
		return err
	}
	if sess.ActiveGuidance == nil {
		return training.ErrNoActiveGuidance
	}
	if resp.GuidanceID != uuid.Nil && resp.GuidanceID != sess.ActiveGuidance.ID {
		return ErrStaleGuidance
	}

	switch resp.Response {
	case inats.ResponseConfirmed:
		out, err := e.trainer.Confirm(ctx, resp.SessionID, training.Selection{
			Selector: resp.Selector,
			Element:  resp.Element,
		})
		if err != nil {
			return err
		}
		if !out.Learned() {
			slog.Warn("engine: selection did not produce a pattern",
				"session_id", resp.SessionID,
				"error", out.Signal.Error,
			)
		}
		return nil
	case inats.ResponseCancelled:
		return e.trainer.Cancel(ctx, resp.SessionID)
	default:
		return ErrUnknownResponse
	}
}

func isProtocolError(err error) bool {
	return errors.Is(err, training.ErrSessionNotFound) ||
		errors.Is(err, training.ErrSessionNotActive) ||
		errors.Is(err, training.ErrNoActiveGuidance) ||
		errors.Is(err, ErrStaleGuidance) ||
		errors.Is(err, ErrUnknownResponse)
}

func toRequest(in inats.ExecuteRequest) pattern.Request {
	req := pattern.Request{
		ActionType:    pattern.ActionType(in.ActionType),
		Payload:       in.Payload,
		CorrelationID: in.CorrelationID,
	}
	if in.URL != "" {
		at := in.RequestedAt
		if at.IsZero() {
			at = time.Now()
		}
		req.Context = page.NewContext(in.URL, in.Title, in.PageStructureHash, at)
	}
	return req
}

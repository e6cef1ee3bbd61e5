package pattern

import (
	"context"
	"fmt"
	"time"
)

// Guard failure reasons. Statistics are untouched when any is returned.
const (
	ReasonActionMismatch = "action type mismatch"
	ReasonContextInvalid = "context validation failed"
	ReasonLowConfidence  = "confidence too low"
)

// Action is what the effector performs: the learned selector with the request's payload.
type Action struct {
	Type     ActionType
	Selector string
	Payload  map[string]any
}

// Effector performs an action on the live page.
type Effector interface {
	Perform(ctx context.Context, a Action) error
}

// Execute runs p for req on the page. matchConfidence is the OverallScore that
// selected p. Guard failures leave statistics untouched; effect outcomes update them.
func (p *Pattern) Execute(ctx context.Context, req Request, matchConfidence float64, eff Effector) Result {
	res := Result{
		PatternID:     p.ID,
		ActionType:    p.ActionType,
		CorrelationID: req.CorrelationID,
	}

	if req.ActionType != p.ActionType {
		res.Event = EventPatternExecutionFailed
		res.Reason = ReasonActionMismatch
		return res
	}
	if !p.IsValidForContext(req.Context) {
		res.Event = EventPatternExecutionFailed
		res.Reason = ReasonContextInvalid
		return res
	}
	if matchConfidence < MinExecutionConfidence {
		res.Event = EventPatternExecutionFailed
		res.Reason = ReasonLowConfidence
		return res
	}

	start := time.Now()
	err := perform(ctx, eff, Action{Type: p.ActionType, Selector: p.Selector, Payload: req.Payload})
	res.Duration = time.Since(start)
	res.Attempted = true

	rec := ExecutionRecord{
		Timestamp:     time.Now(),
		Success:       err == nil,
		CorrelationID: req.CorrelationID,
	}
	if err != nil {
		rec.Error = err.Error()
		res.Event = EventPatternExecutionFailed
		res.Reason = err.Error()
	} else {
		res.Event = EventPatternExecuted
	}
	p.recordOutcome(rec, SuccessStep, FailureStep)
	return res
}

// perform turns effector panics into errors so Execute never unwinds.
func perform(ctx context.Context, eff Effector, a Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("effector panic: %v", r)
		}
	}()
	if eff == nil {
		return fmt.Errorf("no effector configured")
	}
	return eff.Perform(ctx, a)
}

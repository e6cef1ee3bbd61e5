package pattern

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/selector"
	"github.com/aiox-platform/autopilot/internal/similarity"
)

const (
	InitialConfidence = 1.0
	MinConfidence     = 0.1
	MaxConfidence     = 2.0

	// Execute feedback.
	SuccessStep = 0.05
	FailureStep = 0.10
	// Feedback recorded outside Execute.
	ExternalSuccessStep = 0.1

	HistorySize = 10

	MinExecutionConfidence = 0.6
	GoodMatchScore         = 0.7
	GoodMatchContext       = 0.6

	payloadWeight    = 0.4
	contextWeight    = 0.3
	confidenceWeight = 0.3

	MaxPatternAge       = 30 * 24 * time.Hour
	staleAge            = 7 * 24 * time.Hour
	retrainAge          = 14 * 24 * time.Hour
	retrainIdle         = 7 * 24 * time.Hour
	minPathCompat       = 0.5
	provenSuccessRate   = 0.8
	retrainSuccessRate  = 0.5
	retrainMinUses      = 3
	recentWindow        = 5
	recentFailureLimit  = 3
	frequentUseBonusMin = 5
)

// ErrInvalidPattern wraps construction failures.
var ErrInvalidPattern = errors.New("invalid pattern")

// New builds a freshly learned pattern with initial statistics.
func New(actionType ActionType, payload map[string]any, sel string, ctx page.Context) (*Pattern, error) {
	if !actionType.IsValid() {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrInvalidPattern, actionType)
	}
	sel = strings.TrimSpace(sel)
	if err := selector.Validate(sel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = time.Now()
	}
	if payload == nil {
		payload = map[string]any{}
	}

	now := time.Now()
	return &Pattern{
		ID:               uuid.New(),
		ActionType:       actionType,
		Payload:          payload,
		Selector:         sel,
		Context:          ctx,
		Confidence:       InitialConfidence,
		ExecutionHistory: []ExecutionRecord{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// SuccessRate is successful executions over uses; 0 before the first use.
func (p *Pattern) SuccessRate() float64 {
	if p.UsageCount == 0 {
		return 0
	}
	return float64(p.SuccessfulExecutions) / float64(p.UsageCount)
}

// Age is measured from the captured context timestamp, which never changes.
func (p *Pattern) Age() time.Duration {
	return p.ageAt(time.Now())
}

func (p *Pattern) ageAt(now time.Time) time.Duration {
	return now.Sub(p.Context.Timestamp)
}

// LastExecutedAt returns the newest recorded outcome, or the capture time when never executed.
func (p *Pattern) LastExecutedAt() time.Time {
	if n := len(p.ExecutionHistory); n > 0 {
		return p.ExecutionHistory[n-1].Timestamp
	}
	return p.Context.Timestamp
}

// EvaluateMatch scores req against p without mutating anything.
func (p *Pattern) EvaluateMatch(req Request) MatchCriteria {
	c := MatchCriteria{
		ActionTypeMatch:      req.ActionType == p.ActionType,
		PayloadSimilarity:    similarity.Payload(p.Payload, req.Payload),
		ContextCompatibility: similarity.Context(p.Context, req.Context),
		ConfidenceThreshold:  p.ReliabilityScore(),
	}
	if c.ActionTypeMatch {
		c.OverallScore = payloadWeight*c.PayloadSimilarity +
			contextWeight*c.ContextCompatibility +
			confidenceWeight*p.Confidence
	}
	return c
}

// IsGoodMatch applies the fixed acceptance thresholds.
func IsGoodMatch(c MatchCriteria) bool {
	return c.ActionTypeMatch &&
		c.OverallScore >= GoodMatchScore &&
		c.ContextCompatibility >= GoodMatchContext
}

// IsValidForContext is the strict gate applied before execution.
func (p *Pattern) IsValidForContext(current page.Context) bool {
	return p.validForContextAt(current, time.Now())
}

func (p *Pattern) validForContextAt(current page.Context, now time.Time) bool {
	if p.Context.Hostname == "" || p.Context.Hostname != current.Hostname {
		return false
	}
	if similarity.PathOverlap(p.Context.Pathname, current.Pathname) < minPathCompat {
		return false
	}
	if p.ageAt(now) > MaxPatternAge {
		return false
	}
	if p.Context.PageStructureHash != "" && current.PageStructureHash != "" &&
		p.Context.PageStructureHash != current.PageStructureHash {
		// Only well-proven patterns survive a structural page change.
		return p.SuccessRate() > provenSuccessRate
	}
	return true
}

// ReliabilityScore combines confidence, success rate and age into 0..1.
func (p *Pattern) ReliabilityScore() float64 {
	return p.reliabilityAt(time.Now())
}

func (p *Pattern) reliabilityAt(now time.Time) float64 {
	score := p.Confidence * (0.5 + p.SuccessRate()*0.5)

	switch age := p.ageAt(now); {
	case age > MaxPatternAge:
		score *= 0.3
	case age > staleAge:
		score *= 0.7
	}

	if p.UsageCount >= frequentUseBonusMin {
		score *= 1.1
	}
	return clamp(score, 0, 1)
}

// ReliabilityLevel bands ReliabilityScore.
func (p *Pattern) ReliabilityLevel() ReliabilityLevel {
	return levelFor(p.ReliabilityScore())
}

func levelFor(score float64) ReliabilityLevel {
	switch {
	case score >= 0.8:
		return ReliabilityHigh
	case score >= 0.6:
		return ReliabilityMedium
	case score >= 0.4:
		return ReliabilityLow
	default:
		return ReliabilityUnreliable
	}
}

// ShouldBeRetrained flags patterns that fail too often, went stale, or recently broke.
func (p *Pattern) ShouldBeRetrained() bool {
	return p.shouldBeRetrainedAt(time.Now())
}

func (p *Pattern) shouldBeRetrainedAt(now time.Time) bool {
	if p.UsageCount >= retrainMinUses && p.SuccessRate() < retrainSuccessRate {
		return true
	}
	if p.ageAt(now) > retrainAge && now.Sub(p.LastExecutedAt()) > retrainIdle {
		return true
	}
	return p.recentFailures() >= recentFailureLimit
}

func (p *Pattern) recentFailures() int {
	recent := p.ExecutionHistory
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	failures := 0
	for _, r := range recent {
		if !r.Success {
			failures++
		}
	}
	return failures
}

// RecordExternalSuccess applies feedback for a success observed outside Execute.
// It must not be called for an execution Execute already recorded.
func (p *Pattern) RecordExternalSuccess(correlationID string) {
	p.recordOutcome(ExecutionRecord{
		Timestamp:     time.Now(),
		Success:       true,
		CorrelationID: correlationID,
	}, ExternalSuccessStep, FailureStep)
}

// recordOutcome is the single place statistics change.
func (p *Pattern) recordOutcome(rec ExecutionRecord, up, down float64) {
	p.UsageCount++
	if rec.Success {
		p.SuccessfulExecutions++
		p.Confidence = min(p.Confidence+up, MaxConfidence)
	} else {
		p.Confidence = max(p.Confidence-down, MinConfidence)
	}

	p.ExecutionHistory = append(p.ExecutionHistory, rec)
	if n := len(p.ExecutionHistory); n > HistorySize {
		p.ExecutionHistory = append([]ExecutionRecord(nil), p.ExecutionHistory[n-HistorySize:]...)
	}
	p.UpdatedAt = rec.Timestamp
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

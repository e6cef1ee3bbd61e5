// Package matcher selects a learned pattern for an incoming automation request.
package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aiox-platform/autopilot/internal/metrics"
	"github.com/aiox-platform/autopilot/internal/pattern"
	"github.com/aiox-platform/autopilot/internal/similarity"
)

// PayloadAcceptance is the payload similarity a candidate must exceed to be picked.
const PayloadAcceptance = 0.5

// Match outcomes, also used as metric labels.
const (
	OutcomeMatched        = "matched"
	OutcomeNoCandidate    = "no_candidate"
	OutcomeWeakMatch      = "weak_match"
	OutcomeInvalidContext = "invalid_context"
)

// FindBestMatch returns the first same-action candidate, in pool order, whose payload
// similarity exceeds PayloadAcceptance. It is a first-match policy, not best-of-all.
func FindBestMatch(req pattern.Request, pool []*pattern.Pattern) *pattern.Pattern {
	for _, p := range pool {
		if p.ActionType != req.ActionType {
			continue
		}
		if similarity.Payload(p.Payload, req.Payload) > PayloadAcceptance {
			return p
		}
	}
	return nil
}

// RecordSuccessfulExecution records a success tracked outside pattern execution.
// Never call it for an outcome Execute already recorded.
func RecordSuccessfulExecution(p *pattern.Pattern) {
	p.RecordExternalSuccess("")
}

// Recommendation is the verdict on a request: which pattern, how well it scored,
// and whether it is safe to execute autonomously.
type Recommendation struct {
	Pattern  *pattern.Pattern      `json:"pattern,omitempty"`
	Criteria pattern.MatchCriteria `json:"criteria"`
	Execute  bool                  `json:"execute"`
	Outcome  string                `json:"outcome"`
}

// Recommend finds a candidate and applies both the scoring and the strict context gate.
func Recommend(req pattern.Request, pool []*pattern.Pattern) Recommendation {
	p := FindBestMatch(req, pool)
	if p == nil {
		return Recommendation{Outcome: OutcomeNoCandidate}
	}

	rec := Recommendation{Pattern: p, Criteria: p.EvaluateMatch(req)}
	switch {
	case !pattern.IsGoodMatch(rec.Criteria):
		rec.Outcome = OutcomeWeakMatch
	case !p.IsValidForContext(req.Context):
		rec.Outcome = OutcomeInvalidContext
	default:
		rec.Outcome = OutcomeMatched
		rec.Execute = true
	}
	return rec
}

// CandidateSource lists stored patterns in storage order.
type CandidateSource interface {
	Candidates(ctx context.Context, f pattern.Filter) ([]*pattern.Pattern, error)
}

// Matcher runs Recommend against the stored candidates for a request's page.
type Matcher struct {
	source CandidateSource
}

func New(source CandidateSource) *Matcher {
	return &Matcher{source: source}
}

// Match loads candidates for the request's action type and hostname and recommends one.
func (m *Matcher) Match(ctx context.Context, req pattern.Request) (Recommendation, error) {
	pool, err := m.source.Candidates(ctx, pattern.Filter{
		ActionType: req.ActionType,
		Hostname:   req.Context.Hostname,
	})
	if err != nil {
		return Recommendation{}, fmt.Errorf("loading candidates: %w", err)
	}

	rec := Recommend(req, pool)
	metrics.MatchAttemptsTotal.WithLabelValues(rec.Outcome).Inc()
	if rec.Pattern != nil {
		metrics.MatchScore.Observe(rec.Criteria.OverallScore)
	}

	slog.Debug("pattern match",
		"correlation_id", req.CorrelationID,
		"action_type", req.ActionType,
		"hostname", req.Context.Hostname,
		"candidates", len(pool),
		"outcome", rec.Outcome,
		"score", rec.Criteria.OverallScore,
	)
	return rec, nil
}

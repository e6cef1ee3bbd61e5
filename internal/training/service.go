package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/metrics"
	"github.com/aiox-platform/autopilot/internal/page"
	"github.com/aiox-platform/autopilot/internal/pattern"
	"github.com/aiox-platform/autopilot/internal/selector"
)

// ErrSelectorNotUnique is reported when a selector does not resolve to exactly one element.
var ErrSelectorNotUnique = errors.New("selector does not match exactly one element")

// PatternStore persists learned patterns.
type PatternStore interface {
	Store(ctx context.Context, p *pattern.Pattern) error
}

// Notifier delivers session signals and guidance to the UI side.
type Notifier interface {
	NotifySignal(ctx context.Context, sig Signal) error
	NotifyGuidance(ctx context.Context, sessionID uuid.UUID, g Guidance) error
}

// Selection identifies the element the user picked: an explicit selector, or a
// descriptor to generate one from.
type Selection struct {
	Selector string            `json:"selector"`
	Element  *selector.Element `json:"element"`
}

type Service struct {
	store    *Store
	patterns PatternStore
	dom      page.Accessor
	pages    page.ContextProvider
	notifier Notifier
}

// NewService wires the training workflow. dom, pages and notifier may be nil.
func NewService(store *Store, patterns PatternStore, dom page.Accessor, pages page.ContextProvider, notifier Notifier) *Service {
	return &Service{
		store:    store,
		patterns: patterns,
		dom:      dom,
		pages:    pages,
		notifier: notifier,
	}
}

// Get loads a session by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.store.Get(ctx, id)
}

// ActiveFor returns the active session for website, or nil.
func (s *Service) ActiveFor(ctx context.Context, website string) (*Session, error) {
	return s.store.ActiveFor(ctx, website)
}

// Start enables training for website, reusing the active session if one exists.
func (s *Service) Start(ctx context.Context, website string, current page.Context) (*Session, Signal, error) {
	website = strings.ToLower(strings.TrimSpace(website))
	if website == "" {
		website = current.Hostname
	}

	sess, err := s.store.ActiveFor(ctx, website)
	if err != nil {
		return nil, Signal{}, err
	}
	if sess == nil {
		sess = NewSession(website)
	}

	current, err = s.currentContext(ctx, current)
	if err != nil {
		return nil, Signal{}, err
	}

	sig := sess.EnableTrainingMode(current)
	if sig.Type == SignalTrainingAlreadyActive {
		return sess, sig, nil
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, Signal{}, err
	}

	s.refreshActiveGauge(ctx)
	slog.Info("training session started", "session_id", sess.ID, "website", sess.Website)
	s.notify(ctx, sig)
	return sess, sig, nil
}

// RequestSelection asks the user to point at the element for actionType.
func (s *Service) RequestSelection(ctx context.Context, id uuid.UUID, actionType pattern.ActionType, description string, payload map[string]any, correlationID string) (*Guidance, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.currentContext(ctx, sess.CurrentContext)
	if err != nil {
		return nil, err
	}

	g, err := sess.RequestElementSelection(actionType, description, current, payload)
	if err != nil {
		return nil, err
	}
	g.CorrelationID = correlationID
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyGuidance(ctx, sess.ID, *g); err != nil {
			slog.Error("publishing guidance", "session_id", sess.ID, "error", err)
		}
	}
	return g, nil
}

// Confirm learns a pattern from the user's selection for the active guidance.
// Learning failures come back as an Outcome without a pattern; only protocol
// and infrastructure problems are errors.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, sel Selection) (Outcome, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := sess.UserConfirmed(sel.Selector); err != nil {
		return Outcome{}, err
	}

	current, err := s.currentContext(ctx, sess.ActiveGuidance.Context)
	if err != nil {
		return Outcome{}, err
	}

	resolved, err := s.resolve(ctx, sel)
	if err != nil {
		sig := sess.signal(SignalPatternLearningFailed, time.Now())
		sig.ActionType = sess.ActiveGuidance.ActionType
		sig.Error = err.Error()
		slog.Warn("pattern learning failed", "session_id", sess.ID, "error", err)
		s.notify(ctx, sig)
		return Outcome{Signal: sig}, nil
	}

	out, err := sess.ElementSelected(resolved, current)
	if err != nil {
		return Outcome{}, err
	}
	if !out.Learned() {
		slog.Warn("pattern learning failed", "session_id", sess.ID, "error", out.Signal.Error)
		s.notify(ctx, out.Signal)
		return out, nil
	}

	if err := s.patterns.Store(ctx, out.Pattern); err != nil {
		return Outcome{}, fmt.Errorf("storing learned pattern: %w", err)
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return Outcome{}, err
	}

	metrics.PatternsLearnedTotal.WithLabelValues(string(out.Pattern.ActionType)).Inc()
	slog.Info("pattern learned",
		"session_id", sess.ID,
		"pattern_id", out.Pattern.ID,
		"action_type", out.Pattern.ActionType,
		"selector", out.Pattern.Selector,
	)
	s.notify(ctx, out.Signal)
	return out, nil
}

// Cancel drops the active guidance.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := sess.UserCancelled(); err != nil {
		return err
	}
	return s.store.Save(ctx, sess)
}

// End finishes the session and returns its summary.
func (s *Service) End(ctx context.Context, id uuid.UUID, reason string) (Summary, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	summary, err := sess.EndTrainingSession(reason)
	if err != nil {
		return Summary{}, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return Summary{}, err
	}

	s.refreshActiveGauge(ctx)
	slog.Info("training session ended",
		"session_id", sess.ID,
		"reason", reason,
		"duration", summary.Duration,
		"patterns_learned", summary.PatternsLearned,
	)
	sig := sess.signal(SignalSessionEnded, summary.EndedAt)
	s.notify(ctx, sig)
	return summary, nil
}

// refreshActiveGauge sets the active-session gauge from the store, which also
// accounts for sessions that expired without being ended.
func (s *Service) refreshActiveGauge(ctx context.Context) {
	n, err := s.store.CountActive(ctx)
	if err != nil {
		slog.Warn("counting active training sessions", "error", err)
		return
	}
	metrics.TrainingSessionsActive.Set(float64(n))
}

// resolve picks a selector that matches exactly one element on the live page.
// Generated candidates are tried in priority order.
func (s *Service) resolve(ctx context.Context, sel Selection) (string, error) {
	var candidates []string
	if explicit := strings.TrimSpace(sel.Selector); explicit != "" {
		if err := selector.Validate(explicit); err != nil {
			return "", err
		}
		candidates = []string{explicit}
	} else if sel.Element != nil {
		for _, c := range selector.Candidates(*sel.Element) {
			candidates = append(candidates, c.Selector)
		}
	} else {
		return "", selector.ErrEmpty
	}

	if s.dom == nil {
		return candidates[0], nil
	}
	for _, c := range candidates {
		n, err := s.dom.Count(ctx, c)
		if err != nil {
			return "", fmt.Errorf("counting matches for %q: %w", c, err)
		}
		if n == 1 {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSelectorNotUnique, candidates[0])
}

// currentContext prefers the live page; fallback is used without a provider.
func (s *Service) currentContext(ctx context.Context, fallback page.Context) (page.Context, error) {
	if s.pages == nil {
		return fallback, nil
	}
	current, err := s.pages.Current(ctx)
	if err != nil {
		return page.Context{}, fmt.Errorf("capturing page context: %w", err)
	}
	return current, nil
}

func (s *Service) notify(ctx context.Context, sig Signal) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySignal(ctx, sig); err != nil {
		slog.Error("publishing training signal", "type", sig.Type, "session_id", sig.SessionID, "error", err)
	}
}

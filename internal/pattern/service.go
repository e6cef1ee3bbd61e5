package pattern

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/page"
)

// PayloadSealer protects sensitive payload fields at rest.
type PayloadSealer interface {
	Seal(payload map[string]any) (map[string]any, error)
	Open(payload map[string]any) (map[string]any, error)
}

type Service struct {
	repo   Repository
	sealer PayloadSealer
}

// NewService creates a Service. sealer may be nil to store payloads as given.
func NewService(repo Repository, sealer PayloadSealer) *Service {
	return &Service{repo: repo, sealer: sealer}
}

// Learn creates and persists a new pattern.
func (s *Service) Learn(ctx context.Context, actionType ActionType, payload map[string]any, sel string, pageCtx page.Context) (*Pattern, error) {
	p, err := New(actionType, payload, sel, pageCtx)
	if err != nil {
		return nil, err
	}
	if err := s.Store(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Store persists an already built pattern. p itself keeps its plaintext payload.
func (s *Service) Store(ctx context.Context, p *Pattern) error {
	stored := *p
	if s.sealer != nil {
		var err error
		if stored.Payload, err = s.sealer.Seal(p.Payload); err != nil {
			return fmt.Errorf("sealing payload: %w", err)
		}
	}
	return s.repo.Save(ctx, &stored)
}

// Get returns a pattern with its payload opened.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Pattern, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(p)
}

// Candidates lists stored patterns matching f in storage order.
func (s *Service) Candidates(ctx context.Context, f Filter) ([]*Pattern, error) {
	patterns, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*Pattern, 0, len(patterns))
	for _, p := range patterns {
		opened, err := s.open(p)
		if err != nil {
			return nil, err
		}
		out = append(out, opened)
	}
	return out, nil
}

// SaveStats persists the statistics of p after an outcome was recorded.
func (s *Service) SaveStats(ctx context.Context, p *Pattern) error {
	return s.repo.Update(ctx, p.ID, StatsUpdate(p))
}

// Retire removes a pattern permanently.
func (s *Service) Retire(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) open(p *Pattern) (*Pattern, error) {
	if s.sealer == nil {
		return p, nil
	}
	payload, err := s.sealer.Open(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("opening payload of %s: %w", p.ID, err)
	}
	p.Payload = payload
	return p, nil
}

// View is the API representation of a pattern with its derived health.
type View struct {
	*Pattern
	SuccessRate       float64          `json:"success_rate"`
	ReliabilityScore  float64          `json:"reliability_score"`
	ReliabilityLevel  ReliabilityLevel `json:"reliability_level"`
	ShouldBeRetrained bool             `json:"should_be_retrained"`
}

func NewView(p *Pattern) View {
	return View{
		Pattern:           p,
		SuccessRate:       p.SuccessRate(),
		ReliabilityScore:  p.ReliabilityScore(),
		ReliabilityLevel:  p.ReliabilityLevel(),
		ShouldBeRetrained: p.ShouldBeRetrained(),
	}
}

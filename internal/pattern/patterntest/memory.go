// Package patterntest provides an in-memory pattern.Repository for tests.
package patterntest

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/autopilot/internal/pattern"
)

// MemoryRepository keeps patterns in insertion order.
type MemoryRepository struct {
	mu       sync.Mutex
	order    []uuid.UUID
	patterns map[uuid.UUID]*pattern.Pattern

	// ListErr, when set, is returned by List.
	ListErr error
}

func NewMemoryRepository(seed ...*pattern.Pattern) *MemoryRepository {
	r := &MemoryRepository{patterns: make(map[uuid.UUID]*pattern.Pattern)}
	for _, p := range seed {
		_ = r.Save(context.Background(), p)
	}
	return r
}

func (r *MemoryRepository) Save(_ context.Context, p *pattern.Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patterns[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.patterns[p.ID] = clone(p)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*pattern.Pattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patterns[id]
	if !ok {
		return nil, pattern.ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepository) List(_ context.Context, f pattern.Filter) ([]*pattern.Pattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}

	var out []*pattern.Pattern
	for _, id := range r.order {
		p := r.patterns[id]
		if f.ActionType != "" && p.ActionType != f.ActionType {
			continue
		}
		if f.Hostname != "" && !strings.EqualFold(p.Context.Hostname, f.Hostname) {
			continue
		}
		out = append(out, clone(p))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, u pattern.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patterns[id]
	if !ok {
		return pattern.ErrNotFound
	}
	if u.Selector != nil {
		p.Selector = *u.Selector
	}
	if u.Confidence != nil {
		p.Confidence = *u.Confidence
	}
	if u.UsageCount != nil {
		p.UsageCount = *u.UsageCount
	}
	if u.SuccessfulExecutions != nil {
		p.SuccessfulExecutions = *u.SuccessfulExecutions
	}
	if u.ExecutionHistory != nil {
		p.ExecutionHistory = append([]pattern.ExecutionRecord(nil), (*u.ExecutionHistory)...)
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patterns[id]; !ok {
		return pattern.ErrNotFound
	}
	delete(r.patterns, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored patterns.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patterns)
}

func clone(p *pattern.Pattern) *pattern.Pattern {
	c := *p
	c.Payload = maps.Clone(p.Payload)
	c.ExecutionHistory = append([]pattern.ExecutionRecord(nil), p.ExecutionHistory...)
	return &c
}

// Package pagetest provides an in-memory page for exercising DOM-driven code.
package pagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/aiox-platform/autopilot/internal/page"
)

// ErrDetached is returned by a FakeElement after Detach.
var ErrDetached = errors.New("element is detached from the document")

// FakeElement records interactions performed on it.
type FakeElement struct {
	mu       sync.Mutex
	Hidden   bool
	Disabled bool
	Value    string
	Clicks   int
	// OnClick runs after a successful click, e.g. to change the page text.
	OnClick  func()
	detached bool
}

func (e *FakeElement) Clickable(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return false, ErrDetached
	}
	return !e.Hidden && !e.Disabled, nil
}

func (e *FakeElement) SetValue(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return ErrDetached
	}
	e.Value = text
	return nil
}

func (e *FakeElement) Click(_ context.Context) error {
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return ErrDetached
	}
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

// Detach makes every further interaction fail.
func (e *FakeElement) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = true
}

// FakePage is a page.Accessor and page.ContextProvider backed by maps.
type FakePage struct {
	mu       sync.Mutex
	elements map[string][]*FakeElement
	text     string
	ctx      page.Context
	FindErr  error
}

// NewFakePage creates an empty page reporting ctx as its current context.
func NewFakePage(ctx page.Context) *FakePage {
	return &FakePage{elements: make(map[string][]*FakeElement), ctx: ctx}
}

// Add registers el under selector and returns it.
func (p *FakePage) Add(selector string, el *FakeElement) *FakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = append(p.elements[selector], el)
	return el
}

// SetText replaces the visible text of the page.
func (p *FakePage) SetText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
}

// SetContext replaces the context reported by Current.
func (p *FakePage) SetContext(ctx page.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
}

func (p *FakePage) Find(_ context.Context, selector string) (page.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FindErr != nil {
		return nil, p.FindErr
	}
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *FakePage) Count(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.elements[selector]), nil
}

func (p *FakePage) VisibleText(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

func (p *FakePage) Current(_ context.Context) (page.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx, nil
}

package pattern

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aiox-platform/autopilot/internal/page"
)

// MaxSettleDelay bounds the post-action stabilization wait.
const MaxSettleDelay = 100 * time.Millisecond

var (
	ErrElementNotFound    = errors.New("element not found")
	ErrElementNotUsable   = errors.New("element not clickable")
	ErrSelectionUnchanged = errors.New("selection not reflected on page")
	ErrUnsupportedAction  = errors.New("unsupported action type")
)

// DOMEffector performs actions through a page.Accessor.
type DOMEffector struct {
	dom    page.Accessor
	settle time.Duration
}

// NewDOMEffector creates an effector. settle is capped at MaxSettleDelay.
func NewDOMEffector(dom page.Accessor, settle time.Duration) *DOMEffector {
	return &DOMEffector{dom: dom, settle: min(max(settle, 0), MaxSettleDelay)}
}

func (e *DOMEffector) Perform(ctx context.Context, a Action) error {
	el, err := e.dom.Find(ctx, a.Selector)
	if err != nil {
		return fmt.Errorf("finding %q: %w", a.Selector, err)
	}
	if el == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, a.Selector)
	}

	ok, err := el.Clickable(ctx)
	if err != nil {
		return fmt.Errorf("checking %q: %w", a.Selector, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotUsable, a.Selector)
	}

	switch a.Type {
	case ActionFillText:
		if err := el.SetValue(ctx, stringField(a.Payload, KeyValue)); err != nil {
			return fmt.Errorf("filling %q: %w", a.Selector, err)
		}
		return e.wait(ctx)

	case ActionClickElement:
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("clicking %q: %w", a.Selector, err)
		}
		return e.wait(ctx)

	case ActionSelectProject:
		return e.selectAndVerify(ctx, el, a.Selector, stringField(a.Payload, KeyProjectName))

	case ActionSelectChat:
		return e.selectAndVerify(ctx, el, a.Selector, stringField(a.Payload, KeyChatName))

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, a.Type)
	}
}

// selectAndVerify clicks and then checks the expected name is visible on the page.
// An empty name skips verification.
func (e *DOMEffector) selectAndVerify(ctx context.Context, el page.Element, sel, name string) error {
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("clicking %q: %w", sel, err)
	}
	if err := e.wait(ctx); err != nil {
		return err
	}
	if name == "" {
		return nil
	}

	text, err := e.dom.VisibleText(ctx, "")
	if err != nil {
		return fmt.Errorf("reading page text: %w", err)
	}
	if !strings.Contains(strings.ToLower(text), strings.ToLower(name)) {
		return fmt.Errorf("%w: %q", ErrSelectionUnchanged, name)
	}
	return nil
}

func (e *DOMEffector) wait(ctx context.Context) error {
	if e.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(e.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

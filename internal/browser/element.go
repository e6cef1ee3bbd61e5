package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type element struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *element) bind(ctx context.Context) *rod.Element {
	el := e.el.Context(ctx)
	if e.timeout > 0 {
		el = el.Timeout(e.timeout)
	}
	return el
}

// Clickable is visible, not hidden and not disabled.
func (e *element) Clickable(ctx context.Context) (bool, error) {
	el := e.bind(ctx)
	visible, err := el.Visible()
	if err != nil {
		return false, fmt.Errorf("checking visibility: %w", err)
	}
	if !visible {
		return false, nil
	}
	res, err := el.Eval(`() => !this.disabled && !this.hidden && this.getAttribute("aria-disabled") !== "true"`)
	if err != nil {
		return false, fmt.Errorf("checking enabled state: %w", err)
	}
	return res.Value.Bool(), nil
}

// SetValue replaces the current value; rod dispatches the input and change events.
func (e *element) SetValue(ctx context.Context, text string) error {
	el := e.bind(ctx)
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("selecting existing text: %w", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("typing value: %w", err)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.bind(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	return nil
}

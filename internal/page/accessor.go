package page

import "context"

// Element is a live handle to something found on the page.
type Element interface {
	// Clickable reports whether the element is visible, not hidden and not disabled.
	Clickable(ctx context.Context) (bool, error)
	// SetValue replaces the element value and fires the change notifications.
	SetValue(ctx context.Context, text string) error
	Click(ctx context.Context) error
}

// Accessor is the DOM capability the engine needs from the host.
type Accessor interface {
	// Find returns nil, nil when nothing matches selector.
	Find(ctx context.Context, selector string) (Element, error)
	Count(ctx context.Context, selector string) (int, error)
	// VisibleText returns the rendered text under root ("" means the whole document).
	VisibleText(ctx context.Context, root string) (string, error)
}

// ContextProvider captures the current page Context.
type ContextProvider interface {
	Current(ctx context.Context) (Context, error)
}

// Package browser drives a Chrome tab over CDP and exposes it as the page
// capabilities the engine needs.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aiox-platform/autopilot/internal/config"
	"github.com/aiox-platform/autopilot/internal/page"
)

// Browser is a page.Accessor and page.ContextProvider over the active tab.
type Browser struct {
	browser *rod.Browser
	tab     *rod.Page
	timeout time.Duration
}

// Connect attaches to cfg.ControlURL, or launches a local Chrome when it is empty,
// and adopts the first open tab.
func Connect(ctx context.Context, cfg config.BrowserConfig) (*Browser, error) {
	controlURL := cfg.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launching chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	pages, err := b.Pages()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	var tab *rod.Page
	if len(pages) > 0 {
		tab = pages.First()
	} else {
		tab, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("opening tab: %w", err)
		}
	}

	slog.Info("connected to browser", "control_url", controlURL)
	return &Browser{browser: b, tab: tab, timeout: cfg.ActionTimeout}, nil
}

func (b *Browser) Close() error {
	return b.browser.Close()
}

func (b *Browser) page(ctx context.Context) *rod.Page {
	p := b.tab.Context(ctx)
	if b.timeout > 0 {
		p = p.Timeout(b.timeout)
	}
	return p
}

// Find returns the first element matching selector, or nil when none does.
// It does not wait for the element to appear.
func (b *Browser) Find(ctx context.Context, selector string) (page.Element, error) {
	els, err := b.page(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	if els.Empty() {
		return nil, nil
	}
	return &element{el: els.First(), timeout: b.timeout}, nil
}

func (b *Browser) Count(ctx context.Context, selector string) (int, error) {
	els, err := b.page(ctx).Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("querying %q: %w", selector, err)
	}
	return len(els), nil
}

func (b *Browser) VisibleText(ctx context.Context, root string) (string, error) {
	if root == "" {
		res, err := b.page(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
		if err != nil {
			return "", fmt.Errorf("reading page text: %w", err)
		}
		return res.Value.Str(), nil
	}

	els, err := b.page(ctx).Elements(root)
	if err != nil {
		return "", fmt.Errorf("querying %q: %w", root, err)
	}
	if els.Empty() {
		return "", nil
	}
	return els.First().Text()
}

// snapshotJS returns the page identity plus the tag/id/class of the first
// elements of the body in document order.
const snapshotJS = `(limit) => {
	const nodes = Array.from(document.querySelectorAll("body *")).slice(0, limit);
	return {
		url: location.href,
		title: document.title,
		elements: nodes.map(n => ({
			tag: n.tagName,
			id: n.id || "",
			classes: Array.from(n.classList || []),
		})),
	};
}`

type snapshot struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Elements []struct {
		Tag     string   `json:"tag"`
		ID      string   `json:"id"`
		Classes []string `json:"classes"`
	} `json:"elements"`
}

// Current captures the tab's Context, including its structure hash.
func (b *Browser) Current(ctx context.Context) (page.Context, error) {
	res, err := b.page(ctx).Eval(snapshotJS, page.MaxStructureTokens)
	if err != nil {
		return page.Context{}, fmt.Errorf("capturing page snapshot: %w", err)
	}

	var snap snapshot
	if err := res.Value.Unmarshal(&snap); err != nil {
		return page.Context{}, fmt.Errorf("decoding page snapshot: %w", err)
	}
	return snap.context(time.Now()), nil
}

func (s snapshot) context(at time.Time) page.Context {
	tokens := make([]string, 0, len(s.Elements))
	for _, e := range s.Elements {
		tokens = append(tokens, page.ElementToken(e.Tag, e.ID, e.Classes))
	}
	return page.NewContext(s.URL, strings.TrimSpace(s.Title), page.StructureHash(tokens), at)
}

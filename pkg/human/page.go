package human

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Rect is an element's on-screen bounding box at query time.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is a live reference into the page. Its box can move between reads,
// so callers re-query it instead of caching coordinates.
type Element interface {
	// BoundingBox returns nil when the element is not rendered.
	BoundingBox() (*Rect, error)
}

// Page is the input capability the generators drive.
type Page interface {
	Evaluate(expression string) (interface{}, error)
	MouseMove(x, y float64) error
	MouseDown() error
	MouseUp() error
	// KeyboardType types text with delay between key presses.
	KeyboardType(text string, delay time.Duration) error
	KeyboardPress(key string) error
}

// PlaywrightPage adapts a playwright page to Page.
type PlaywrightPage struct {
	page playwright.Page
}

// FromPlaywright wraps p.
func FromPlaywright(p playwright.Page) *PlaywrightPage {
	return &PlaywrightPage{page: p}
}

// Unwrap returns the underlying playwright page.
func (p *PlaywrightPage) Unwrap() playwright.Page {
	return p.page
}

// NavigateOptions controls Goto.
type NavigateOptions struct {
	// WaitUntil is a playwright load state; empty means domcontentloaded
	WaitUntil string
	// Timeout in milliseconds; zero keeps the playwright default
	Timeout float64
}

// Goto navigates to url.
func (p *PlaywrightPage) Goto(url string, opts NavigateOptions) error {
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if opts.WaitUntil != "" {
		state := playwright.WaitUntilState(opts.WaitUntil)
		waitUntil = &state
	}
	gotoOpts := playwright.PageGotoOptions{WaitUntil: waitUntil}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = &opts.Timeout
	}

	if _, err := p.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitOptions controls WaitFor.
type WaitOptions struct {
	// State is attached, detached, visible or hidden; empty means visible
	State string
	// Timeout in milliseconds; zero keeps the playwright default
	Timeout float64
}

// WaitFor blocks until selector reaches the requested state.
func (p *PlaywrightPage) WaitFor(selector string, opts WaitOptions) error {
	waitOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = &opts.Timeout
	}

	if _, err := p.page.WaitForSelector(selector, waitOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// IsVisible reports whether the first element matching selector is visible.
func (p *PlaywrightPage) IsVisible(selector string) (bool, error) {
	return p.page.Locator(selector).First().IsVisible()
}

// QuerySelector returns the first element matching selector, or nil when
// nothing matches.
func (p *PlaywrightPage) QuerySelector(selector string) (Element, error) {
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if h == nil {
		return nil, nil
	}
	return WrapElement(h), nil
}

// Locator returns an Element that re-resolves selector on every read.
func (p *PlaywrightPage) Locator(selector string) Element {
	return WrapLocator(p.page.Locator(selector).First())
}

// Evaluate implements Page.
func (p *PlaywrightPage) Evaluate(expression string) (interface{}, error) {
	return p.page.Evaluate(expression)
}

// MouseMove implements Page.
func (p *PlaywrightPage) MouseMove(x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

// MouseDown implements Page.
func (p *PlaywrightPage) MouseDown() error {
	return p.page.Mouse().Down()
}

// MouseUp implements Page.
func (p *PlaywrightPage) MouseUp() error {
	return p.page.Mouse().Up()
}

// KeyboardType implements Page.
func (p *PlaywrightPage) KeyboardType(text string, delay time.Duration) error {
	ms := float64(delay) / float64(time.Millisecond)
	return p.page.Keyboard().Type(text, playwright.KeyboardTypeOptions{Delay: playwright.Float(ms)})
}

// KeyboardPress implements Page.
func (p *PlaywrightPage) KeyboardPress(key string) error {
	return p.page.Keyboard().Press(key)
}

type elementHandle struct {
	h playwright.ElementHandle
}

// WrapElement adapts an element handle to Element.
func WrapElement(h playwright.ElementHandle) Element {
	return elementHandle{h: h}
}

func (e elementHandle) BoundingBox() (*Rect, error) {
	return toRect(e.h.BoundingBox())
}

type locatorElement struct {
	l playwright.Locator
}

// WrapLocator adapts a locator to Element.
func WrapLocator(l playwright.Locator) Element {
	return locatorElement{l: l}
}

func (e locatorElement) BoundingBox() (*Rect, error) {
	return toRect(e.l.BoundingBox())
}

func toRect(r *playwright.Rect, err error) (*Rect, error) {
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return &Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

// toFloat converts a number returned by Evaluate.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// WindowState is the visibility of the browser window.
type WindowState int

const (
	WindowUnknown WindowState = iota
	WindowShown
	WindowHidden
)

func (s WindowState) String() string {
	switch s {
	case WindowShown:
		return "shown"
	case WindowHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

const (
	// hidePause separates the state reset from the move
	hidePause = 200 * time.Millisecond
	showLeft  = 0
	showTop   = 40
)

// Bounds is the window geometry sent to Browser.setWindowBounds. Nil fields
// are left unchanged.
type Bounds struct {
	Left        *int
	Top         *int
	WindowState string
}

func (b Bounds) params() map[string]interface{} {
	p := map[string]interface{}{}
	if b.Left != nil {
		p["left"] = *b.Left
	}
	if b.Top != nil {
		p["top"] = *b.Top
	}
	if b.WindowState != "" {
		p["windowState"] = b.WindowState
	}
	return p
}

func intPtr(v int) *int { return &v }

// WindowController manages the OS window hosting the page.
type WindowController interface {
	// WindowID looks up the window of the current target. It is not cached:
	// the id belongs to the live target.
	WindowID(ctx context.Context) (int, error)
	SetBounds(ctx context.Context, windowID int, b Bounds) error
	BringToFront(ctx context.Context) error
}

// CDPWindow implements WindowController with a CDP session on the page.
type CDPWindow struct {
	page playwright.Page
}

// NewCDPWindow returns a controller for the window hosting page.
func NewCDPWindow(page playwright.Page) *CDPWindow {
	return &CDPWindow{page: page}
}

func (w *CDPWindow) send(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := w.page.Context().NewCDPSession(w.page)
	if err != nil {
		return nil, fmt.Errorf("open cdp session: %w", err)
	}
	defer sess.Detach()

	res, err := sess.Send(method, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	out, _ := res.(map[string]interface{})
	return out, nil
}

// WindowID implements WindowController.
func (w *CDPWindow) WindowID(ctx context.Context) (int, error) {
	res, err := w.send(ctx, "Browser.getWindowForTarget", nil)
	if err != nil {
		return 0, err
	}
	id, ok := res["windowId"].(float64)
	if !ok {
		return 0, fmt.Errorf("Browser.getWindowForTarget: no windowId in %v", res)
	}
	return int(id), nil
}

// SetBounds implements WindowController.
func (w *CDPWindow) SetBounds(ctx context.Context, windowID int, b Bounds) error {
	_, err := w.send(ctx, "Browser.setWindowBounds", map[string]interface{}{
		"windowId": windowID,
		"bounds":   b.params(),
	})
	return err
}

// BringToFront implements WindowController.
func (w *CDPWindow) BringToFront(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.page.BringToFront()
}

// hideWindow restores the window to a normal state and moves it off screen.
func hideWindow(ctx context.Context, w WindowController, sleep func(context.Context, time.Duration) error) error {
	id, err := w.WindowID(ctx)
	if err != nil {
		return err
	}
	if err := w.SetBounds(ctx, id, Bounds{WindowState: "normal"}); err != nil {
		return err
	}
	if err := sleep(ctx, hidePause); err != nil {
		return err
	}
	return w.SetBounds(ctx, id, Bounds{Left: intPtr(offscreenX), Top: intPtr(offscreenY)})
}

// showWindow moves the window on screen, raises it, then maximizes it.
// The final maximize works around a position-only change sometimes leaving
// the window behind others.
func showWindow(ctx context.Context, w WindowController) error {
	id, err := w.WindowID(ctx)
	if err != nil {
		return err
	}
	if err := w.SetBounds(ctx, id, Bounds{Left: intPtr(showLeft), Top: intPtr(showTop), WindowState: "normal"}); err != nil {
		return err
	}
	if err := w.BringToFront(ctx); err != nil {
		return err
	}
	return w.SetBounds(ctx, id, Bounds{WindowState: "maximized"})
}

package human

import (
	"context"
	"fmt"
)

const (
	viewportScript = `() => window.innerHeight`
	// maxScrollAttempts bounds the measurements made by ScrollToElement
	maxScrollAttempts = 20
)

// Direction is a vertical scroll direction.
type Direction int

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection maps "up" and "down" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "down", "":
		return Down, nil
	case "up":
		return Up, nil
	default:
		return Down, fmt.Errorf("invalid scroll direction %q (must be 'up' or 'down')", s)
	}
}

func scrollBy(page Page, dy float64) error {
	_, err := page.Evaluate(fmt.Sprintf("window.scrollBy(0, %.2f)", dy))
	return err
}

func viewportHeight(page Page) (float64, error) {
	res, err := page.Evaluate(viewportScript)
	if err != nil {
		return 0, err
	}
	h, ok := toFloat(res)
	if !ok {
		return 0, fmt.Errorf("unexpected viewport height %v", res)
	}
	return h, nil
}

// ScrollToElement scrolls in uneven steps until the top of el is inside the
// viewport. It gives up with a warning after 20 measurements; callers check
// visibility themselves afterwards.
func (h *Humanizer) ScrollToElement(ctx context.Context, page Page, el Element) error {
	return h.contain("scroll_to_element", h.scrollToElement(ctx, page, el))
}

func (h *Humanizer) scrollToElement(ctx context.Context, page Page, el Element) error {
	if err := h.pause(ctx, 0.2, 0.5); err != nil {
		return err
	}

	for attempt := 1; attempt <= maxScrollAttempts; attempt++ {
		visible, err := h.scrollAttempt(ctx, page, el)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.log.Debugf("Scroll attempt %d/%d: %v", attempt, maxScrollAttempts, err)
		}
		if visible {
			return nil
		}
		if err := h.pause(ctx, 0.3, 0.6); err != nil {
			return err
		}
	}

	h.log.Warnf("Element not visible after %d scroll attempts", maxScrollAttempts)
	return nil
}

// scrollAttempt measures el once and scrolls toward it unless it is already
// visible.
func (h *Humanizer) scrollAttempt(ctx context.Context, page Page, el Element) (bool, error) {
	box, err := el.BoundingBox()
	if err != nil {
		return false, err
	}
	if box == nil {
		return false, ErrNoBoundingBox
	}

	viewport, err := viewportHeight(page)
	if err != nil {
		return false, err
	}

	if box.Y >= 0 && box.Y < viewport {
		return true, h.pause(ctx, 0.3, 0.8)
	}

	var delta float64
	if box.Y < 0 {
		delta = box.Y - h.uniform(50, 150)
	} else {
		delta = box.Y + box.Height - viewport + h.uniform(50, 150)
	}

	for _, portion := range h.split(delta, h.intn(2, 4), 0.2, 0.5) {
		if err := scrollBy(page, portion); err != nil {
			return false, err
		}
		delay := h.vary(h.uniform(0.2, 0.8), factor{0.1, 0.5, 1.0}, factor{0.1, 1.5, 2.5})
		if err := h.sleep(ctx, delay); err != nil {
			return false, err
		}

		if h.chance(0.1) {
			if err := h.microScroll(ctx, page, portion*h.uniform(-0.2, -0.05), 0.15, 0.3, 0.2, 0.4); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// microScroll scrolls by d and back again, pausing after each move.
func (h *Humanizer) microScroll(ctx context.Context, page Page, d, outLo, outHi, backLo, backHi float64) error {
	if err := scrollBy(page, d); err != nil {
		return err
	}
	if err := h.pause(ctx, outLo, outHi); err != nil {
		return err
	}
	if err := scrollBy(page, -d); err != nil {
		return err
	}
	return h.pause(ctx, backLo, backHi)
}

// ScrollBy scrolls distance pixels in dir in uneven steps. A zero distance
// scrolls one viewport height.
func (h *Humanizer) ScrollBy(ctx context.Context, page Page, distance float64, dir Direction) error {
	return h.contain("scroll_by", h.scrollBy(ctx, page, distance, dir))
}

func (h *Humanizer) scrollBy(ctx context.Context, page Page, distance float64, dir Direction) error {
	if distance == 0 {
		vh, err := viewportHeight(page)
		if err != nil {
			return stepError("scroll_by", "viewport height", err)
		}
		distance = vh
	}
	if dir == Up {
		distance = -distance
	}

	if err := h.pause(ctx, 0.2, 0.5); err != nil {
		return err
	}

	portions := h.split(distance, h.intn(2, 5), 0.15, 0.45)
	for i, portion := range portions {
		if err := scrollBy(page, portion); err != nil {
			return stepError("scroll_by", "scroll", err)
		}
		delay := h.vary(h.uniform(0.3, 1.2), factor{0.1, 0.3, 0.6}, factor{0.15, 1.8, 3.0})
		if err := h.sleep(ctx, delay); err != nil {
			return err
		}

		if h.chance(0.12) && i < len(portions)-1 {
			if err := h.microScroll(ctx, page, portion*h.uniform(-0.3, -0.1), 0.15, 0.4, 0.2, 0.5); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return stepError("scroll_by", "micro scroll", err)
			}
		}

		if h.chance(0.08) {
			if err := h.pause(ctx, 1.5, 4.0); err != nil {
				return err
			}
		}
	}

	return h.pause(ctx, 0.3, 0.9)
}

package human

import (
	"context"
	"math"
)

// pointerScript reads the position recorded by the page's pointer tracker.
const pointerScript = `() => ({x: window.lastMouseX || 0, y: window.lastMouseY || 0})`

// Point is a position in page coordinates.
type Point struct {
	X float64
	Y float64
}

// Path is a cubic Bezier pointer trajectory.
type Path struct {
	Start    Point
	Control1 Point
	Control2 Point
	End      Point
	Steps    int
}

// Point evaluates the curve at t in [0, 1].
func (p Path) Point(t float64) Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	c := 3 * mt * t * t
	d := t * t * t
	return Point{
		X: a*p.Start.X + b*p.Control1.X + c*p.Control2.X + d*p.End.X,
		Y: a*p.Start.Y + b*p.Control1.Y + c*p.Control2.Y + d*p.End.Y,
	}
}

// NewPath builds a trajectory from start to a random point inside box. The
// end lies at 25-75% of the box on each axis; the control points bend the
// line sideways and the step count grows with distance.
func (h *Humanizer) NewPath(start Point, box Rect) Path {
	end := Point{
		X: box.X + box.Width*h.uniform(0.25, 0.75),
		Y: box.Y + box.Height*h.uniform(0.25, 0.75),
	}
	dx, dy := end.X-start.X, end.Y-start.Y
	distance := math.Hypot(dx, dy)

	steps := h.intn(15, 25)
	if byDistance := int(distance / h.uniform(5, 15)); byDistance > steps {
		steps = byDistance
	}

	return Path{
		Start: start,
		Control1: Point{
			X: start.X + dx*h.uniform(0.2, 0.4),
			Y: start.Y + dy*h.uniform(0.1, 0.3) + float64(h.intn(-50, 50)),
		},
		Control2: Point{
			X: start.X + dx*h.uniform(0.6, 0.8),
			Y: start.Y + dy*h.uniform(0.7, 0.9) + float64(h.intn(-50, 50)),
		},
		End:   end,
		Steps: steps,
	}
}

// MoveOptions controls Move.
type MoveOptions struct {
	// Click presses and releases the button at the end of the path.
	Click bool
	// Scroll brings the element into view before moving.
	Scroll bool
}

// Move glides the pointer to el along a curved path, optionally clicking.
// A missing bounding box or a failed page call aborts the gesture quietly;
// only context cancellation is returned.
func (h *Humanizer) Move(ctx context.Context, page Page, el Element, opts MoveOptions) error {
	return h.contain("move", h.move(ctx, page, el, opts))
}

func (h *Humanizer) move(ctx context.Context, page Page, el Element, opts MoveOptions) error {
	if opts.Scroll {
		if err := h.scrollToElement(ctx, page, el); err != nil {
			return err
		}
		if err := h.pause(ctx, 1, 2); err != nil {
			return err
		}
	}

	box, err := el.BoundingBox()
	if err != nil {
		return stepError("move", "bounding box", err)
	}
	if box == nil {
		return &InteractionError{Op: "move", Err: ErrNoBoundingBox}
	}

	path := h.NewPath(h.pointerPosition(page), *box)

	for i := 0; i < path.Steps; i++ {
		p := path.Point(float64(i) / float64(path.Steps))
		x := p.X + h.uniform(-1.5, 1.5)
		y := p.Y + h.uniform(-1.5, 1.5)
		if err := page.MouseMove(x, y); err != nil {
			return stepError("move", "mouse move", err)
		}

		delay := h.uniform(0.005, 0.02)
		if h.chance(0.05) {
			if err := h.pause(ctx, 0.05, 0.15); err != nil {
				return err
			}
		}
		if err := h.pause(ctx, delay, delay); err != nil {
			return err
		}
	}

	if err := page.MouseMove(path.End.X, path.End.Y); err != nil {
		return stepError("move", "mouse move", err)
	}
	if err := h.pause(ctx, 0.1, 0.3); err != nil {
		return err
	}

	if !opts.Click {
		return nil
	}
	if err := h.pause(ctx, 0.05, 0.2); err != nil {
		return err
	}
	if err := page.MouseDown(); err != nil {
		return stepError("move", "mouse down", err)
	}
	if err := h.pause(ctx, 0.05, 0.15); err != nil {
		return err
	}
	if err := page.MouseUp(); err != nil {
		return stepError("move", "mouse up", err)
	}
	return nil
}

// pointerPosition returns the last recorded pointer position, or a random
// point near the top-left corner when the page cannot tell.
func (h *Humanizer) pointerPosition(page Page) Point {
	res, err := page.Evaluate(pointerScript)
	if err == nil {
		if m, ok := res.(map[string]interface{}); ok {
			x, okX := toFloat(m["x"])
			y, okY := toFloat(m["y"])
			if okX && okY {
				return Point{X: x, Y: y}
			}
		}
	}
	return Point{X: float64(h.intn(50, 200)), Y: float64(h.intn(50, 200))}
}

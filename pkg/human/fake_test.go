package human

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/ghostchrome/pkg/logging"
)

// fakePage records input events and models a vertically scrollable document.
type fakePage struct {
	mu sync.Mutex

	pointer    interface{}
	pointerErr error
	viewport   float64
	scrollY    float64

	events  []string
	moves   []Point
	scrolls int
	deltas  []float64

	failMove bool
	failType bool
}

func newFakePage() *fakePage {
	return &fakePage{
		pointer:  map[string]interface{}{"x": 100, "y": 200},
		viewport: 800,
	}
}

func (p *fakePage) Evaluate(expression string) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case expression == pointerScript:
		return p.pointer, p.pointerErr
	case expression == viewportScript:
		return p.viewport, nil
	case strings.HasPrefix(expression, "window.scrollBy(0, "):
		var dy float64
		if _, err := fmt.Sscanf(expression, "window.scrollBy(0, %f)", &dy); err != nil {
			return nil, err
		}
		p.scrollY += dy
		p.scrolls++
		p.deltas = append(p.deltas, dy)
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected script %q", expression)
}

func (p *fakePage) MouseMove(x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failMove {
		return errors.New("target closed")
	}
	p.moves = append(p.moves, Point{X: x, Y: y})
	p.events = append(p.events, "move")
	return nil
}

func (p *fakePage) MouseDown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "down")
	return nil
}

func (p *fakePage) MouseUp() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "up")
	return nil
}

func (p *fakePage) KeyboardType(text string, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failType {
		return errors.New("page crashed")
	}
	p.events = append(p.events, "type:"+text)
	return nil
}

func (p *fakePage) KeyboardPress(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "press:"+key)
	return nil
}

// typed returns the text the page would contain after applying Backspace.
func (p *fakePage) typed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []rune
	for _, e := range p.events {
		switch {
		case strings.HasPrefix(e, "type:"):
			out = append(out, []rune(strings.TrimPrefix(e, "type:"))...)
		case e == "press:Backspace" && len(out) > 0:
			out = out[:len(out)-1]
		}
	}
	return string(out)
}

// fakeElement sits at a fixed document position and moves with scrolling.
type fakeElement struct {
	mu      sync.Mutex
	page    *fakePage
	box     *Rect
	err     error
	queries int
}

func (e *fakeElement) BoundingBox() (*Rect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries++
	if e.err != nil || e.box == nil {
		return nil, e.err
	}
	r := *e.box
	if e.page != nil {
		e.page.mu.Lock()
		r.Y -= e.page.scrollY
		e.page.mu.Unlock()
	}
	return &r, nil
}

// sleepLog records waits without blocking.
type sleepLog struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepLog) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func testHumanizer(t *testing.T, seed uint64) (*Humanizer, *sleepLog, *bytes.Buffer) {
	t.Helper()
	sleeps := &sleepLog{}
	var buf bytes.Buffer
	h := New(
		WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))),
		WithSleeper(sleeps.Sleep),
		WithLogger(logging.NewWriterLogger("human", &buf)),
	)
	return h, sleeps, &buf
}

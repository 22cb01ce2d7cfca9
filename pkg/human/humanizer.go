package human

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/entrhq/ghostchrome/pkg/logging"
	"github.com/entrhq/ghostchrome/pkg/timing"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("human")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize human logger, using stderr fallback: %v", err)
	}
}

// Humanizer generates human-like pointer, scroll and typing input. It never
// owns the page it drives. A Humanizer is safe for concurrent use, though
// gestures on the same page interleave.
type Humanizer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep timing.Sleeper
	log   *logging.Logger
}

// Option configures a Humanizer.
type Option func(*Humanizer)

// WithRand sets the random source. Tests use a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(h *Humanizer) { h.rng = r }
}

// WithSleeper replaces every wait.
func WithSleeper(s timing.Sleeper) Option {
	return func(h *Humanizer) { h.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Humanizer) { h.log = l }
}

// New creates a Humanizer.
func New(opts ...Option) *Humanizer {
	h := &Humanizer{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sleep: timing.Sleep,
		log:   debugLog,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// uniform returns a value in [lo, hi).
func (h *Humanizer) uniform(lo, hi float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo + (hi-lo)*h.rng.Float64()
}

// intn returns a value in [lo, hi].
func (h *Humanizer) intn(lo, hi int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo + h.rng.IntN(hi-lo+1)
}

// chance reports true with probability p.
func (h *Humanizer) chance(p float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64() < p
}

// pause waits a uniform number of seconds in [lo, hi).
func (h *Humanizer) pause(ctx context.Context, lo, hi float64) error {
	return h.sleep(ctx, timing.Seconds(h.uniform(lo, hi)))
}

// contain is the error boundary of every gesture: cancellation propagates,
// anything else is logged and dropped so the session stays usable.
func (h *Humanizer) contain(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ierr *InteractionError
	if !errors.As(err, &ierr) {
		ierr = &InteractionError{Op: op, Err: err}
	}
	recordInteractionError(op)
	h.log.Errorf("%v", ierr)
	return nil
}

// split divides total into n portions, each a random share of what is
// left, with the last taking the remainder.
func (h *Humanizer) split(total float64, n int, minShare, maxShare float64) []float64 {
	portions := make([]float64, 0, n)
	remaining := total
	for i := 0; i < n-1; i++ {
		p := remaining * h.uniform(minShare, maxShare)
		portions = append(portions, p)
		remaining -= p
	}
	return append(portions, remaining)
}

// factor is a multiplier in [lo, hi) applied to a delay with probability p.
type factor struct {
	p, lo, hi float64
}

// vary applies the fast factor or, failing that draw, the slow factor to a
// base delay in seconds.
func (h *Humanizer) vary(base float64, fast, slow factor) time.Duration {
	if h.chance(fast.p) {
		base *= h.uniform(fast.lo, fast.hi)
	} else if h.chance(slow.p) {
		base *= h.uniform(slow.lo, slow.hi)
	}
	return timing.Seconds(base)
}

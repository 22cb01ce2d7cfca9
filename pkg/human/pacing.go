package human

import (
	"context"
	"time"

	"github.com/entrhq/ghostchrome/pkg/timing"
)

// Preset names a pacing range.
type Preset string

const (
	// Micro is a quick reaction.
	Micro Preset = "micro"
	// Small is a short pause between clicks.
	Small Preset = "small"
	// Medium is an ordinary wait.
	Medium Preset = "medium"
	// Long is roughly the time to read a short text.
	Long Preset = "long"
	// AFK is stepping away or reading a whole page.
	AFK Preset = "afk"
)

// Range is a delay range in seconds.
type Range struct {
	Min float64
	Max float64
}

var presets = map[Preset]Range{
	Micro:  {Min: 0.1, Max: 0.5},
	Small:  {Min: 0.3, Max: 1.0},
	Medium: {Min: 1, Max: 2},
	Long:   {Min: 2, Max: 5},
	AFK:    {Min: 8, Max: 20},
}

// PresetRange returns the range of p. Unknown presets map to Medium.
func PresetRange(p Preset) Range {
	if r, ok := presets[p]; ok {
		return r
	}
	return presets[Medium]
}

// Duration draws a delay for preset p.
func (h *Humanizer) Duration(p Preset) time.Duration {
	return h.RangeDuration(PresetRange(p))
}

// RangeDuration draws a delay in [r.Min, r.Max). A range with Min == Max
// yields exactly Min; reversed bounds are swapped and negatives clamp to 0.
func (h *Humanizer) RangeDuration(r Range) time.Duration {
	lo, hi := r.Min, r.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	if lo == hi {
		return timing.Seconds(lo)
	}
	return timing.Seconds(h.uniform(lo, hi))
}

// Sleep waits a random delay from preset p.
func (h *Humanizer) Sleep(ctx context.Context, p Preset) error {
	return h.sleep(ctx, h.Duration(p))
}

// SleepRange waits a random delay from r.
func (h *Humanizer) SleepRange(ctx context.Context, r Range) error {
	return h.sleep(ctx, h.RangeDuration(r))
}

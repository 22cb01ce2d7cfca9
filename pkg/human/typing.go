package human

import (
	"context"
	"time"
	"unicode"
)

// DefaultTypoChance is the per-letter probability of a corrected typo.
const DefaultTypoChance = 0.03

// keyNeighbors lists, per letter, the keys a finger is likely to hit by
// mistake. Repeated letters weight the draw.
var keyNeighbors = map[rune]string{
	'a': "sq", 'b': "vn", 'c': "xv", 'd': "sfe", 'e': "wrs",
	'f': "drgd", 'g': "fhtr", 'h': "gjuy", 'i': "uoj", 'j': "hkui",
	'k': "jloi", 'l': "kop", 'm': "nm", 'n': "bm", 'o': "ipl", 'p': "ol",
	'q': "aw", 'r': "etes", 's': "awdx", 't': "rgyf", 'u': "yijk", 'v': "cbb",
	'w': "qse", 'x': "czs", 'y': "tguh", 'z': "xas",
}

func msDelay(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Type enters text into the focused field one key at a time with uneven
// rhythm. With probability chance each letter is first mistyped as a
// neighboring key and erased with Backspace. chance is clamped to [0, 1].
func (h *Humanizer) Type(ctx context.Context, page Page, text string, chance float64) error {
	return h.contain("type", h.typeText(ctx, page, text, chance))
}

func (h *Humanizer) typeText(ctx context.Context, page Page, text string, chance float64) error {
	chance = max(0, min(1, chance))

	if err := h.pause(ctx, 0.5, 1.5); err != nil {
		return err
	}

	for _, r := range text {
		if h.chance(0.08) {
			if err := h.pause(ctx, 0.5, 2.0); err != nil {
				return err
			}
		}

		if unicode.IsLetter(r) && h.chance(chance) {
			if err := h.typo(ctx, page, r); err != nil {
				return err
			}
		}

		if err := page.KeyboardType(string(r), msDelay(h.intn(25, 120))); err != nil {
			return stepError("type", "keyboard type", err)
		}

		delay := h.vary(h.uniform(0.08, 0.35), factor{0.15, 0.3, 0.7}, factor{0.1, 1.5, 2.5})
		if err := h.sleep(ctx, delay); err != nil {
			return err
		}

		if h.chance(0.05) {
			if err := h.pause(ctx, 1.0, 3.0); err != nil {
				return err
			}
		}
	}

	return h.pause(ctx, 0.2, 0.5)
}

// typo types a neighbor of r, notices, and erases it.
func (h *Humanizer) typo(ctx context.Context, page Page, r rune) error {
	neighbors := []rune(keyNeighbors[unicode.ToLower(r)])
	if len(neighbors) == 0 {
		neighbors = []rune{r}
	}
	wrong := neighbors[h.intn(0, len(neighbors)-1)]

	if err := page.KeyboardType(string(wrong), msDelay(h.intn(30, 100))); err != nil {
		return stepError("type", "keyboard type", err)
	}
	if err := h.pause(ctx, 0.3, 0.8); err != nil {
		return err
	}
	if err := page.KeyboardPress("Backspace"); err != nil {
		return stepError("type", "keyboard press", err)
	}
	if err := h.pause(ctx, 1, 3); err != nil {
		return err
	}
	if h.chance(0.3) {
		return h.pause(ctx, 0.5, 2)
	}
	return nil
}

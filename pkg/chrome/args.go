package chrome

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/entrhq/ghostchrome/pkg/config"
)

const (
	// offscreenPosition is far enough from any real monitor layout to keep a
	// rendered window out of sight.
	offscreenX, offscreenY = -44444, -44444
	visibleX, visibleY     = 0, 100
)

// displayArg maps a display mode to its launch argument. Headless launches
// are refused: the window must be real and composited.
func displayArg(mode config.DisplayMode) (string, error) {
	switch mode {
	case config.DisplayWindowed:
		return fmt.Sprintf("--window-position=%d,%d", offscreenX, offscreenY), nil
	case config.DisplayVisible:
		return fmt.Sprintf("--window-position=%d,%d", visibleX, visibleY), nil
	case config.DisplayHidden:
		return "", configError("behavior.display_mode", "'hidden' cannot be used at launch; use 'windowed'")
	case "":
		return "", configError("behavior.display_mode", "is required")
	default:
		return "", configError("behavior.display_mode", fmt.Sprintf("unrecognized value %q", mode))
	}
}

// BuildArgs assembles the browser command line: marker token, debugging
// port, profile directory, configured extras, then the display argument.
// The profile directory is created when missing.
func BuildArgs(cfg *config.Config, port int) ([]string, error) {
	display, err := displayArg(cfg.Behavior.DisplayMode)
	if err != nil {
		return nil, err
	}

	profile, err := filepath.Abs(cfg.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("resolve profile dir: %w", err)
	}
	if err := os.MkdirAll(profile, 0750); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	args := make([]string, 0, len(cfg.ExtraArgs)+4)
	args = append(args,
		cfg.MarkerToken,
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", profile),
	)
	args = append(args, cfg.ExtraArgs...)
	args = append(args, display)

	return args, nil
}

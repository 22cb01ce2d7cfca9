// Package config defines the launch configuration for a ghostchrome manager.
//
// A Config is read once when a manager is built and never changes afterwards.
// Validation is eager: a missing executable, an empty marker token or an
// unrecognized display mode is rejected with a *ConfigError instead of being
// silently defaulted.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// DisplayMode selects where the browser window lives.
type DisplayMode string

const (
	// DisplayWindowed renders a real window placed far outside the visible screen
	DisplayWindowed DisplayMode = "windowed"
	// DisplayVisible renders a normal on-screen window
	DisplayVisible DisplayMode = "visible"
	// DisplayHidden is recognized but cannot be used at launch time
	DisplayHidden DisplayMode = "hidden"
)

// Valid reports whether m is one of the recognized display modes.
func (m DisplayMode) Valid() bool {
	switch m {
	case DisplayWindowed, DisplayVisible, DisplayHidden:
		return true
	}
	return false
}

// ErrInvalid is matched by every *ConfigError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError reports a missing or invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalid) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalid
}

// PortRange is an inclusive range of local TCP ports.
type PortRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Behavior holds the settings that shape how the browser is presented.
type Behavior struct {
	DisplayMode DisplayMode `yaml:"display_mode" json:"display_mode"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// Config is the launch configuration of one manager instance.
type Config struct {
	// Path of the Chrome (or Chromium) executable
	ExecutablePath string `yaml:"executable_path" json:"executable_path"`

	// Profile directory passed as --user-data-dir
	ProfileDir string `yaml:"profile_dir" json:"profile_dir"`

	// Token placed first on the command line to tag processes owned by this manager
	MarkerToken string `yaml:"marker_token" json:"marker_token"`

	PortRange PortRange `yaml:"port_range" json:"port_range"`

	// Extra command-line arguments, passed in order
	ExtraArgs []string `yaml:"extra_args" json:"extra_args"`

	Behavior Behavior `yaml:"behavior" json:"behavior"`

	// Glob patterns matched against process executable names by the reaper
	ProcessNames []string `yaml:"process_names,omitempty" json:"process_names,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// DefaultProcessNames are used when ProcessNames is empty.
var DefaultProcessNames = []string{"*chrome*", "*chromium*"}

// Validate checks the configuration. It fills ProcessNames with defaults when
// empty and makes ProfileDir absolute; everything else must be set explicitly.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ExecutablePath) == "" {
		return &ConfigError{Field: "executable_path", Reason: "is required"}
	}

	if strings.TrimSpace(c.ProfileDir) == "" {
		return &ConfigError{Field: "profile_dir", Reason: "is required"}
	}

	if strings.TrimSpace(c.MarkerToken) == "" {
		return &ConfigError{Field: "marker_token", Reason: "is required"}
	}
	if strings.ContainsAny(c.MarkerToken, " \t\n") {
		return &ConfigError{Field: "marker_token", Reason: "must not contain whitespace"}
	}

	if c.PortRange.Min < 1 || c.PortRange.Max > 65535 {
		return &ConfigError{Field: "port_range", Reason: fmt.Sprintf("[%d,%d] is outside 1-65535", c.PortRange.Min, c.PortRange.Max)}
	}
	if c.PortRange.Min > c.PortRange.Max {
		return &ConfigError{Field: "port_range", Reason: fmt.Sprintf("min %d is greater than max %d", c.PortRange.Min, c.PortRange.Max)}
	}

	if c.Behavior.DisplayMode == "" {
		return &ConfigError{Field: "behavior.display_mode", Reason: "is required (must be 'windowed', 'visible' or 'hidden')"}
	}
	if !c.Behavior.DisplayMode.Valid() {
		return &ConfigError{Field: "behavior.display_mode", Reason: fmt.Sprintf("unrecognized value %q (must be 'windowed', 'visible' or 'hidden')", c.Behavior.DisplayMode)}
	}

	for _, arg := range c.ExtraArgs {
		if strings.HasPrefix(arg, "--remote-debugging-port") || strings.HasPrefix(arg, "--user-data-dir") {
			return &ConfigError{Field: "extra_args", Reason: fmt.Sprintf("%s is managed by ghostchrome", arg)}
		}
	}

	switch strings.ToLower(c.Logging.Verbosity) {
	case "", "quiet", "normal", "verbose", "debug":
	default:
		return &ConfigError{Field: "logging.verbosity", Reason: fmt.Sprintf("invalid value %q (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)}
	}

	if len(c.ProcessNames) == 0 {
		c.ProcessNames = append([]string(nil), DefaultProcessNames...)
	}

	abs, err := filepath.Abs(c.ProfileDir)
	if err != nil {
		return &ConfigError{Field: "profile_dir", Reason: err.Error()}
	}
	c.ProfileDir = abs

	return nil
}

// DefaultExecutablePath returns the usual Chrome location for the current OS.
func DefaultExecutablePath() string {
	switch runtime.GOOS {
	case "windows":
		return "C:/Program Files/Google/Chrome/Application/chrome.exe"
	case "darwin":
		return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	default:
		return "/usr/bin/google-chrome"
	}
}

// DefaultConfig returns a configuration suitable for most use cases.
// The marker token must still be made unique per installation.
func DefaultConfig() *Config {
	return &Config{
		ExecutablePath: DefaultExecutablePath(),
		ProfileDir:     "profile",
		MarkerToken:    "--ghostchrome-marker",
		PortRange:      PortRange{Min: 49152, Max: 65535},
		ExtraArgs: []string{
			"--start-maximized",
			"--no-first-run",
		},
		Behavior:     Behavior{DisplayMode: DisplayWindowed},
		ProcessNames: append([]string(nil), DefaultProcessNames...),
		Logging:      LoggingConfig{Verbosity: "normal"},
	}
}

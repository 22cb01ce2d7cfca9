package chrome

import (
	"errors"
	"fmt"

	"github.com/entrhq/ghostchrome/pkg/config"
)

var (
	// ErrConfig is matched by configuration errors, including *config.ConfigError.
	ErrConfig = config.ErrInvalid
	// ErrPortExhausted means no free port was found in the configured range.
	ErrPortExhausted = errors.New("no free port in range")
	// ErrConnectionExhausted means the control channel never became available.
	ErrConnectionExhausted = errors.New("control channel unavailable")
	// ErrKill means a stale process could not be terminated.
	ErrKill = errors.New("process kill failed")
	// ErrPreferenceRepair means the profile preference record could not be repaired.
	ErrPreferenceRepair = errors.New("preference repair failed")
	// ErrProfileLocked means another manager holds the profile directory.
	ErrProfileLocked = errors.New("profile directory is in use")
	// ErrReleased is returned by operations on a released session.
	ErrReleased = errors.New("session released")
)

// PortExhaustedError reports a failed port search.
type PortExhaustedError struct {
	Min, Max int
	Attempts int
}

func (e *PortExhaustedError) Error() string {
	return fmt.Sprintf("port allocation: no free port in [%d,%d] after %d attempts", e.Min, e.Max, e.Attempts)
}

func (e *PortExhaustedError) Unwrap() error { return ErrPortExhausted }

// ConnectionExhaustedError reports that every connect attempt failed.
type ConnectionExhaustedError struct {
	Endpoint string
	Attempts int
	// Exited is set when the launched process was gone before any attempt succeeded
	Exited bool
	Err    error
}

func (e *ConnectionExhaustedError) Error() string {
	if e.Exited {
		return fmt.Sprintf("browser exited before the channel opened on %s (%d attempts): %v", e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s unreachable after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *ConnectionExhaustedError) Unwrap() []error { return []error{ErrConnectionExhausted, e.Err} }

// KillError reports a process that could not be terminated.
type KillError struct {
	PID int32
	Err error
}

func (e *KillError) Error() string {
	return fmt.Sprintf("kill pid %d: %v", e.PID, e.Err)
}

func (e *KillError) Unwrap() []error { return []error{ErrKill, e.Err} }

// PreferenceRepairError reports a missing or malformed preference record.
type PreferenceRepairError struct {
	Path string
	Err  error
}

func (e *PreferenceRepairError) Error() string {
	return fmt.Sprintf("repair preferences %s: %v", e.Path, e.Err)
}

func (e *PreferenceRepairError) Unwrap() []error { return []error{ErrPreferenceRepair, e.Err} }

// StageError tags a lifecycle failure with the acquisition stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("acquire session: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort session acquisition.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrPortExhausted) ||
		errors.Is(err, ErrConnectionExhausted) ||
		errors.Is(err, ErrProfileLocked)
}

func configError(field, reason string) error {
	return &config.ConfigError{Field: field, Reason: reason}
}

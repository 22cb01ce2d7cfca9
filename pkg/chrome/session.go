package chrome

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/ghostchrome/pkg/config"
	"github.com/entrhq/ghostchrome/pkg/logging"
	"github.com/entrhq/ghostchrome/pkg/timing"
)

// State is the lifecycle stage of a Session.
type State int

const (
	StateLaunching State = iota
	StateConnected
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateLaunching:
		return "launching"
	case StateConnected:
		return "connected"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns one browser process, its debugging port, the control
// channel and a page. It must be released exactly once; Release is safe to
// call again and on every error path.
type Session struct {
	// ID identifies this session in logs
	ID string

	// CreatedAt is the time acquisition started
	CreatedAt time.Time

	cfg     config.Config
	port    int
	proc    Process
	dialer  Dialer
	channel *Channel
	window  WindowController
	reaper  *Reaper
	lock    *flock.Flock
	sleep   timing.Sleeper
	log     *logging.Logger

	mu          sync.Mutex
	state       State
	windowState WindowState
	releaseOnce sync.Once
	releaseErr  error
}

// Acquire launches a browser for cfg and attaches a control channel to it.
//
// Stale processes carrying cfg's marker are reaped first. Config, port,
// lock and connection failures are returned as fatal errors; a failure
// after launch cleans up the new process before returning.
func Acquire(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, &StageError{Stage: "config", Err: configError("config", "is required")}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	// private copy: the session's config never changes under it
	c := *cfg
	c.ExtraArgs = append([]string(nil), cfg.ExtraArgs...)
	c.ProcessNames = append([]string(nil), cfg.ProcessNames...)
	if err := c.Validate(); err != nil {
		return nil, &StageError{Stage: "config", Err: err}
	}
	if _, err := displayArg(c.Behavior.DisplayMode); err != nil {
		return nil, &StageError{Stage: "config", Err: err}
	}

	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		cfg:       c,
		sleep:     o.sleep,
		state:     StateLaunching,
	}
	s.log = o.log
	if s.log == nil {
		s.log = logging.Discard("chrome")
	}
	s.dialer = o.dialer
	if s.dialer == nil {
		s.dialer = NewPlaywrightDialer(s.log.With("playwright"))
	}

	reaper, err := NewReaper(&s.cfg, o.processes, s.log.With("reaper"))
	if err != nil {
		return nil, &StageError{Stage: "config", Err: err}
	}
	reaper.sleep = o.sleep
	s.reaper = reaper

	lock, err := lockProfile(s.cfg.ProfileDir)
	if err != nil {
		return nil, &StageError{Stage: "lock", Err: err}
	}
	s.lock = lock

	if err := s.start(ctx, o); err != nil {
		if rerr := s.Release(); rerr != nil {
			s.log.Warnf("Cleanup after failed acquire: %v", rerr)
		}
		return nil, err
	}

	s.mu.Lock()
	s.state = StateConnected
	if s.cfg.Behavior.DisplayMode == config.DisplayVisible {
		s.windowState = WindowShown
	} else {
		s.windowState = WindowHidden
	}
	s.mu.Unlock()

	metricActiveSessions.Inc()
	s.log.Infof("Session %s connected (port: %d, display: %s)", s.ID, s.port, s.cfg.Behavior.DisplayMode)
	return s, nil
}

func (s *Session) start(ctx context.Context, o *options) error {
	if _, err := s.reaper.Reap(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warnf("Initial reap failed: %v", err)
	}

	if err := s.sleep(ctx, preLaunchDelay); err != nil {
		return err
	}

	port, err := allocatePort(ctx, s.cfg.PortRange, rand.IntN, o.portProbe)
	if err != nil {
		return &StageError{Stage: "allocate port", Err: err}
	}
	s.port = port

	args, err := BuildArgs(&s.cfg, port)
	if err != nil {
		return &StageError{Stage: "build args", Err: err}
	}

	proc, err := o.launcher.Launch(s.cfg.ExecutablePath, args)
	if err != nil {
		return &StageError{Stage: "launch", Err: err}
	}
	s.proc = proc
	s.log.Verbosef("Launched %s (PID: %d, port: %d)", s.cfg.ExecutablePath, proc.Pid(), port)

	connector := NewConnector(s.dialer, s.sleep, s.log.With("connector"))
	ch, err := connector.Connect(ctx, port, proc.Done())
	if err != nil {
		return &StageError{Stage: "connect", Err: err}
	}
	s.channel = ch
	s.window = o.window(ch)
	return nil
}

// WithSession acquires a session, runs fn and releases the session on every
// exit path, including panics in fn.
func WithSession(ctx context.Context, cfg *config.Config, fn func(*Session) error, opts ...Option) (err error) {
	s, err := Acquire(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(s)
}

// Page returns the page handle of the session.
func (s *Session) Page() playwright.Page {
	if s.channel == nil {
		return nil
	}
	return s.channel.Page
}

// Channel returns the attached control channel.
func (s *Session) Channel() *Channel {
	return s.channel
}

// Port returns the allocated debugging port.
func (s *Session) Port() int {
	return s.port
}

// Config returns a copy of the session's configuration.
func (s *Session) Config() config.Config {
	return s.cfg
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WindowState returns the last visibility set on the window.
func (s *Session) WindowState() WindowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowState
}

func (s *Session) connected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return fmt.Errorf("window: %w", ErrReleased)
	}
	return nil
}

// Hide moves the window far off screen, whatever its current window state.
func (s *Session) Hide(ctx context.Context) error {
	if err := s.connected(); err != nil {
		return err
	}
	if err := hideWindow(ctx, s.window, s.sleep); err != nil {
		return fmt.Errorf("hide window: %w", err)
	}

	s.mu.Lock()
	s.windowState = WindowHidden
	s.mu.Unlock()

	s.log.Verbosef("Session %s window hidden", s.ID)
	return nil
}

// Show moves the window on screen and brings it to the front.
func (s *Session) Show(ctx context.Context) error {
	if err := s.connected(); err != nil {
		return err
	}
	if err := showWindow(ctx, s.window); err != nil {
		return fmt.Errorf("show window: %w", err)
	}

	s.mu.Lock()
	s.windowState = WindowShown
	s.mu.Unlock()

	s.log.Verbosef("Session %s window shown", s.ID)
	return nil
}

// Release disconnects the control channel, kills every process bearing the
// marker token, repairs preferences and unlocks the profile. Only the first
// call does any work; later calls return the first call's result.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		wasConnected := s.state == StateConnected
		s.state = StateReleased
		s.mu.Unlock()

		var errs []error

		if s.channel != nil {
			if err := s.channel.Close(); err != nil {
				s.log.Debugf("Error closing browser: %v", err)
			}
		}
		if s.dialer != nil {
			if err := s.dialer.Close(); err != nil {
				s.log.Debugf("Error stopping driver: %v", err)
			}
		}

		if s.reaper != nil {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			result, err := s.reaper.Reap(ctx)
			cancel()
			if err != nil {
				s.log.Warnf("Teardown reap failed: %v", err)
				errs = append(errs, err)
			}
			for _, e := range result.Errors {
				if errors.Is(e, ErrKill) {
					errs = append(errs, e)
				}
			}
		}

		if s.lock != nil {
			if err := s.lock.Unlock(); err != nil {
				errs = append(errs, fmt.Errorf("unlock profile: %w", err))
			}
		}

		if wasConnected {
			metricActiveSessions.Dec()
		}
		s.releaseErr = errors.Join(errs...)
		s.log.Infof("Session %s released", s.ID)
	})
	return s.releaseErr
}

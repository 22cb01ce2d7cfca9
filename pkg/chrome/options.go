package chrome

import (
	"time"

	"github.com/entrhq/ghostchrome/pkg/logging"
	"github.com/entrhq/ghostchrome/pkg/timing"
)

const (
	// preLaunchDelay follows the initial reap before the new process starts
	preLaunchDelay = 500 * time.Millisecond
	// releaseTimeout bounds the teardown reap
	releaseTimeout = 30 * time.Second
)

// Option customizes session acquisition.
type Option func(*options)

type options struct {
	log       *logging.Logger
	launcher  Launcher
	dialer    Dialer
	processes ProcessTable
	window    func(*Channel) WindowController
	sleep     timing.Sleeper
	portProbe PortProbe
}

func defaultOptions() *options {
	return &options{
		launcher:  ExecLauncher{},
		processes: SystemProcesses{},
		window: func(ch *Channel) WindowController {
			return NewCDPWindow(ch.Page)
		},
		sleep:     timing.Sleep,
		portProbe: ListeningProbe,
	}
}

// WithLogger sets the session logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithDialer replaces the control channel dialer. The session closes it on release.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithProcessTable replaces the OS process table used by the reaper.
func WithProcessTable(p ProcessTable) Option {
	return func(o *options) { o.processes = p }
}

// WithWindowController replaces the window controller factory.
func WithWindowController(f func(*Channel) WindowController) Option {
	return func(o *options) { o.window = f }
}

// WithSleeper replaces every lifecycle wait.
func WithSleeper(s timing.Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

// WithPortProbe replaces the port-in-use check.
func WithPortProbe(p PortProbe) Option {
	return func(o *options) { o.portProbe = p }
}

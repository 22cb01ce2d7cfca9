package chrome

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/ghostchrome/pkg/config"
	"github.com/entrhq/ghostchrome/pkg/logging"
)

type fakeProcess struct {
	pid  int
	done chan struct{}
}

func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

// fakeLauncher registers every launched browser in a fake process table.
type fakeLauncher struct {
	mu      sync.Mutex
	procs   *fakeProcesses
	nextPID int32
	calls   [][]string
	err     error
	// exited makes every launched process report that it has already exited
	exited bool
}

func (l *fakeLauncher) Launch(executable string, args []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, args)
	if l.err != nil {
		return nil, l.err
	}
	l.nextPID++
	pid := 1000 + l.nextPID
	l.procs.add(ProcessInfo{PID: pid, Name: "chrome", Args: append([]string{executable}, args...)})
	done := make(chan struct{})
	if l.exited {
		close(done)
	}
	return &fakeProcess{pid: int(pid), done: done}, nil
}

func (l *fakeLauncher) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type sessionFixture struct {
	cfg      *config.Config
	procs    *fakeProcesses
	launcher *fakeLauncher
	dialer   *fakeDialer
	window   *fakeWindow
	sleeps   *sleepRecorder
	logs     *bytes.Buffer
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	procs := newFakeProcesses()
	return &sessionFixture{
		cfg:      reaperConfig(t),
		procs:    procs,
		launcher: &fakeLauncher{procs: procs},
		dialer:   &fakeDialer{},
		window:   &fakeWindow{},
		sleeps:   &sleepRecorder{},
		logs:     &bytes.Buffer{},
	}
}

func (f *sessionFixture) options() []Option {
	return []Option{
		WithLogger(logging.NewWriterLogger("chrome", f.logs)),
		WithLauncher(f.launcher),
		WithDialer(f.dialer),
		WithProcessTable(f.procs),
		WithWindowController(func(*Channel) WindowController { return f.window }),
		WithSleeper(f.sleeps.Sleep),
		WithPortProbe(func(context.Context, int) bool { return false }),
	}
}

func (f *sessionFixture) acquire(t *testing.T) *Session {
	t.Helper()
	s, err := Acquire(context.Background(), f.cfg, f.options()...)
	require.NoError(t, err)
	return s
}

func TestAcquireAndRelease(t *testing.T) {
	f := newSessionFixture(t)
	s := f.acquire(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, WindowHidden, s.WindowState())
	assert.GreaterOrEqual(t, s.Port(), 49152)
	assert.LessOrEqual(t, s.Port(), 65535)
	assert.NotNil(t, s.Channel())

	require.Equal(t, 1, f.launcher.Calls())
	args := f.launcher.calls[0]
	assert.Equal(t, "--marker-T", args[0])
	assert.Len(t, f.procs.running("--marker-T"), 1)

	require.NoError(t, s.Release())
	assert.Equal(t, StateReleased, s.State())
	assert.Empty(t, f.procs.running("--marker-T"))
	assert.Equal(t, 1, f.dialer.closed)

	// second release is a no-op
	require.NoError(t, s.Release())
	assert.Equal(t, 1, f.dialer.closed)

	assert.ErrorIs(t, s.Show(context.Background()), ErrReleased)
	assert.ErrorIs(t, s.Hide(context.Background()), ErrReleased)
}

func TestAcquireRejectsDisplayModes(t *testing.T) {
	for _, mode := range []config.DisplayMode{config.DisplayHidden, "foo", ""} {
		t.Run(string(mode), func(t *testing.T) {
			f := newSessionFixture(t)
			f.cfg.Behavior.DisplayMode = mode

			_, err := Acquire(context.Background(), f.cfg, f.options()...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.True(t, IsFatal(err))
			assert.Zero(t, f.launcher.Calls())
		})
	}
}

func TestAcquireDoesNotModifyCallerConfig(t *testing.T) {
	f := newSessionFixture(t)
	f.cfg.ProcessNames = nil
	s := f.acquire(t)
	defer s.Release()

	assert.Nil(t, f.cfg.ProcessNames)
	assert.Equal(t, config.DefaultProcessNames, s.Config().ProcessNames)
}

func TestAcquireReapsStaleProcesses(t *testing.T) {
	f := newSessionFixture(t)
	f.procs.add(ProcessInfo{PID: 77, Name: "chrome", Args: []string{"chrome", "--marker-T"}})
	f.procs.add(ProcessInfo{PID: 78, Name: "chrome", Args: []string{"chrome", "--someone-else"}})

	s := f.acquire(t)
	defer s.Release()

	assert.Contains(t, f.procs.killed, int32(77))
	assert.NotContains(t, f.procs.killed, int32(78))
	// only the new browser carries the marker now
	assert.Len(t, f.procs.running("--marker-T"), 1)
}

func TestAcquireConnectFailureCleansUp(t *testing.T) {
	f := newSessionFixture(t)
	f.dialer.failures = -1

	_, err := Acquire(context.Background(), f.cfg, f.options()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionExhausted)

	var stage *StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, "connect", stage.Stage)

	assert.Equal(t, 5, f.dialer.calls)
	assert.Equal(t, 1, f.launcher.Calls())
	assert.Empty(t, f.procs.running("--marker-T"))

	// the profile lock was released
	f.dialer = &fakeDialer{}
	s := f.acquire(t)
	require.NoError(t, s.Release())
}

func TestAcquireBrowserExitedBeforeConnect(t *testing.T) {
	f := newSessionFixture(t)
	f.dialer.failures = -1
	f.launcher.exited = true

	_, err := Acquire(context.Background(), f.cfg, f.options()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionExhausted)
	assert.Equal(t, 5, f.dialer.calls)

	var cerr *ConnectionExhaustedError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Exited)
	assert.Contains(t, err.Error(), "acquire session: connect: browser exited before the channel opened")
	assert.NotContains(t, err.Error(), "connect: connect")
}

func TestAcquireLaunchFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.launcher.err = errors.New("exec: not found")

	_, err := Acquire(context.Background(), f.cfg, f.options()...)
	require.Error(t, err)

	var stage *StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, "launch", stage.Stage)
	assert.Zero(t, f.dialer.calls)
}

func TestAcquirePortExhausted(t *testing.T) {
	f := newSessionFixture(t)
	opts := append(f.options(), WithPortProbe(func(context.Context, int) bool { return true }))

	_, err := Acquire(context.Background(), f.cfg, opts...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPortExhausted)
	assert.Zero(t, f.launcher.Calls())
}

func TestAcquireProfileLocked(t *testing.T) {
	f := newSessionFixture(t)
	s := f.acquire(t)
	defer s.Release()

	_, err := Acquire(context.Background(), f.cfg, f.options()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProfileLocked)
	assert.Equal(t, 1, f.launcher.Calls())
	// the first session's browser is untouched
	assert.Len(t, f.procs.running("--marker-T"), 1)
}

func TestSessionHideShow(t *testing.T) {
	f := newSessionFixture(t)
	f.cfg.Behavior.DisplayMode = config.DisplayVisible
	s := f.acquire(t)
	defer s.Release()

	ctx := context.Background()
	assert.Equal(t, WindowShown, s.WindowState())

	require.NoError(t, s.Hide(ctx))
	assert.Equal(t, WindowHidden, s.WindowState())

	// repeated hides are allowed
	require.NoError(t, s.Hide(ctx))
	assert.Equal(t, WindowHidden, s.WindowState())

	require.NoError(t, s.Show(ctx))
	assert.Equal(t, WindowShown, s.WindowState())
	assert.Equal(t, 3, f.window.lookups)
}

func TestSessionShowFailureKeepsState(t *testing.T) {
	f := newSessionFixture(t)
	f.window.failOn = "front"
	s := f.acquire(t)
	defer s.Release()

	err := s.Show(context.Background())
	require.Error(t, err)
	assert.Equal(t, WindowHidden, s.WindowState())
}

func TestReleaseReportsKillFailure(t *testing.T) {
	f := newSessionFixture(t)
	s := f.acquire(t)

	f.procs.failFor[1001] = errors.New("access denied")

	err := s.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKill)
	assert.Equal(t, StateReleased, s.State())
}

func TestWithSessionReleasesOnError(t *testing.T) {
	f := newSessionFixture(t)
	errBoom := errors.New("boom")

	var seen *Session
	err := WithSession(context.Background(), f.cfg, func(s *Session) error {
		seen = s
		assert.Len(t, f.procs.running("--marker-T"), 1)
		return errBoom
	}, f.options()...)

	require.ErrorIs(t, err, errBoom)
	require.NotNil(t, seen)
	assert.Equal(t, StateReleased, seen.State())
	assert.Empty(t, f.procs.running("--marker-T"))
}

func TestWithSessionReleasesOnPanic(t *testing.T) {
	f := newSessionFixture(t)

	assert.Panics(t, func() {
		_ = WithSession(context.Background(), f.cfg, func(s *Session) error {
			panic("script failed")
		}, f.options()...)
	})
	assert.Empty(t, f.procs.running("--marker-T"))
}

func TestWithSessionSequential(t *testing.T) {
	f := newSessionFixture(t)
	for i := 0; i < 3; i++ {
		err := WithSession(context.Background(), f.cfg, func(s *Session) error {
			return nil
		}, f.options()...)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.launcher.Calls())
	assert.Empty(t, f.procs.running("--marker-T"))
}

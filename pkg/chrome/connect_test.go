package chrome

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDialer fails the first failures dials and then succeeds.
type fakeDialer struct {
	mu        sync.Mutex
	failures  int
	calls     int
	endpoints []string
	closed    int
	err       error
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (*Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.endpoints = append(d.endpoints, endpoint)
	if d.failures < 0 || d.calls <= d.failures {
		if d.err != nil {
			return nil, d.err
		}
		return nil, errors.New("connection refused")
	}
	return &Channel{}, nil
}

func (d *fakeDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// sleepRecorder records requested waits without blocking.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

func TestConnectExhaustsAttempts(t *testing.T) {
	dialer := &fakeDialer{failures: -1}
	sleeps := &sleepRecorder{}
	c := NewConnector(dialer, sleeps.Sleep, nil)

	ch, err := c.Connect(context.Background(), 50123, nil)
	require.Error(t, err)
	assert.Nil(t, ch)

	assert.Equal(t, 5, dialer.calls)
	assert.True(t, errors.Is(err, ErrConnectionExhausted))
	assert.True(t, IsFatal(err))

	var cerr *ConnectionExhaustedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "http://127.0.0.1:50123", cerr.Endpoint)
	assert.Equal(t, 5, cerr.Attempts)

	// warm-up plus a delay between each pair of attempts
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second,
	}, sleeps.Waits())
}

func TestConnectSucceedsAfterRetries(t *testing.T) {
	dialer := &fakeDialer{failures: 2}
	sleeps := &sleepRecorder{}
	c := NewConnector(dialer, sleeps.Sleep, nil)

	ch, err := c.Connect(context.Background(), 50124, nil)
	require.NoError(t, err)
	require.NotNil(t, ch)

	assert.Equal(t, 3, dialer.calls)
	for _, ep := range dialer.endpoints {
		assert.Equal(t, "http://127.0.0.1:50124", ep)
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		2 * time.Second, 2 * time.Second,
		500 * time.Millisecond,
	}, sleeps.Waits())
}

func TestConnectFirstAttempt(t *testing.T) {
	dialer := &fakeDialer{}
	sleeps := &sleepRecorder{}
	c := NewConnector(dialer, sleeps.Sleep, nil)

	_, err := c.Connect(context.Background(), 50125, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, dialer.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 500 * time.Millisecond}, sleeps.Waits())
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dialer := &fakeDialer{failures: -1}
	sleeps := &sleepRecorder{}
	c := NewConnector(dialer, sleeps.Sleep, nil)

	_, err := c.Connect(ctx, 50126, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dialer.calls)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:9222", Endpoint(9222))
}

func TestConnectReportsExitedProcess(t *testing.T) {
	dialer := &fakeDialer{failures: -1}
	sleeps := &sleepRecorder{}
	c := NewConnector(dialer, sleeps.Sleep, nil)

	exited := make(chan struct{})
	close(exited)

	_, err := c.Connect(context.Background(), 50127, exited)
	require.Error(t, err)
	assert.Equal(t, 5, dialer.calls)
	assert.ErrorIs(t, err, ErrConnectionExhausted)

	var cerr *ConnectionExhaustedError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Exited)
	assert.Contains(t, err.Error(), "exited before the channel opened")
}

func TestConnectRunningProcessNotExited(t *testing.T) {
	dialer := &fakeDialer{failures: -1}
	c := NewConnector(dialer, (&sleepRecorder{}).Sleep, nil)

	_, err := c.Connect(context.Background(), 50128, make(chan struct{}))

	var cerr *ConnectionExhaustedError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.Exited)
	assert.Contains(t, err.Error(), "unreachable after 5 attempts")
}

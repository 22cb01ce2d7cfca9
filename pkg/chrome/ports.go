package chrome

import (
	"context"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	"github.com/entrhq/ghostchrome/pkg/config"
)

const (
	// maxPortAttempts bounds the random port search
	maxPortAttempts  = 100
	portProbeTimeout = 200 * time.Millisecond
)

// PortProbe reports whether something is listening on a local port.
type PortProbe func(ctx context.Context, port int) bool

// ListeningProbe dials 127.0.0.1:port; a successful connect means the port is taken.
func ListeningProbe(ctx context.Context, port int) bool {
	dialer := net.Dialer{Timeout: portProbeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// AllocatePort picks a random port in r that nothing is listening on.
// The check is point-in-time: another process may bind the port before the
// browser does.
func AllocatePort(ctx context.Context, r config.PortRange) (int, error) {
	return allocatePort(ctx, r, rand.IntN, ListeningProbe)
}

func allocatePort(ctx context.Context, r config.PortRange, intn func(int) int, inUse PortProbe) (int, error) {
	if r.Min < 1 || r.Max > 65535 || r.Min > r.Max {
		return 0, configError("port_range", "invalid range")
	}

	for attempt := 0; attempt < maxPortAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		port := r.Min + intn(r.Max-r.Min+1)
		if !inUse(ctx, port) {
			return port, nil
		}
	}

	return 0, &PortExhaustedError{Min: r.Min, Max: r.Max, Attempts: maxPortAttempts}
}

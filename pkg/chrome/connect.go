package chrome

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/ghostchrome/pkg/logging"
	"github.com/entrhq/ghostchrome/pkg/timing"
)

const (
	// connectWarmup lets the browser open its debugging port before the first attempt
	connectWarmup     = 2 * time.Second
	connectRetryDelay = 2 * time.Second
	connectAttempts   = 5
	// settle time after a page handle has been resolved
	connectSettle = 500 * time.Millisecond

	cdpConnectTimeout = 10000.0 // milliseconds
)

// pointerTrackerScript records the last pointer position so movements can
// start where the previous one ended.
const pointerTrackerScript = `(() => {
  if (window.__gcPointer) { return; }
  Object.defineProperty(window, '__gcPointer', { value: true, enumerable: false });
  document.addEventListener('mousemove', (e) => {
    window.lastMouseX = e.clientX;
    window.lastMouseY = e.clientY;
  }, { capture: true, passive: true });
})()`

// Channel is an attached control channel with a usable page.
type Channel struct {
	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page
}

// Close disconnects from the browser. The browser process keeps running.
func (c *Channel) Close() error {
	if c == nil || c.Browser == nil {
		return nil
	}
	return c.Browser.Close()
}

// Dialer attaches a control channel to a debugging endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (*Channel, error)
	// Close releases whatever the dialer started (the playwright driver).
	Close() error
}

// Connector retries Dial until the browser accepts the connection.
type Connector struct {
	dialer   Dialer
	attempts int
	warmup   time.Duration
	delay    time.Duration
	settle   time.Duration
	sleep    timing.Sleeper
	log      *logging.Logger
}

// NewConnector returns a connector with the standard warm-up, retry count
// and delay.
func NewConnector(dialer Dialer, sleep timing.Sleeper, log *logging.Logger) *Connector {
	if sleep == nil {
		sleep = timing.Sleep
	}
	if log == nil {
		log = logging.Discard("connector")
	}
	return &Connector{
		dialer:   dialer,
		attempts: connectAttempts,
		warmup:   connectWarmup,
		delay:    connectRetryDelay,
		settle:   connectSettle,
		sleep:    sleep,
		log:      log,
	}
}

// Endpoint returns the debugging endpoint for port.
func Endpoint(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// Connect waits for the warm-up period and then makes up to five attempts
// to attach, pausing a fixed delay between them. exited is the launched
// process's Done channel; nil means the process is not watched.
func (c *Connector) Connect(ctx context.Context, port int, exited <-chan struct{}) (*Channel, error) {
	endpoint := Endpoint(port)

	if err := c.sleep(ctx, c.warmup); err != nil {
		return nil, err
	}

	var lastErr error
	gone := false
	for attempt := 1; attempt <= c.attempts; attempt++ {
		recordConnectAttempt()

		ch, err := c.dialer.Dial(ctx, endpoint)
		if err == nil {
			if err := c.sleep(ctx, c.settle); err != nil {
				_ = ch.Close()
				return nil, err
			}
			c.log.Infof("Browser attached (port: %d, attempt %d/%d)", port, attempt, c.attempts)
			return ch, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !gone && closed(exited) {
			gone = true
			c.log.Warnf("Browser process exited before the channel opened (attempt %d/%d)", attempt, c.attempts)
		}
		if attempt < c.attempts {
			c.log.Verbosef("Connection attempt %d/%d failed: %v", attempt, c.attempts, err)
			if err := c.sleep(ctx, c.delay); err != nil {
				return nil, err
			}
		}
	}

	recordConnectFailure()
	c.log.Errorf("Failed to attach after %d attempts: %v", c.attempts, lastErr)
	return nil, &ConnectionExhaustedError{Endpoint: endpoint, Attempts: c.attempts, Exited: gone, Err: lastErr}
}

func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// PlaywrightDialer connects over CDP with playwright-go. The playwright
// driver is started on first use and stopped by Close.
type PlaywrightDialer struct {
	mu  sync.Mutex
	pw  *playwright.Playwright
	log *logging.Logger
}

// NewPlaywrightDialer creates a dialer; log may be nil.
func NewPlaywrightDialer(log *logging.Logger) *PlaywrightDialer {
	if log == nil {
		log = logging.Discard("playwright")
	}
	return &PlaywrightDialer{log: log}
}

func (d *PlaywrightDialer) start() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw != nil {
		return d.pw, nil
	}

	// Only the driver is needed: the browser is ours. Output is discarded.
	opts := &playwright.RunOptions{
		SkipInstallBrowsers: true,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		d.log.Infof("Playwright driver not ready (%v), installing", err)
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
		pw, err = playwright.Run(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to start playwright: %w", err)
		}
	}

	d.pw = pw
	return pw, nil
}

// Dial implements Dialer. It reuses the first existing context and page
// (a restored session) and creates them only when absent.
func (d *PlaywrightDialer) Dial(ctx context.Context, endpoint string) (*Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := d.start()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.ConnectOverCDP(endpoint, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(cdpConnectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("connect over cdp: %w", err)
	}

	var bctx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		bctx = contexts[0]
	} else {
		bctx, err = browser.NewContext()
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
	}

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(pointerTrackerScript)}); err != nil {
		d.log.Warnf("Pointer tracker not installed: %v", err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
		// existing documents never saw the init script
		if _, err := page.Evaluate(pointerTrackerScript); err != nil {
			d.log.Debugf("Pointer tracker not injected into existing page: %v", err)
		}
	} else {
		page, err = bctx.NewPage()
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	return &Channel{Browser: browser, Context: bctx, Page: page}, nil
}

// Close stops the playwright driver.
func (d *PlaywrightDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}
	err := d.pw.Stop()
	d.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/entrhq/ghostchrome/pkg/chrome"
	"github.com/entrhq/ghostchrome/pkg/human"
	"github.com/entrhq/ghostchrome/pkg/logging"
)

var (
	runURL         string
	runShow        bool
	runScroll      int
	runClick       string
	runWaitFor     string
	runWaitTimeout time.Duration
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch a managed browser and keep it until interrupted",
	Long: `Launch Chrome as configured, attach to it, optionally open a URL, and
hold the session until SIGINT or SIGTERM. The browser is killed and the
profile repaired on exit.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateRunFlags(runURL, runScroll, runClick, runShow, runWaitFor)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runMetricsAddr != "" {
			srv := serveMetrics(runMetricsAddr, log)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		printHeader("ghostchrome " + version)
		printField("executable", cfg.ExecutablePath)
		printField("profile", cfg.ProfileDir)
		printField("display", cfg.Behavior.DisplayMode)
		if path := log.LogPath(); path != "" {
			printField("log", path)
		}

		return chrome.WithSession(ctx, cfg, func(s *chrome.Session) error {
			return hold(ctx, s, log)
		}, chrome.WithLogger(log.With("chrome")))
	},
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "navigate to this URL after connecting")
	runCmd.Flags().BoolVar(&runShow, "show", false, "move the window on screen after connecting")
	runCmd.Flags().IntVar(&runScroll, "scroll", 0, "scroll down this many viewports after navigating")
	runCmd.Flags().StringVar(&runClick, "click", "", "after navigating, scroll to this selector and click it")
	runCmd.Flags().StringVar(&runWaitFor, "wait-for", "", "with --show, hide the window again once this selector is visible")
	runCmd.Flags().DurationVar(&runWaitTimeout, "wait-timeout", 15*time.Minute, "how long --wait-for waits")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}

// validateRunFlags rejects flag combinations that would be silently ignored.
func validateRunFlags(url string, scroll int, click string, show bool, waitFor string) error {
	if scroll < 0 {
		return errors.New("--scroll must not be negative")
	}
	if url == "" && scroll > 0 {
		return errors.New("--scroll requires --url")
	}
	if url == "" && click != "" {
		return errors.New("--click requires --url")
	}
	if waitFor != "" && !show {
		return errors.New("--wait-for requires --show")
	}
	return nil
}

// hold drives the optional startup steps and then waits for ctx.
func hold(ctx context.Context, s *chrome.Session, log *logging.Logger) error {
	printSuccess("Connected (session %s, port %d)", s.ID, s.Port())

	page := human.FromPlaywright(s.Page())
	h := human.New(human.WithLogger(log.With("human")))

	if runURL != "" {
		if err := page.Goto(runURL, human.NavigateOptions{}); err != nil {
			return err
		}
		title, _ := s.Page().Title()
		printSuccess("Opened %s %q", runURL, title)

		for i := 0; i < runScroll; i++ {
			// gestures only fail on interrupt
			if err := h.Sleep(ctx, human.Small); err != nil {
				return nil
			}
			if err := h.ScrollBy(ctx, page, 0, human.Down); err != nil {
				return nil
			}
		}

		if runClick != "" {
			el, err := page.QuerySelector(runClick)
			if err != nil {
				return err
			}
			if el == nil {
				return fmt.Errorf("no element matches %q", runClick)
			}
			if err := h.Move(ctx, page, el, human.MoveOptions{Scroll: true, Click: true}); err != nil {
				return nil
			}
			printSuccess("Clicked %s", runClick)
		}
	}

	if runShow {
		if err := s.Show(ctx); err != nil {
			return fmt.Errorf("show window: %w", err)
		}
		printSuccess("Window shown")

		if runWaitFor != "" {
			if err := waitAndHide(ctx, s, page); err != nil {
				return err
			}
		}
	}

	fmt.Println(labelStyle.Render("") + "Press Ctrl+C to stop")
	<-ctx.Done()
	fmt.Println()
	printSuccess("Shutting down")
	return nil
}

// waitAndHide leaves the window up until the user has finished with it,
// signalled by runWaitFor becoming visible.
func waitAndHide(ctx context.Context, s *chrome.Session, page *human.PlaywrightPage) error {
	visible, err := page.IsVisible(runWaitFor)
	if err != nil {
		return err
	}
	if !visible {
		printField("waiting for", runWaitFor)
		err := page.WaitFor(runWaitFor, human.WaitOptions{
			Timeout: float64(runWaitTimeout.Milliseconds()),
		})
		if err != nil {
			return err
		}
	}
	if err := s.Hide(ctx); err != nil {
		return fmt.Errorf("hide window: %w", err)
	}
	printSuccess("Window hidden")
	return nil
}

func serveMetrics(addr string, log *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	printField("metrics", "http://"+addr+"/metrics")
	return srv
}

// Package chrome manages the lifecycle of a locally launched Chrome process
// driven over the remote debugging protocol.
//
// A Session owns one browser process, one debugging port and one attached
// control channel. It is acquired from a validated config.Config and must be
// released exactly once.
//
// # Session Lifecycle
//
//  1. Lock: the profile directory is locked so a second manager cannot reap
//     this one's browser
//  2. Reap: stale processes carrying the marker token are killed and the
//     profile's preference record is repaired
//  3. Launch: a free port is chosen and Chrome is started with the marker
//     token as its first argument
//  4. Connect: the control channel is attached with a warm-up delay and a
//     bounded number of retries
//  5. Release: the channel is closed, every marked process is killed and
//     the lock is dropped
//
// # Display Modes
//
// A windowed browser renders a real window placed far outside the visible
// screen. Show and Hide move that window on and off screen without
// relaunching. Headless launches are not supported.
//
// # Example Usage
//
//	cfg, err := config.Load("ghostchrome.yaml")
//	if err != nil {
//	    return err
//	}
//
//	err = chrome.WithSession(ctx, cfg, func(s *chrome.Session) error {
//	    if _, err := s.Page().Goto("https://example.com"); err != nil {
//	        return err
//	    }
//	    return s.Show(ctx)
//	})
package chrome

// Package human generates pointer, scroll and typing input that looks like a
// person at the keyboard.
//
// The generators only execute primitives against a Page and Element supplied
// by the caller; they never decide what to interact with. Every gesture is
// its own error boundary: a failed page call is logged and the gesture
// returns nil, so one failed gesture never ends the session. Context
// cancellation is the only error a gesture returns.
//
//	h := human.New()
//	page := human.FromPlaywright(session.Page())
//	btn := page.Locator("a.global_action_link")
//	if err := h.Move(ctx, page, btn, human.MoveOptions{Click: true, Scroll: true}); err != nil {
//	    return err
//	}
//	return h.Sleep(ctx, human.Small)
package human

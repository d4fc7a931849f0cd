package review

// Prompt is the text shown while an action awaits confirmation.
type Prompt struct {
	Title   string
	Message string
}

// Gate defers one destructive or session-ending action until the user
// confirms it. It holds at most one pending action; R is whatever the action
// produces (a tea.Cmd in the TUI, an error on the command line).
//
// Gate is not safe for concurrent use; it belongs to a single event loop.
type Gate[R any] struct {
	prompt Prompt
	action func() R
}

// Request replaces any pending action with action.
func (g *Gate[R]) Request(title, message string, action func() R) {
	g.prompt = Prompt{Title: title, Message: message}
	g.action = action
}

// Pending returns the prompt of the pending action, if any.
func (g *Gate[R]) Pending() (Prompt, bool) {
	if g.action == nil {
		return Prompt{}, false
	}
	return g.prompt, true
}

// Confirm clears and invokes the pending action. ok is false when nothing
// was pending.
func (g *Gate[R]) Confirm() (result R, ok bool) {
	action := g.action
	if action == nil {
		return result, false
	}
	g.action = nil
	g.prompt = Prompt{}
	return action(), true
}

// Cancel discards the pending action without invoking it.
func (g *Gate[R]) Cancel() bool {
	had := g.action != nil
	g.action = nil
	g.prompt = Prompt{}
	return had
}

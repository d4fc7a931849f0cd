package review

import (
	"errors"
	"fmt"
)

var (
	// ErrFinalized is returned when a mutation is attempted after the session
	// was completed or cancelled. No authority request is made.
	ErrFinalized = errors.New("session is already finalized")

	// ErrInFlight is returned when a request for the same change (or a second
	// finalization) is already outstanding.
	ErrInFlight = errors.New("a request for this item is already in progress")

	// ErrUnknownChange is returned for a change id the registry does not hold.
	ErrUnknownChange = errors.New("unknown change")
)

// LoadError is a fatal session startup failure.
type LoadError struct {
	SessionID string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load session %s: %v", e.SessionID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ActionError is a non-fatal failure of apply, unapply, complete or cancel.
// Its message is the reason shown to the user.
type ActionError struct {
	Op       string // "apply", "unapply", "complete", "cancel"
	ChangeID string // empty for session-level operations
	Err      error
}

func (e *ActionError) Error() string {
	return e.Err.Error()
}

func (e *ActionError) Unwrap() error { return e.Err }

// RejectedError is returned by an Authority when it answered the request but
// reported failure.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "request rejected by server"
	}
	return e.Reason
}

// ValidationError reports a malformed or incomplete authority response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid response: " + e.Field + ": " + e.Message
}

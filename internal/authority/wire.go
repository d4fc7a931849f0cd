// Package authority connects the review controller to the system of record
// that owns review sessions: an HTTP client for a remote server, and an
// in-memory implementation with its own HTTP server for local use.
package authority

import "github.com/fakeyudi/diffreview/internal/review"

// sessionReply is the body of GET /api/session/{id}. A failed lookup carries
// only Error.
type sessionReply struct {
	ID             string        `json:"id,omitempty"`
	RepositoryName string        `json:"repository_name,omitempty"`
	Status         review.Status `json:"status,omitempty"`
	Files          []review.File `json:"files"`
	AppliedChanges *[]string     `json:"applied_changes,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// errorReply is the body of any failed request that is not an action.
type errorReply struct {
	Error string `json:"error"`
}

// changeRequest is the body of the apply and unapply endpoints.
type changeRequest struct {
	ChangeID string `json:"change_id"`
}

// actionReply is the body returned by apply, unapply, complete and cancel.
// Success is a pointer so a reply that omits it can be told apart from false.
type actionReply struct {
	Success        *bool    `json:"success,omitempty"`
	Message        string   `json:"message,omitempty"`
	Error          string   `json:"error,omitempty"`
	AppliedChanges []string `json:"applied_changes,omitempty"`
}

func succeeded(message string) actionReply {
	ok := true
	return actionReply{Success: &ok, Message: message}
}

func failed(message string) actionReply {
	ok := false
	return actionReply{Success: &ok, Message: message}
}

// outcome interprets an action reply. A reply that names neither success nor
// an error is malformed.
func (r actionReply) outcome() error {
	switch {
	case r.Success != nil && *r.Success:
		return nil
	case r.Success != nil:
		reason := r.Error
		if reason == "" {
			reason = r.Message
		}
		return &review.RejectedError{Reason: reason}
	case r.Error != "":
		return &review.RejectedError{Reason: r.Error}
	}
	return &review.ValidationError{Field: "success", Message: "missing from response"}
}

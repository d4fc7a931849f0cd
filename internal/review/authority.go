package review

import "context"

// Authority is the remote system of record that mutates files and decides
// whether a change is applied. A failure the authority reports explicitly is
// returned as *RejectedError; a malformed reply as *ValidationError.
type Authority interface {
	LoadSession(ctx context.Context, sessionID string) (*Snapshot, error)
	ApplyChange(ctx context.Context, sessionID, changeID string) error
	UnapplyChange(ctx context.Context, sessionID, changeID string) error
	// CompleteSession returns the authority's list of changes to be applied.
	CompleteSession(ctx context.Context, sessionID string) ([]string, error)
	CancelSession(ctx context.Context, sessionID string) error
}

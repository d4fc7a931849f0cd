// Package history remembers the review sessions opened on this machine so
// `diffreview review` can reopen the last one and `diffreview status` can
// list recent outcomes.
package history

import (
	"time"

	"github.com/fakeyudi/diffreview/internal/review"
)

// MaxEntries bounds the history file.
const MaxEntries = 50

// Entry records one review session as seen from this machine.
type Entry struct {
	SessionID      string        `json:"session_id"`
	ServerURL      string        `json:"server_url"`
	RepositoryName string        `json:"repository_name,omitempty"`
	Status         review.Status `json:"status"`
	OpenedAt       time.Time     `json:"opened_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty"`
	AppliedChanges []string      `json:"applied_changes,omitempty"`
	TotalChanges   int           `json:"total_changes"`
}

// History is the list of entries, most recent first.
type History struct {
	Entries []Entry `json:"entries"`
}

// Record upserts e by session id and server, moving it to the front.
func (h *History) Record(e Entry) {
	out := make([]Entry, 0, len(h.Entries)+1)
	out = append(out, e)
	for _, old := range h.Entries {
		if old.SessionID == e.SessionID && old.ServerURL == e.ServerURL {
			continue
		}
		out = append(out, old)
	}
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	h.Entries = out
}

// Last returns the most recently recorded entry.
func (h *History) Last() (Entry, bool) {
	if len(h.Entries) == 0 {
		return Entry{}, false
	}
	return h.Entries[0], true
}

// Find returns the entry for a session id on any server.
func (h *History) Find(sessionID string) (Entry, bool) {
	for _, e := range h.Entries {
		if e.SessionID == sessionID {
			return e, true
		}
	}
	return Entry{}, false
}

// Package report renders the outcome of a finished review session.
package report

import (
	"time"

	"github.com/fakeyudi/diffreview/internal/review"
)

// Report is the complete, renderable record of a finished review.
type Report struct {
	SessionID      string        `json:"session_id"`
	RepositoryName string        `json:"repository_name,omitempty"`
	ServerURL      string        `json:"server_url,omitempty"`
	Status         review.Status `json:"status"`
	GeneratedAt    time.Time     `json:"generated_at"`
	Total          int           `json:"total"`
	Applied        int           `json:"applied"`
	Percentage     float64       `json:"percentage"`
	// AppliedChanges is the server's list when it sent one, otherwise the
	// locally tracked applied ids.
	AppliedChanges []string     `json:"applied_changes"`
	Files          []FileReport `json:"files"`
}

// FileReport summarizes one file of the session.
type FileReport struct {
	Path     string         `json:"path"`
	FileType string         `json:"file_type,omitempty"`
	Changes  []ChangeReport `json:"changes"`
}

// ChangeReport is one change and whether it ended up applied.
type ChangeReport struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	LineNumber int    `json:"line_number"`
	Reason     string `json:"reason,omitempty"`
	Applied    bool   `json:"applied"`
}

// Build assembles a report from the session registry. done may be nil when
// the session was cancelled or never finished.
func Build(reg *review.Registry, done *review.Completion, serverURL string, now time.Time) *Report {
	sess := reg.Session()
	p := reg.Progress()
	r := &Report{
		SessionID:      sess.ID,
		RepositoryName: sess.RepositoryName,
		ServerURL:      serverURL,
		Status:         reg.Status(),
		GeneratedAt:    now,
		Total:          p.Total,
		Applied:        p.Applied,
		Percentage:     p.Percentage,
		AppliedChanges: reg.AppliedIDs(),
		Files:          make([]FileReport, 0, len(sess.Files)),
	}
	if done != nil && done.AppliedChanges != nil {
		r.AppliedChanges = done.AppliedChanges
	}
	if r.AppliedChanges == nil {
		r.AppliedChanges = []string{}
	}

	for _, f := range sess.Files {
		fr := FileReport{Path: f.Path, FileType: f.FileType, Changes: make([]ChangeReport, 0, len(f.Changes))}
		for _, c := range f.Changes {
			fr.Changes = append(fr.Changes, ChangeReport{
				ID:         c.ID,
				Label:      c.Type.Label(),
				LineNumber: c.LineNumber,
				Reason:     c.Reason,
				Applied:    reg.IsApplied(c.ID),
			})
		}
		r.Files = append(r.Files, fr)
	}
	return r
}

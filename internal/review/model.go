// Package review holds the state machine behind a diff review session: which
// proposed edits exist, which the authority has committed, and when the
// session is finalized.
package review

import "strings"

// Status is the authority-reported lifecycle state of a session. Values other
// than the known ones are carried opaquely and treated as mutable.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Finalized reports whether the session no longer accepts mutations.
// The authority may send "Completed" or "completed"; both count.
func (s Status) Finalized() bool {
	switch Status(strings.ToLower(string(s))) {
	case StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Session is one review unit spanning a fixed, ordered set of files.
type Session struct {
	ID             string `json:"id" yaml:"id"`
	RepositoryName string `json:"repository_name" yaml:"repository_name"`
	Status         Status `json:"status" yaml:"status"`
	Files          []File `json:"files" yaml:"files"`
}

// File groups the proposed changes for one path. OriginalContent and
// PreviewContent are whatever the authority supplied and are never recomputed.
type File struct {
	Path            string   `json:"file_path" yaml:"file_path"`
	FileType        string   `json:"file_type" yaml:"file_type"`
	OriginalContent string   `json:"original_content" yaml:"original_content"`
	PreviewContent  string   `json:"preview_content" yaml:"preview_content"`
	Changes         []Change `json:"changes" yaml:"changes"`
}

// Change is one atomic proposed edit. ID is unique across the whole session.
type Change struct {
	ID         string     `json:"id" yaml:"id"`
	Type       ChangeType `json:"change_type" yaml:"change_type"`
	LineNumber int        `json:"line_number" yaml:"line_number"`
	OldContent *string    `json:"old_content,omitempty" yaml:"old_content,omitempty"`
	NewContent *string    `json:"new_content,omitempty" yaml:"new_content,omitempty"`
	Reason     string     `json:"reason" yaml:"reason"`
	Applied    bool       `json:"applied" yaml:"applied"`
}

// BodyKind describes what the change body shows, derived from which of
// OldContent/NewContent are present.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyModification
	BodyInsertion
	BodyDeletion
)

// Body reports how the change body should be presented.
func (c Change) Body() BodyKind {
	switch {
	case c.OldContent != nil && c.NewContent != nil:
		return BodyModification
	case c.NewContent != nil:
		return BodyInsertion
	case c.OldContent != nil:
		return BodyDeletion
	}
	return BodyNone
}

// ChangeType is an open enumeration; unknown values are legal.
type ChangeType string

const (
	ChangeReplace          ChangeType = "replace"
	ChangeInsertAfter      ChangeType = "insert_after"
	ChangeInsertBefore     ChangeType = "insert_before"
	ChangeDelete           ChangeType = "delete"
	ChangeCreateFile       ChangeType = "create_file"
	ChangeDeleteFile       ChangeType = "delete_file"
	ChangeReplaceRange     ChangeType = "replace_range"
	ChangeInsertManyAfter  ChangeType = "insert_many_after"
	ChangeInsertManyBefore ChangeType = "insert_many_before"
	ChangeDeleteMany       ChangeType = "delete_many"
)

// Label returns the display classification: MODIFY, INSERT, DELETE or CREATE.
// Unrecognized types display as their own uppercased value.
func (t ChangeType) Label() string {
	switch t {
	case ChangeReplace, ChangeReplaceRange:
		return "MODIFY"
	case ChangeInsertAfter, ChangeInsertBefore, ChangeInsertManyAfter, ChangeInsertManyBefore:
		return "INSERT"
	case ChangeDelete, ChangeDeleteFile, ChangeDeleteMany:
		return "DELETE"
	case ChangeCreateFile:
		return "CREATE"
	}
	return strings.ToUpper(string(t))
}

// Snapshot is what the authority returns for a session load. AppliedChanges is
// the authority's own list of applied ids; HasAppliedList is false when the
// reply carried no such list at all.
type Snapshot struct {
	Session        Session
	AppliedChanges []string
	HasAppliedList bool
}

// Completion is the authority's answer to a successful completion request.
// AppliedChanges is surfaced for display only.
type Completion struct {
	SessionID      string
	Status         Status
	AppliedChanges []string
}

package review

import (
	"fmt"
	"sync"
)

// changeRef locates a change inside Session.Files.
type changeRef struct {
	file   int
	change int
}

// Registry is the in-memory state of one session. The per-change Applied flag
// and the aggregate applied set are only ever updated together under mu.
type Registry struct {
	mu      sync.RWMutex
	session Session
	index   map[string]changeRef
	applied map[string]struct{}
}

// NewRegistry builds a registry from an authority snapshot in one step.
// When the snapshot carries an explicit applied-id list it wins over the
// per-change flags; ids in that list that match no change are returned as
// unknown so the caller can report them.
func NewRegistry(snap *Snapshot) (reg *Registry, unknown []string, err error) {
	s := cloneSession(snap.Session)
	r := &Registry{
		session: s,
		index:   make(map[string]changeRef),
		applied: make(map[string]struct{}),
	}

	for fi := range r.session.Files {
		for ci, c := range r.session.Files[fi].Changes {
			if c.ID == "" {
				return nil, nil, &ValidationError{
					Field:   "files[" + r.session.Files[fi].Path + "].changes.id",
					Message: fmt.Sprintf("change %d has no id", ci),
				}
			}
			if prev, dup := r.index[c.ID]; dup {
				return nil, nil, &ValidationError{
					Field: "changes.id",
					Message: fmt.Sprintf("id %q appears in both %s and %s", c.ID,
						r.session.Files[prev.file].Path, r.session.Files[fi].Path),
				}
			}
			r.index[c.ID] = changeRef{file: fi, change: ci}
		}
	}

	if snap.HasAppliedList {
		listed := make(map[string]struct{}, len(snap.AppliedChanges))
		for _, id := range snap.AppliedChanges {
			if _, ok := r.index[id]; !ok {
				unknown = append(unknown, id)
				continue
			}
			listed[id] = struct{}{}
		}
		for id, ref := range r.index {
			_, ok := listed[id]
			r.session.Files[ref.file].Changes[ref.change].Applied = ok
		}
	}

	for id, ref := range r.index {
		if r.session.Files[ref.file].Changes[ref.change].Applied {
			r.applied[id] = struct{}{}
		}
	}
	return r, unknown, nil
}

// SessionID returns the immutable session identifier.
func (r *Registry) SessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session.ID
}

// RepositoryName returns the display name of the repository.
func (r *Registry) RepositoryName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session.RepositoryName
}

// Status returns the current session status.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session.Status
}

// Finalized reports whether the registry is frozen.
func (r *Registry) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session.Status.Finalized()
}

// FileCount returns the number of files in navigation order.
func (r *Registry) FileCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.session.Files)
}

// File returns a copy of the file at position i.
func (r *Registry) File(i int) (File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.session.Files) {
		return File{}, false
	}
	return cloneFile(r.session.Files[i]), true
}

// Session returns a deep copy of the current session state.
func (r *Registry) Session() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSession(r.session)
}

// Change returns a copy of the change with the given id.
func (r *Registry) Change(id string) (Change, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.index[id]
	if !ok {
		return Change{}, false
	}
	return r.session.Files[ref.file].Changes[ref.change], true
}

// IsApplied reports membership in the applied set.
func (r *Registry) IsApplied(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.applied[id]
	return ok
}

// AppliedIDs returns the applied set in file-then-change order.
func (r *Registry) AppliedIDs() []string {
	return r.collect(true)
}

// PendingIDs returns every unapplied change id in file-then-change order.
func (r *Registry) PendingIDs() []string {
	return r.collect(false)
}

func (r *Registry) collect(applied bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, f := range r.session.Files {
		for _, c := range f.Changes {
			if c.Applied == applied {
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}

// setApplied records an authority-confirmed outcome. Flag and set change
// together; a finalized registry rejects the update.
func (r *Registry) setApplied(id string, applied bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Status.Finalized() {
		return ErrFinalized
	}
	ref, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChange, id)
	}
	r.session.Files[ref.file].Changes[ref.change].Applied = applied
	if applied {
		r.applied[id] = struct{}{}
	} else {
		delete(r.applied, id)
	}
	return nil
}

// finalize freezes the registry with the given terminal status.
func (r *Registry) finalize(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Status = status
}

// consistent reports whether the applied set equals {c.ID : c.Applied}.
func (r *Registry) consistent() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, f := range r.session.Files {
		for _, c := range f.Changes {
			_, inSet := r.applied[c.ID]
			if inSet != c.Applied {
				return false
			}
			if c.Applied {
				n++
			}
		}
	}
	return n == len(r.applied)
}

func cloneSession(s Session) Session {
	out := s
	out.Files = make([]File, len(s.Files))
	for i, f := range s.Files {
		out.Files[i] = cloneFile(f)
	}
	return out
}

func cloneFile(f File) File {
	out := f
	out.Changes = append([]Change(nil), f.Changes...)
	return out
}

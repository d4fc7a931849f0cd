package authority

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fakeyudi/diffreview/internal/review"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned by Add when the id is already registered.
	ErrSessionExists = errors.New("session already registered")

	// ErrChangeNotFound is returned when a change id is not part of the session.
	ErrChangeNotFound = errors.New("change not found")

	// ErrSessionClosed is returned for mutations of a completed or cancelled session.
	ErrSessionClosed = errors.New("session is no longer active")
)

// Store is an in-memory authority. It records which changes are applied and
// the session status; it does not patch files.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*storedSession
}

type storedSession struct {
	session review.Session
	index   map[string][2]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*storedSession)}
}

var _ review.Authority = (*Store)(nil)

// Add registers a session and returns its id. A missing session id or change
// id is filled with a fresh UUID; a missing status becomes active.
func (s *Store) Add(sess review.Session) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Status == "" {
		sess.Status = review.StatusActive
	}
	if sess.Files == nil {
		sess.Files = []review.File{}
	}

	stored := &storedSession{index: make(map[string][2]int)}
	files := make([]review.File, len(sess.Files))
	for fi, f := range sess.Files {
		f.Changes = append([]review.Change(nil), f.Changes...)
		for ci := range f.Changes {
			if f.Changes[ci].ID == "" {
				f.Changes[ci].ID = uuid.New().String()
			}
			id := f.Changes[ci].ID
			if _, dup := stored.index[id]; dup {
				return "", fmt.Errorf("session %s: duplicate change id %q", sess.ID, id)
			}
			stored.index[id] = [2]int{fi, ci}
		}
		files[fi] = f
	}
	sess.Files = files
	stored.session = sess

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrSessionExists, sess.ID)
	}
	s.sessions[sess.ID] = stored
	return sess.ID, nil
}

// Has reports whether a session id is registered.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// IDs returns the registered session ids in no particular order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// LoadSession returns a snapshot of the session, including its applied list.
func (s *Store) LoadSession(_ context.Context, sessionID string) (*review.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := st.session
	sess.Files = make([]review.File, len(st.session.Files))
	for i, f := range st.session.Files {
		f.Changes = append([]review.Change(nil), f.Changes...)
		sess.Files[i] = f
	}
	return &review.Snapshot{
		Session:        sess,
		AppliedChanges: appliedIDs(st.session),
		HasAppliedList: true,
	}, nil
}

// ApplyChange marks a change applied.
func (s *Store) ApplyChange(_ context.Context, sessionID, changeID string) error {
	return s.setApplied(sessionID, changeID, true)
}

// UnapplyChange marks a change unapplied.
func (s *Store) UnapplyChange(_ context.Context, sessionID, changeID string) error {
	return s.setApplied(sessionID, changeID, false)
}

func (s *Store) setApplied(sessionID, changeID string, applied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if st.session.Status.Finalized() {
		return ErrSessionClosed
	}
	ref, ok := st.index[changeID]
	if !ok {
		return ErrChangeNotFound
	}
	st.session.Files[ref[0]].Changes[ref[1]].Applied = applied
	return nil
}

// CompleteSession marks the session completed and returns its applied ids.
func (s *Store) CompleteSession(_ context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if st.session.Status.Finalized() {
		return nil, ErrSessionClosed
	}
	st.session.Status = review.StatusCompleted
	return appliedIDs(st.session), nil
}

// CancelSession marks the session cancelled.
func (s *Store) CancelSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if st.session.Status.Finalized() {
		return ErrSessionClosed
	}
	st.session.Status = review.StatusCancelled
	return nil
}

func appliedIDs(sess review.Session) []string {
	ids := []string{}
	for _, f := range sess.Files {
		for _, c := range f.Changes {
			if c.Applied {
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}

package review

import (
	"context"
	"fmt"
	"sync"
)

// call records one request seen by fakeAuthority.
type call struct {
	Op       string
	ChangeID string
}

// fakeAuthority is an in-process Authority whose replies are scripted per
// change id.
type fakeAuthority struct {
	mu       sync.Mutex
	snapshot *Snapshot
	loadErr  error
	fail     map[string]error // change id (or "complete"/"cancel") -> error to return
	applied  []string         // reply to CompleteSession
	calls    []call
	block    chan struct{} // when non-nil, ApplyChange waits on it
	finBlock chan struct{} // when non-nil, CompleteSession waits on it
}

func newFakeAuthority(s Session) *fakeAuthority {
	return &fakeAuthority{
		snapshot: &Snapshot{Session: s},
		fail:     make(map[string]error),
	}
}

func (f *fakeAuthority) record(op, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: op, ChangeID: id})
}

func (f *fakeAuthority) failure(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[key]
}

func (f *fakeAuthority) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAuthority) LoadSession(ctx context.Context, id string) (*Snapshot, error) {
	f.record("load", id)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	cp := *f.snapshot
	cp.Session = cloneSession(f.snapshot.Session)
	return &cp, nil
}

func (f *fakeAuthority) ApplyChange(ctx context.Context, sessionID, changeID string) error {
	f.record("apply", changeID)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.failure(changeID)
}

func (f *fakeAuthority) UnapplyChange(ctx context.Context, sessionID, changeID string) error {
	f.record("unapply", changeID)
	return f.failure(changeID)
}

func (f *fakeAuthority) CompleteSession(ctx context.Context, sessionID string) ([]string, error) {
	f.record("complete", "")
	if f.finBlock != nil {
		select {
		case <-f.finBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.failure("complete"); err != nil {
		return nil, err
	}
	return f.applied, nil
}

func (f *fakeAuthority) CancelSession(ctx context.Context, sessionID string) error {
	f.record("cancel", "")
	return f.failure("cancel")
}

// buildSession makes a session with len(perFile) files; file i holds
// perFile[i] unapplied changes with ids "c<n>" numbered across the session.
func buildSession(perFile ...int) Session {
	s := Session{ID: "s1", RepositoryName: "repo", Status: StatusActive}
	n := 0
	for i, count := range perFile {
		f := File{Path: fmt.Sprintf("file%d.go", i), FileType: "go"}
		for j := 0; j < count; j++ {
			n++
			newContent := fmt.Sprintf("line %d", n)
			f.Changes = append(f.Changes, Change{
				ID:         fmt.Sprintf("c%d", n),
				Type:       ChangeReplace,
				LineNumber: j + 1,
				NewContent: &newContent,
				Reason:     "test",
			})
		}
		s.Files = append(s.Files, f)
	}
	return s
}

func mustLoad(t interface {
	Helper()
	Fatalf(string, ...any)
}, auth Authority) *Controller {
	t.Helper()
	c, err := Load(context.Background(), auth, "s1", Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

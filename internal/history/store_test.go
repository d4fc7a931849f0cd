package history_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/diffreview/internal/history"
	"github.com/fakeyudi/diffreview/internal/review"
)

// generateTime truncates to whole seconds so values survive a JSON round trip.
func generateTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(0, 1_700_000_000).Draw(t, label)
	return time.Unix(sec, 0).UTC()
}

func generateEntry(t *rapid.T) history.Entry {
	e := history.Entry{
		SessionID:      rapid.StringN(1, 36, -1).Draw(t, "session_id"),
		ServerURL:      rapid.SampledFrom([]string{"http://a:1", "http://b:2"}).Draw(t, "server"),
		RepositoryName: rapid.StringN(0, 40, -1).Draw(t, "repo"),
		Status:         rapid.SampledFrom([]review.Status{review.StatusActive, review.StatusCompleted, review.StatusCancelled}).Draw(t, "status"),
		OpenedAt:       generateTime(t, "opened"),
		TotalChanges:   rapid.IntRange(0, 100).Draw(t, "total"),
	}
	if rapid.Bool().Draw(t, "closed") {
		c := generateTime(t, "closed_at")
		e.ClosedAt = &c
	}
	e.AppliedChanges = rapid.SliceOfN(rapid.StringN(1, 10, -1), 0, 5).Draw(t, "applied")
	if len(e.AppliedChanges) == 0 {
		e.AppliedChanges = nil
	}
	return e
}

// Feature: diffreview, Property: history persistence round-trip
func TestHistoryPersistenceRoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	store, err := history.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	rapid.Check(t, func(t *rapid.T) {
		var h history.History
		n := rapid.IntRange(0, 5).Draw(t, "n")
		for i := 0; i < n; i++ {
			h.Record(generateEntry(t))
		}
		if err := store.Save(&h); err != nil {
			t.Fatalf("Save: %v", err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(loaded.Entries) != len(h.Entries) {
			t.Fatalf("entries: got %d, want %d", len(loaded.Entries), len(h.Entries))
		}
		for i, want := range h.Entries {
			got := loaded.Entries[i]
			if got.SessionID != want.SessionID || got.ServerURL != want.ServerURL || got.Status != want.Status {
				t.Errorf("entry %d: got %+v, want %+v", i, got, want)
			}
			if !got.OpenedAt.Equal(want.OpenedAt) {
				t.Errorf("entry %d OpenedAt: got %v, want %v", i, got.OpenedAt, want.OpenedAt)
			}
			if (got.ClosedAt == nil) != (want.ClosedAt == nil) {
				t.Errorf("entry %d ClosedAt nil mismatch", i)
			} else if got.ClosedAt != nil && !got.ClosedAt.Equal(*want.ClosedAt) {
				t.Errorf("entry %d ClosedAt: got %v, want %v", i, *got.ClosedAt, *want.ClosedAt)
			}
			if fmt.Sprint(got.AppliedChanges) != fmt.Sprint(want.AppliedChanges) {
				t.Errorf("entry %d AppliedChanges: got %v, want %v", i, got.AppliedChanges, want.AppliedChanges)
			}
		}
	})
}

// Feature: diffreview, Property: Record keeps ids unique, newest first, bounded
func TestRecordUpserts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var h history.History
		ids := rapid.SliceOfN(rapid.IntRange(0, 70), 1, 120).Draw(t, "ids")
		for _, id := range ids {
			h.Record(history.Entry{SessionID: fmt.Sprint(id), ServerURL: "http://a:1"})
		}
		last, ok := h.Last()
		if !ok || last.SessionID != fmt.Sprint(ids[len(ids)-1]) {
			t.Fatalf("Last = %+v, want session %d", last, ids[len(ids)-1])
		}
		if len(h.Entries) > history.MaxEntries {
			t.Fatalf("history grew to %d entries", len(h.Entries))
		}
		seen := make(map[string]bool)
		for _, e := range h.Entries {
			if seen[e.SessionID] {
				t.Fatalf("duplicate entry %s", e.SessionID)
			}
			seen[e.SessionID] = true
		}
	})
}

func TestLoadReturnsErrNoHistory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	store, err := history.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, history.ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got: %v", err)
	}
}

func TestUpdateCreatesHistory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	store, err := history.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for _, id := range []string{"s1", "s2", "s1"} {
		id := id
		if err := history.Update(store, func(h *history.History) {
			h.Record(history.Entry{SessionID: id, ServerURL: "http://a:1"})
		}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	h, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(h.Entries) != 2 || h.Entries[0].SessionID != "s1" || h.Entries[1].SessionID != "s2" {
		t.Errorf("entries = %+v", h.Entries)
	}
	if _, ok := h.Find("s2"); !ok {
		t.Error("Find(s2) failed")
	}
	if _, ok := h.Find("zz"); ok {
		t.Error("Find(zz) should fail")
	}
}

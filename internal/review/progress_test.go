package review

import (
	"testing"

	"pgregory.net/rapid"
)

// Feature: diffreview, Property 3: Progress bounds
func TestProgressBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		perFile := rapid.SliceOfN(rapid.IntRange(0, 5), 0, 5).Draw(rt, "per_file")
		s := buildSession(perFile...)
		applied := 0
		for fi := range s.Files {
			for ci := range s.Files[fi].Changes {
				if rapid.Bool().Draw(rt, "applied") {
					s.Files[fi].Changes[ci].Applied = true
					applied++
				}
			}
		}
		reg, _, err := NewRegistry(&Snapshot{Session: s})
		if err != nil {
			rt.Fatalf("NewRegistry: %v", err)
		}

		p := reg.Progress()
		if p.Percentage < 0 || p.Percentage > 100 {
			rt.Fatalf("percentage out of range: %v", p.Percentage)
		}
		if p.Total == 0 && p.Percentage != 0 {
			rt.Fatalf("empty session should report 0%%, got %v", p.Percentage)
		}
		if p.Applied != applied {
			rt.Fatalf("Applied = %d, want %d", p.Applied, applied)
		}
	})
}

func TestProgressString(t *testing.T) {
	p := computeProgress(4, 1)
	if got, want := p.String(), "1 of 4 changes applied (25%)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if p.Ratio() != 0.25 {
		t.Errorf("Ratio() = %v, want 0.25", p.Ratio())
	}
}

func TestFileProgress(t *testing.T) {
	f := buildSession(2).Files[0]
	f.Changes[0].Applied = true
	if p := f.Progress(); p.Applied != 1 || p.Total != 2 || p.Percentage != 50 {
		t.Errorf("file progress = %+v", p)
	}
}

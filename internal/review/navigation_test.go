package review

import (
	"testing"

	"pgregory.net/rapid"
)

// Scenario 5: a three-file session.
func TestNavigateClampsAtEnds(t *testing.T) {
	n := NewNavigator(3)

	if n.Navigate(Prev) {
		t.Error("navigate(-1) at index 0 should be a no-op")
	}
	if i, _ := n.Current(); i != 0 {
		t.Fatalf("index = %d, want 0", i)
	}
	n.Navigate(Next)
	if i, _ := n.Current(); i != 1 {
		t.Fatalf("index = %d, want 1", i)
	}
	n.Navigate(Next)
	n.Navigate(Next)
	if i, _ := n.Current(); i != 2 {
		t.Fatalf("index = %d, want 2", i)
	}
	if !n.AtLast() || n.AtFirst() {
		t.Error("expected focus on the last file")
	}
}

func TestNavigatorEmpty(t *testing.T) {
	n := NewNavigator(0)
	if _, ok := n.Current(); ok {
		t.Error("empty navigator should have no focus")
	}
	if n.Navigate(Next) || n.Select(0) {
		t.Error("empty navigator should ignore movement")
	}
}

// Feature: diffreview, Property 4: Navigation bounds
func TestNavigationBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		n := NewNavigator(count)
		moves := rapid.SliceOfN(rapid.SampledFrom([]Direction{Prev, Next}), 0, 30).Draw(rt, "moves")
		for _, d := range moves {
			before, _ := n.Current()
			n.Navigate(d)
			after, _ := n.Current()

			want := before + int(d)
			if want < 0 || want >= count {
				want = before
			}
			if after != want {
				rt.Fatalf("navigate(%d) from %d went to %d, want %d", d, before, after, want)
			}
			if after < 0 || after >= count {
				rt.Fatalf("index %d escaped [0,%d)", after, count)
			}
		}
	})
}

func TestSelectIgnoresOutOfRange(t *testing.T) {
	n := NewNavigator(3)
	if !n.Select(2) {
		t.Fatal("Select(2) should succeed")
	}
	if n.Select(5) || n.Select(-1) {
		t.Error("out-of-range Select should be ignored")
	}
	if i, _ := n.Current(); i != 2 {
		t.Errorf("index = %d, want 2", i)
	}
}

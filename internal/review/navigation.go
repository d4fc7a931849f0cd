package review

// Direction is a navigation step through the file list.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// Navigator tracks which file is focused. It never touches change state.
type Navigator struct {
	count int
	index int
}

// NewNavigator returns a navigator over count files, focused on the first.
func NewNavigator(count int) *Navigator {
	return &Navigator{count: count}
}

// Current returns the focused index; ok is false when there are no files.
func (n *Navigator) Current() (index int, ok bool) {
	if n.count == 0 {
		return 0, false
	}
	return n.index, true
}

// Len returns the number of files navigated over.
func (n *Navigator) Len() int { return n.count }

// Navigate moves focus by dir. A step that would leave [0, count) is a no-op.
// Reports whether focus moved.
func (n *Navigator) Navigate(dir Direction) bool {
	next := n.index + int(dir)
	if n.count == 0 || next < 0 || next >= n.count || next == n.index {
		return false
	}
	n.index = next
	return true
}

// Select focuses the file at i. Positions outside the list are ignored so the
// focus invariant holds even when a key maps to a tab that does not exist.
func (n *Navigator) Select(i int) bool {
	if i < 0 || i >= n.count {
		return false
	}
	n.index = i
	return true
}

// AtFirst reports whether focus is on the first file.
func (n *Navigator) AtFirst() bool { return n.index == 0 }

// AtLast reports whether focus is on the last file.
func (n *Navigator) AtLast() bool { return n.count == 0 || n.index == n.count-1 }

package review

import "fmt"

// Progress is the completion ratio of a session.
type Progress struct {
	Total      int
	Applied    int
	Percentage float64 // 0..100
}

// Ratio returns Percentage scaled to 0..1.
func (p Progress) Ratio() float64 {
	return p.Percentage / 100
}

func (p Progress) String() string {
	return fmt.Sprintf("%d of %d changes applied (%.0f%%)", p.Applied, p.Total, p.Percentage)
}

// Progress computes the completion ratio from the registry's current state.
func (r *Registry) Progress() Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, f := range r.session.Files {
		total += len(f.Changes)
	}
	return computeProgress(total, len(r.applied))
}

// FileProgress computes the ratio for a single file.
func (f File) Progress() Progress {
	applied := 0
	for _, c := range f.Changes {
		if c.Applied {
			applied++
		}
	}
	return computeProgress(len(f.Changes), applied)
}

func computeProgress(total, applied int) Progress {
	p := Progress{Total: total, Applied: applied}
	if total > 0 {
		p.Percentage = 100 * float64(applied) / float64(total)
	}
	return p
}

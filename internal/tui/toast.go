package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ToastLevel determines the notification style and auto-dismiss duration.
type ToastLevel int

const (
	ToastSuccess ToastLevel = iota
	ToastInfo
	ToastError
)

// Toast is a single transient notification.
type Toast struct {
	CreatedAt time.Time
	Message   string
	Duration  time.Duration
	Level     ToastLevel
}

// IsExpired reports whether the toast has outlived its duration.
func (t Toast) IsExpired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(t.Duration))
}

const maxToasts = 3

// ToastManager keeps the notification stack, newest last.
type ToastManager struct {
	toasts []Toast
	width  int
}

func NewToastManager() *ToastManager {
	return &ToastManager{}
}

func (tm *ToastManager) SetWidth(w int) {
	tm.width = w
}

// Add pushes a notification, evicting the oldest beyond maxToasts. Errors
// stay up longest since they explain why nothing changed.
func (tm *ToastManager) Add(message string, level ToastLevel) {
	duration := 3 * time.Second
	switch level {
	case ToastInfo:
		duration = 4 * time.Second
	case ToastError:
		duration = 6 * time.Second
	}
	tm.toasts = append(tm.toasts, Toast{
		Message:   message,
		Level:     level,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
	if len(tm.toasts) > maxToasts {
		tm.toasts = tm.toasts[len(tm.toasts)-maxToasts:]
	}
}

// Tick drops expired toasts and reports whether any were removed.
func (tm *ToastManager) Tick(now time.Time) bool {
	var remaining []Toast
	for _, t := range tm.toasts {
		if !t.IsExpired(now) {
			remaining = append(remaining, t)
		}
	}
	changed := len(remaining) != len(tm.toasts)
	tm.toasts = remaining
	return changed
}

// Clear dismisses every toast.
func (tm *ToastManager) Clear() {
	tm.toasts = nil
}

func (tm *ToastManager) HasToasts() bool { return len(tm.toasts) > 0 }

func (tm *ToastManager) Count() int { return len(tm.toasts) }

// Height is the number of lines View occupies; one per toast.
func (tm *ToastManager) Height() int { return len(tm.toasts) }

// Latest returns the newest toast.
func (tm *ToastManager) Latest() (Toast, bool) {
	if len(tm.toasts) == 0 {
		return Toast{}, false
	}
	return tm.toasts[len(tm.toasts)-1], true
}

func (tm *ToastManager) View() string {
	if len(tm.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(tm.toasts))
	for _, t := range tm.toasts {
		style, icon := toastInfoStyle, " i "
		switch t.Level {
		case ToastSuccess:
			style, icon = toastSuccessStyle, " ✓ "
		case ToastError:
			style, icon = toastErrorStyle, " ! "
		}
		content := icon + t.Message
		if tm.width > 7 && runewidth.StringWidth(content) > tm.width-4 {
			content = truncateVisual(content, tm.width-4)
		}
		lines = append(lines, style.Width(tm.width).Render(content))
	}
	return strings.Join(lines, "\n")
}

// truncateVisual cuts s to maxCols terminal columns, ending in "...".
func truncateVisual(s string, maxCols int) string {
	if maxCols <= 3 {
		return "..."
	}
	target := maxCols - 3
	var b strings.Builder
	cols := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if cols+w > target {
			break
		}
		b.WriteRune(r)
		cols += w
	}
	b.WriteString("...")
	return b.String()
}

var (
	toastSuccessStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("22")).
				Foreground(lipgloss.Color("10")).
				Padding(0, 1)

	toastInfoStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("17")).
			Foreground(lipgloss.Color("14")).
			Padding(0, 1)

	toastErrorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("52")).
			Foreground(lipgloss.Color("9")).
			Padding(0, 1)
)

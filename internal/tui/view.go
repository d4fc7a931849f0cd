package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/diffreview/internal/review"
)

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}
	if m.quitting {
		return ""
	}
	if m.loading {
		return fmt.Sprintf("\n  %s Loading session %s…\n", m.spinner.View(), m.opts.SessionID)
	}
	if m.loadErr != nil {
		return m.errorView()
	}

	parts := []string{m.titleBar(), m.tabBar(), m.vp.View(), m.statusBar()}
	if d := m.dialogView(); d != "" {
		parts = append(parts, d)
	}
	if m.toasts.HasToasts() {
		parts = append(parts, m.toasts.View())
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// layout sizes the viewport to what the surrounding chrome leaves and
// re-renders the focused file.
func (m *Model) layout() {
	if !m.ready || m.ctrl == nil {
		return
	}
	// title + tabs + status bar
	chrome := 3 + lipgloss.Height(m.help.View(m.keys)) + m.toasts.Height()
	if d := m.dialogView(); d != "" {
		chrome += lipgloss.Height(d)
	}
	m.vp.Width = m.width
	m.vp.Height = max(1, m.height-chrome)
	m.vp.SetContent(m.renderFile())
	m.keepCursorVisible()
}

func (m *Model) keepCursorVisible() {
	if m.preview || m.cursor >= len(m.changeLines) {
		return
	}
	top := m.changeLines[m.cursor]
	bottom := top
	if m.cursor+1 < len(m.changeLines) {
		bottom = m.changeLines[m.cursor+1] - 1
	}
	switch {
	case top < m.vp.YOffset:
		m.vp.SetYOffset(top)
	case bottom >= m.vp.YOffset+m.vp.Height:
		m.vp.SetYOffset(min(top, bottom-m.vp.Height+1))
	}
}

func (m Model) titleBar() string {
	reg := m.ctrl.Registry()
	name := reg.RepositoryName()
	if name == "" {
		name = "review"
	}
	text := fmt.Sprintf("  diffreview  %s  %s", name, dimStyle.Render(reg.SessionID()))
	if reg.Finalized() {
		text += "  [" + strings.ToUpper(string(reg.Status())) + "]"
	}
	return titleStyle.Width(m.width).Render(text)
}

func (m Model) tabBar() string {
	reg := m.ctrl.Registry()
	current, _ := m.ctrl.Navigator().Current()
	var parts []string
	for i := 0; i < reg.FileCount(); i++ {
		f, _ := reg.File(i)
		p := f.Progress()
		label := fmt.Sprintf(" %d %s %d/%d ", i+1, filepath.Base(f.Path), p.Applied, p.Total)
		style := inactiveTabStyle
		switch {
		case i == current:
			style = activeTabStyle
		case p.Total > 0 && p.Applied == p.Total:
			style = doneTabStyle
		}
		parts = append(parts, style.Render(label))
		if i < reg.FileCount()-1 {
			parts = append(parts, tabSepStyle.Render("│"))
		}
	}
	return tabRowStyle.Width(m.width).MaxWidth(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (m Model) statusBar() string {
	p := m.ctrl.Progress()
	left := m.bar.ViewAs(p.Ratio()) + "  " + p.String()
	switch {
	case m.bulk != nil:
		left += fmt.Sprintf("  %s applying %d/%d", m.spinner.View(), min(m.bulkIndex+1, m.bulk.Len()), m.bulk.Len())
	case m.finalizing:
		left += "  " + m.spinner.View() + " completing…"
	case len(m.pending) > 0:
		left += "  " + m.spinner.View() + " waiting for server…"
	}
	return statusBarStyle.Width(m.width).Render(left)
}

func (m Model) dialogView() string {
	prompt, ok := m.gate.Pending()
	if !ok {
		return ""
	}
	hints := m.help.ShortHelpView(dialogKeys{confirm: m.keys.Confirm, dismiss: m.keys.Dismiss}.ShortHelp())
	body := dialogTitleStyle.Render(prompt.Title) + "\n\n" + prompt.Message + "\n\n" + hints
	return dialogStyle.Render(body)
}

func (m Model) errorView() string {
	body := errorTitleStyle.Render("Could not load the review session") + "\n\n" +
		m.loadErr.Error() + "\n\n" +
		dimStyle.Render("press q to quit")
	return "\n" + errorBoxStyle.Render(body) + "\n"
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

// renderFile renders the focused file and records where each change starts.
func (m *Model) renderFile() string {
	m.changeLines = m.changeLines[:0]
	f, ok := m.currentFile()
	if !ok {
		return heading("No files") + dimStyle.Render("  This session has no files to review.") + "\n"
	}

	var sb strings.Builder
	p := f.Progress()
	sb.WriteString(heading(f.Path))
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", label)) + "  " + value + "\n")
	}
	if f.FileType != "" {
		row("Type:", f.FileType)
	}
	row("Progress:", fmt.Sprintf("%d of %d applied", p.Applied, p.Total))
	sb.WriteString("\n")

	if m.preview {
		sb.WriteString(sectionHeader.Render("  Preview") + dimStyle.Render("  (as proposed; not updated by apply/unapply)") + "\n\n")
		if f.PreviewContent == "" {
			sb.WriteString(dimStyle.Render("  (no preview supplied)") + "\n")
		} else {
			sb.WriteString(indent(f.PreviewContent, "  ") + "\n")
		}
		return sb.String()
	}

	if len(f.Changes) == 0 {
		sb.WriteString(dimStyle.Render("  (no changes)") + "\n")
		return sb.String()
	}
	reg := m.ctrl.Registry()
	for i, c := range f.Changes {
		m.changeLines = append(m.changeLines, strings.Count(sb.String(), "\n"))
		sb.WriteString(m.renderChange(c, i == m.cursor, reg.IsApplied(c.ID)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderChange(c review.Change, selected, applied bool) string {
	state := dimStyle.Render("○ not applied")
	switch {
	case m.pending[c.ID]:
		state = m.spinner.View() + pendingStyle.Render(" sending…")
	case applied:
		state = appliedStyle.Render("✓ applied")
	}
	marker := "  "
	if selected {
		marker = "▸ "
	}
	head := fmt.Sprintf("%s%s  line %d  %s  %s", marker, badge(c.Type.Label()), c.LineNumber, state, dimStyle.Render(c.ID))
	if selected {
		head = selectedRowStyle.Width(max(1, m.width-2)).Render(head)
	}

	var sb strings.Builder
	sb.WriteString(head + "\n")
	if c.Reason != "" {
		sb.WriteString(reasonStyle.Render(indent(c.Reason, "    ")) + "\n")
	}
	switch c.Body() {
	case review.BodyModification:
		sb.WriteString(diffLines(*c.OldContent, "-", diffDelStyle))
		sb.WriteString(diffLines(*c.NewContent, "+", diffAddStyle))
	case review.BodyInsertion:
		sb.WriteString(diffLines(*c.NewContent, "+", diffAddStyle))
	case review.BodyDeletion:
		sb.WriteString(diffLines(*c.OldContent, "-", diffDelStyle))
	default:
		sb.WriteString(dimStyle.Render("    (no content)") + "\n")
	}
	return sb.String()
}

func diffLines(text, sign string, style lipgloss.Style) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		sb.WriteString(style.Render("    "+sign+" "+line) + "\n")
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	Ext() string
}

// RendererFor returns the renderer for a configured format.
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md", "":
		return &MarkdownRenderer{}, nil
	}
	return nil, fmt.Errorf("unsupported report format %q", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (j *JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (j *JSONRenderer) Ext() string { return ".json" }

const (
	versionSentinel = "<!-- diffreview-report-version: 1 -->"
	dataPrefix      = "<!-- diffreview-data: "
	dataSuffix      = " -->"
)

// MarkdownRenderer renders a Report as Markdown with an embedded base64 JSON
// payload so the file can be parsed back without loss.
type MarkdownRenderer struct{}

func (m *MarkdownRenderer) Ext() string { return ".md" }

func (m *MarkdownRenderer) Render(r *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, base64.StdEncoding.EncodeToString(jsonBytes), dataSuffix)

	title := r.SessionID
	if r.RepositoryName != "" {
		title = r.RepositoryName + " (" + r.SessionID + ")"
	}
	fmt.Fprintf(&sb, "# Review %s\n\n", title)

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Status: %s\n", r.Status)
	fmt.Fprintf(&sb, "- Progress: %d of %d changes applied (%.0f%%)\n", r.Applied, r.Total, r.Percentage)
	if r.ServerURL != "" {
		fmt.Fprintf(&sb, "- Server: %s\n", r.ServerURL)
	}
	fmt.Fprintf(&sb, "- Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	sb.WriteString("## Changes\n\n")
	if len(r.Files) == 0 {
		sb.WriteString("_No files in this session._\n\n")
	}
	for _, f := range r.Files {
		fmt.Fprintf(&sb, "### %s\n\n", f.Path)
		if len(f.Changes) == 0 {
			sb.WriteString("_No changes._\n\n")
			continue
		}
		sb.WriteString("| | Change | Type | Line | Reason |\n")
		sb.WriteString("|---|--------|------|------|--------|\n")
		for _, c := range f.Changes {
			mark := " "
			if c.Applied {
				mark = "x"
			}
			fmt.Fprintf(&sb, "| [%s] | %s | %s | %d | %s |\n", mark, c.ID, c.Label, c.LineNumber, escapeCell(c.Reason))
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/diffreview/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <report-file>",
	Short: "Print a completion report written by review or complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := report.ReadFile(args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), r)
		return nil
	},
}

// printReport writes a plain-text rendition of a completion report.
func printReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  Session:    %s\n", r.SessionID)
	if r.RepositoryName != "" {
		fmt.Fprintf(w, "  Repository: %s\n", r.RepositoryName)
	}
	if r.ServerURL != "" {
		fmt.Fprintf(w, "  Server:     %s\n", r.ServerURL)
	}
	fmt.Fprintf(w, "  Status:     %s\n", r.Status)
	fmt.Fprintf(w, "  Generated:  %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Progress:   %d of %d changes applied (%.0f%%)\n", r.Applied, r.Total, r.Percentage)
	fmt.Fprintf(w, "  Server applied: %s\n", joinOrNone(r.AppliedChanges))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Files")
	if len(r.Files) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, f := range r.Files {
		fmt.Fprintf(w, "  %s\n", f.Path)
		for _, c := range f.Changes {
			mark := " "
			if c.Applied {
				mark = "x"
			}
			fmt.Fprintf(w, "    [%s] %s %s line %d", mark, c.ID, c.Label, c.LineNumber)
			if c.Reason != "" {
				fmt.Fprintf(w, "  %s", c.Reason)
			}
			fmt.Fprintln(w)
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}

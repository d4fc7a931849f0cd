package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/diffreview/internal/report"
	"github.com/fakeyudi/diffreview/internal/review"
	"github.com/fakeyudi/diffreview/internal/tui"
)

var (
	plainOutput bool
	reportDir   string
)

var reviewCmd = &cobra.Command{
	Use:   "review [session-id]",
	Short: "Open a review session in the terminal UI",
	Long: `Open a review session in the terminal UI. Without a session id the most
recently reviewed session is reopened. When stdout is not a terminal, or with
--plain, a text summary is printed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveSessionID(args)
		if err != nil {
			return err
		}
		opened := time.Now()

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			ctrl, err := loadSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			recordHistory(ctrl, opened, nil)
			printSession(cmd.OutOrStdout(), ctrl)
			return nil
		}

		timeout, err := cfg.Timeout()
		if err != nil {
			return err
		}
		teardown, err := cfg.Teardown()
		if err != nil {
			return err
		}
		tuiLogger, closeLog := newFileLogger(cfg.LogFile)
		defer closeLog()
		client, err := newClient(tuiLogger)
		if err != nil {
			return err
		}

		out, err := tui.Run(cmd.Context(), tui.Options{
			Authority:      client,
			SessionID:      id,
			Logger:         tuiLogger,
			RequestTimeout: timeout,
			TeardownDelay:  teardown,
		})
		if err != nil {
			return err
		}
		if out.LoadErr != nil {
			return out.LoadErr
		}
		if out.Controller == nil {
			return nil
		}
		recordHistory(out.Controller, opened, out.Completion)
		cmd.Println(out.Controller.Progress())
		if out.Completion != nil {
			return writeReport(cmd, out.Controller, out.Completion)
		}
		return nil
	},
}

// writeReport writes the completion report when a report directory is set.
func writeReport(cmd *cobra.Command, ctrl *review.Controller, done *review.Completion) error {
	dir := reportDir
	if dir == "" {
		dir = cfg.ReportDir
	}
	if dir == "" {
		return nil
	}
	r := report.Build(ctrl.Registry(), done, cfg.ServerURL, time.Now())
	path, err := report.Write(dir, cfg.ReportFormat, r)
	if err != nil {
		return err
	}
	cmd.Printf("Report: %s\n", path)
	return nil
}

// printSession writes a plain-text summary of the session.
func printSession(w io.Writer, ctrl *review.Controller) {
	reg := ctrl.Registry()
	name := reg.RepositoryName()
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "Session:    %s\n", reg.SessionID())
	fmt.Fprintf(w, "Repository: %s\n", name)
	fmt.Fprintf(w, "Status:     %s\n", reg.Status())
	fmt.Fprintf(w, "Progress:   %s\n", ctrl.Progress())
	fmt.Fprintln(w)

	if reg.FileCount() == 0 {
		fmt.Fprintln(w, "  (no files)")
		return
	}
	for i := 0; i < reg.FileCount(); i++ {
		f, _ := reg.File(i)
		p := f.Progress()
		fmt.Fprintf(w, "## %s  (%d/%d applied)\n", f.Path, p.Applied, p.Total)
		if len(f.Changes) == 0 {
			fmt.Fprintln(w, "  (no changes)")
		}
		for _, c := range f.Changes {
			mark := " "
			if reg.IsApplied(c.ID) {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %-8s line %-5d %s", mark, c.Type.Label(), c.LineNumber, c.ID)
			if c.Reason != "" {
				fmt.Fprintf(w, "  %s", c.Reason)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	reviewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	reviewCmd.Flags().StringVar(&reportDir, "report-dir", "", "write a completion report to this directory (overrides config)")
	rootCmd.AddCommand(reviewCmd)
}

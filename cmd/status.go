package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/diffreview/internal/history"
)

var recentOnly bool

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show review progress for a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if recentOnly {
			return printRecent(cmd)
		}

		id, err := resolveSessionID(args)
		if errors.Is(err, errNoSessionID) {
			cmd.Println("no review history")
			return nil
		}
		if err != nil {
			return err
		}

		ctrl, err := loadSession(cmd.Context(), id)
		if err != nil {
			return err
		}
		reg := ctrl.Registry()
		cmd.Printf("Session: %s\n", reg.SessionID())
		if name := reg.RepositoryName(); name != "" {
			cmd.Printf("Repository: %s\n", name)
		}
		cmd.Printf("Status: %s\n", reg.Status())
		cmd.Printf("Progress: %s\n", ctrl.Progress())
		for i := 0; i < reg.FileCount(); i++ {
			f, _ := reg.File(i)
			p := f.Progress()
			cmd.Printf("  %s: %d/%d\n", f.Path, p.Applied, p.Total)
		}
		return nil
	},
}

// printRecent lists the review history, newest first.
func printRecent(cmd *cobra.Command) error {
	store, err := history.NewStore()
	if err != nil {
		return err
	}
	h, err := store.Load()
	if errors.Is(err, history.ErrNoHistory) || (err == nil && len(h.Entries) == 0) {
		cmd.Println("no review history")
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range h.Entries {
		line := fmt.Sprintf("%s  %-9s  %d/%d  opened %s", e.SessionID, e.Status, len(e.AppliedChanges), e.TotalChanges, e.OpenedAt.Format(time.RFC3339))
		if e.ClosedAt != nil {
			line += "  closed " + e.ClosedAt.Format(time.RFC3339)
		}
		cmd.Println(line)
	}
	return nil
}

func init() {
	statusCmd.Flags().BoolVar(&recentOnly, "recent", false, "list recently reviewed sessions instead")
	rootCmd.AddCommand(statusCmd)
}

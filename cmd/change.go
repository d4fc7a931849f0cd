package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/diffreview/internal/review"
)

var assumeYes bool

var errNotConfirmed = errors.New("confirmation required: rerun with --yes")

var applyCmd = &cobra.Command{
	Use:   "apply <session-id> <change-id>...",
	Short: "Apply one or more changes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChanges(cmd, args[0], args[1:], true)
	},
}

var unapplyCmd = &cobra.Command{
	Use:   "unapply <session-id> <change-id>...",
	Short: "Revert one or more applied changes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChanges(cmd, args[0], args[1:], false)
	},
}

// runChanges sends one request per change id, in order, and keeps going
// after a failure.
func runChanges(cmd *cobra.Command, sessionID string, ids []string, apply bool) error {
	opened := time.Now()
	ctrl, err := loadSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	defer recordHistory(ctrl, opened, nil)

	verb := "applied"
	if !apply {
		verb = "reverted"
	}
	failed := 0
	for _, id := range ids {
		if apply {
			err = ctrl.ApplyChange(cmd.Context(), id)
		} else {
			err = ctrl.UnapplyChange(cmd.Context(), id)
		}
		if err != nil {
			failed++
			cmd.Printf("%s: %v\n", id, err)
			continue
		}
		cmd.Printf("%s %s\n", verb, id)
	}
	cmd.Println(ctrl.Progress())
	if failed > 0 {
		return fmt.Errorf("%d of %d changes failed", failed, len(ids))
	}
	return nil
}

var applyAllCmd = &cobra.Command{
	Use:   "apply-all <session-id>",
	Short: "Apply every change that is not applied yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opened := time.Now()
		ctrl, err := loadSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer recordHistory(ctrl, opened, nil)

		n := len(ctrl.Registry().PendingIDs())
		if n == 0 {
			cmd.Println("Every change is already applied.")
			return nil
		}
		return confirm(cmd, "Apply all changes", fmt.Sprintf("Apply the %d remaining changes?", n), func() error {
			run := ctrl.StartBulk()
			for {
				step, ok := run.Next(cmd.Context())
				if !ok {
					break
				}
				if step.Err != nil {
					cmd.Printf("[%d/%d] %s: %v\n", step.Index+1, step.Total, step.ChangeID, step.Err)
					continue
				}
				cmd.Printf("[%d/%d] applied %s\n", step.Index+1, step.Total, step.ChangeID)
			}
			res := run.Result()
			cmd.Println(ctrl.Progress())
			switch {
			case res.Aborted:
				return fmt.Errorf("stopped after %d changes: the session was finalized", len(res.Attempted))
			case len(res.Failed) > 0:
				return fmt.Errorf("%d of %d changes failed", len(res.Failed), len(res.Attempted))
			}
			return nil
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <session-id>",
	Short: "Finish the review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFinalize(cmd, args[0], false)
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip <session-id>",
	Short: "Finish the review without applying the remaining changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFinalize(cmd, args[0], true)
	},
}

func runFinalize(cmd *cobra.Command, sessionID string, skip bool) error {
	opened := time.Now()
	ctrl, err := loadSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if ctrl.Registry().Finalized() {
		return fmt.Errorf("session %s is already %s", sessionID, ctrl.Registry().Status())
	}

	p := ctrl.Progress()
	title, msg := "Complete review", fmt.Sprintf("Finish the review with %s?", p)
	if skip {
		title, msg = "Skip remaining changes", fmt.Sprintf("Complete the review without applying the %d remaining changes?", p.Total-p.Applied)
	}
	return confirm(cmd, title, msg, func() error {
		var done *review.Completion
		if skip {
			done, err = ctrl.SkipAll(cmd.Context())
		} else {
			done, err = ctrl.Complete(cmd.Context())
		}
		if err != nil {
			return err
		}
		recordHistory(ctrl, opened, done)
		cmd.Printf("Review completed: %s.\n", ctrl.Progress())
		cmd.Printf("Server applied: %s\n", joinOrNone(done.AppliedChanges))
		return writeReport(cmd, ctrl, done)
	})
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Abandon the review session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opened := time.Now()
		ctrl, err := loadSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return confirm(cmd, "Cancel review", "Cancel this review session? No further changes can be made.", func() error {
			if err := ctrl.Cancel(cmd.Context()); err != nil {
				return err
			}
			recordHistory(ctrl, opened, nil)
			cmd.Println("Review cancelled.")
			return nil
		})
	},
}

// confirm holds action in a gate until the user agrees, or runs it straight
// away with --yes. Declining is not an error.
func confirm(cmd *cobra.Command, title, message string, action func() error) error {
	var gate review.Gate[error]
	gate.Request(title, message, action)

	if !assumeYes {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && !term.IsTerminal(f.Fd()) {
			gate.Cancel()
			return errNotConfirmed
		}
		cmd.Printf("%s: %s [y/N] ", title, message)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			gate.Cancel()
			cmd.Println("Aborted.")
			return nil
		}
	}
	err, _ := gate.Confirm()
	return err
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

func init() {
	for _, c := range []*cobra.Command{applyAllCmd, completeCmd, skipCmd, cancelCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	}
	for _, c := range []*cobra.Command{completeCmd, skipCmd} {
		c.Flags().StringVar(&reportDir, "report-dir", "", "write a completion report to this directory (overrides config)")
	}
	rootCmd.AddCommand(applyCmd, unapplyCmd, applyAllCmd, completeCmd, skipCmd, cancelCmd)
}

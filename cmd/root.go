package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/diffreview/internal/authority"
	"github.com/fakeyudi/diffreview/internal/config"
	"github.com/fakeyudi/diffreview/internal/history"
	"github.com/fakeyudi/diffreview/internal/review"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is replaced in PersistentPreRunE once flags are parsed.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	serverURL string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "diffreview",
	Short:         "Review proposed code changes held by a review server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		cfg.ApplyEnv()
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = newLogger(cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFileLogger logs to the configured log file only, since the review TUI
// owns the terminal. Without a log file everything is discarded.
func newFileLogger(path string) (*slog.Logger, func()) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return newLogger(f), func() { f.Close() }
}

// newClient returns an authority client for the configured server.
func newClient(l *slog.Logger) (*authority.Client, error) {
	return authority.NewClient(cfg.ServerURL, authority.WithLogger(l))
}

// loadSession connects to the server and loads a review session.
func loadSession(ctx context.Context, sessionID string) (*review.Controller, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	client, err := newClient(logger)
	if err != nil {
		return nil, err
	}
	return review.Load(ctx, client, sessionID, review.Options{Logger: logger, RequestTimeout: timeout})
}

var errNoSessionID = errors.New("no session id given and no review history")

// resolveSessionID takes the id from args or falls back to the most recently
// reviewed session.
func resolveSessionID(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	store, err := history.NewStore()
	if err != nil {
		return "", err
	}
	h, err := store.Load()
	if errors.Is(err, history.ErrNoHistory) {
		return "", errNoSessionID
	}
	if err != nil {
		return "", err
	}
	last, ok := h.Last()
	if !ok {
		return "", errNoSessionID
	}
	return last.SessionID, nil
}

// recordHistory stores the session's current state in the review history.
// Failures are logged; history is a convenience.
func recordHistory(ctrl *review.Controller, opened time.Time, done *review.Completion) {
	store, err := history.NewStore()
	if err != nil {
		logger.Warn("history unavailable", "error", err)
		return
	}
	reg := ctrl.Registry()
	p := reg.Progress()
	entry := history.Entry{
		SessionID:      reg.SessionID(),
		ServerURL:      cfg.ServerURL,
		RepositoryName: reg.RepositoryName(),
		Status:         reg.Status(),
		OpenedAt:       opened,
		AppliedChanges: reg.AppliedIDs(),
		TotalChanges:   p.Total,
	}
	if done != nil && done.AppliedChanges != nil {
		entry.AppliedChanges = done.AppliedChanges
	}
	if reg.Finalized() {
		now := time.Now()
		entry.ClosedAt = &now
	}
	err = history.Update(store, func(h *history.History) {
		if prev, ok := h.Find(entry.SessionID); ok && prev.ServerURL == entry.ServerURL {
			entry.OpenedAt = prev.OpenedAt
		}
		h.Record(entry)
	})
	if err != nil {
		logger.Warn("could not save review history", "error", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "review server URL (overrides config and "+config.EnvServer+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log authority requests")
}

package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/diffreview/internal/authority"
)

var (
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local review server backed by snapshot files",
	Long: `Run a local review server. Session snapshot files (.json, .yaml, .yml)
in the snapshot directory are loaded at startup, and files dropped there later
are registered as they appear. The server records which changes are applied;
it never edits files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := serveDir
		if dir == "" {
			dir = cfg.SnapshotDir
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ln, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return err
		}

		store := authority.NewStore()
		srv := &http.Server{
			Handler:           authority.NewServer(store, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		watchErr := make(chan error, 1)
		go func() { watchErr <- authority.Watch(ctx, store, dir, logger) }()

		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Serve(ln) }()

		cmd.Printf("Listening on http://%s (snapshots: %s)\n", ln.Addr(), dir)
		logger.Info("review server started", "addr", ln.Addr().String(), "dir", dir)

		select {
		case <-ctx.Done():
		case err = <-watchErr:
			if err != nil {
				logger.Error("snapshot watcher stopped", "error", err)
			}
		case err = <-serveErr:
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("shutdown", "error", serr)
		}
		stop()
		logger.Info("review server stopped")
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "snapshot directory (overrides config snapshot_dir)")
	rootCmd.AddCommand(serveCmd)
}

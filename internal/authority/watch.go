package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// RegisterFile loads a snapshot file into the store. A session id that is
// already registered is left untouched; sessions are never reloaded.
func RegisterFile(store *Store, path string) (id string, added bool, err error) {
	sess, err := LoadSnapshotFile(path)
	if err != nil {
		return "", false, err
	}
	if store.Has(sess.ID) {
		return sess.ID, false, nil
	}
	id, err = store.Add(sess)
	if errors.Is(err, ErrSessionExists) {
		return sess.ID, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// LoadDir registers every snapshot file directly inside dir.
func LoadDir(store *Store, dir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading snapshot directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || DecoderFor(e.Name()) == nil {
			continue
		}
		register(store, filepath.Join(dir, e.Name()), logger)
	}
	return nil
}

// Watch loads the snapshots already in dir, then registers new snapshot files
// as they appear until ctx is cancelled.
func Watch(ctx context.Context, store *Store, dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	// Load after Add so a file written in between is not missed.
	if err := LoadDir(store, dir, logger); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if DecoderFor(event.Name) == nil {
				continue
			}
			register(store, event.Name, logger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; keep serving what is registered.
			logger.Warn("snapshot watcher error", "error", err)
		}
	}
}

func register(store *Store, path string, logger *slog.Logger) {
	id, added, err := RegisterFile(store, path)
	switch {
	case err != nil:
		// Often a file caught mid-write; the next Write event retries it.
		logger.Debug("snapshot not loaded", "path", path, "error", err)
	case added:
		logger.Info("session registered", "session", id, "path", path)
	}
}

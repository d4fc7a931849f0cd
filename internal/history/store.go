package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoHistory is returned by Load when no history file exists on disk.
var ErrNoHistory = errors.New("no review history")

// Store persists History to disk.
type Store interface {
	Save(h *History) error
	Load() (*History, error) // returns ErrNoHistory if none exists
}

// diskStore writes to the XDG data directory.
type diskStore struct {
	path string // full path to history.json
}

// NewStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/diffreview/history.json or ~/.local/share/diffreview/history.json
func NewStore() (Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{path: filepath.Join(dir, "history.json")}, nil
}

func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "diffreview"), nil
}

// Save writes h atomically via a temp file and os.Rename.
func (d *diskStore) Save(h *History) (err error) {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist review history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "history-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist review history: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist review history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist review history: %w", err)
	}
	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist review history: %w", err)
	}
	return nil
}

// Load reads the history file.
func (d *diskStore) Load() (*History, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("failed to read review history: %w", err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse review history: %w", err)
	}
	return &h, nil
}

// Update loads the history (empty if absent), applies fn, and saves it.
func Update(s Store, fn func(*History)) error {
	h, err := s.Load()
	if errors.Is(err, ErrNoHistory) {
		h = &History{}
	} else if err != nil {
		return err
	}
	fn(h)
	return s.Save(h)
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnvServer overrides the configured server URL.
const EnvServer = "DIFFREVIEW_SERVER"

// Config holds all configurable diffreview settings. Durations are Go
// duration strings such as "30s".
type Config struct {
	ServerURL      string `json:"server_url"`
	RequestTimeout string `json:"request_timeout"`
	TeardownDelay  string `json:"teardown_delay"`
	ReportFormat   string `json:"report_format"` // "markdown" | "json"
	ReportDir      string `json:"report_dir"`    // empty disables reports
	LogFile        string `json:"log_file"`
	SnapshotDir    string `json:"snapshot_dir"` // watched by `diffreview serve`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		ServerURL:      "http://127.0.0.1:8080",
		RequestTimeout: "30s",
		TeardownDelay:  "3s",
		ReportFormat:   "markdown",
		SnapshotDir:    filepath.Join(".diffreview", "sessions"),
	}
}

// LoadGlobal reads ~/.config/diffreview/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "diffreview", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .diffreviewconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".diffreviewconfig", false)
}

func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer == nil {
			continue
		}
		overlay(&result.ServerURL, layer.ServerURL)
		overlay(&result.RequestTimeout, layer.RequestTimeout)
		overlay(&result.TeardownDelay, layer.TeardownDelay)
		overlay(&result.ReportFormat, layer.ReportFormat)
		overlay(&result.ReportDir, layer.ReportDir)
		overlay(&result.LogFile, layer.LogFile)
		overlay(&result.SnapshotDir, layer.SnapshotDir)
	}
	return result
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvServer); v != "" {
		c.ServerURL = v
	}
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() (time.Duration, error) {
	return parseDuration("request_timeout", c.RequestTimeout)
}

// Teardown returns how long a finished review stays on screen.
func (c Config) Teardown() (time.Duration, error) {
	return parseDuration("teardown_delay", c.TeardownDelay)
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config %s: must be positive", key)
	}
	return d, nil
}

// Validate checks values Merge cannot repair.
func (c Config) Validate() error {
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.Teardown(); err != nil {
		return err
	}
	switch c.ReportFormat {
	case "markdown", "json":
	default:
		return fmt.Errorf("config report_format: unsupported format %q", c.ReportFormat)
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

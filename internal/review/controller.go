package review

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds every authority round trip when Options does
// not set one.
const DefaultRequestTimeout = 30 * time.Second

// finalizeKey is the in-flight key used for complete and cancel requests.
// Change ids are never empty, so it cannot collide.
const finalizeKey = ""

// Options configures a Controller.
type Options struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// Controller drives one review session. It is created by Load and is safe for
// use from multiple goroutines.
type Controller struct {
	auth    Authority
	reg     *Registry
	nav     *Navigator
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Load fetches the session snapshot and initializes the registry. Any failure
// is returned as *LoadError; it is never retried.
func Load(ctx context.Context, auth Authority, sessionID string, opts Options) (*Controller, error) {
	c := newController(auth, opts)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	snap, err := auth.LoadSession(ctx, sessionID)
	if err != nil {
		c.logger.Error("session load failed", "session", sessionID, "error", err)
		return nil, &LoadError{SessionID: sessionID, Err: err}
	}
	if snap == nil {
		return nil, &LoadError{SessionID: sessionID, Err: &ValidationError{Field: "session", Message: "empty response"}}
	}
	if snap.Session.ID == "" {
		snap.Session.ID = sessionID
	}

	reg, unknown, err := NewRegistry(snap)
	if err != nil {
		c.logger.Error("session snapshot rejected", "session", sessionID, "error", err)
		return nil, &LoadError{SessionID: sessionID, Err: err}
	}
	if len(unknown) > 0 {
		c.logger.Warn("applied list names changes missing from session", "session", sessionID, "ids", unknown)
	}

	c.reg = reg
	c.nav = NewNavigator(reg.FileCount())
	c.logger.Debug("session loaded",
		"session", sessionID,
		"files", reg.FileCount(),
		"status", reg.Status(),
		"duration", time.Since(start))
	return c, nil
}

func newController(auth Authority, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Controller{
		auth:     auth,
		logger:   logger,
		timeout:  timeout,
		inflight: make(map[string]struct{}),
	}
}

// Registry exposes the session state for reading.
func (c *Controller) Registry() *Registry { return c.reg }

// Navigator exposes file focus.
func (c *Controller) Navigator() *Navigator { return c.nav }

// Progress recomputes the completion ratio.
func (c *Controller) Progress() Progress { return c.reg.Progress() }

// SessionID returns the session identifier.
func (c *Controller) SessionID() string { return c.reg.SessionID() }

// Busy reports whether any authority request is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) > 0
}

// acquire claims key for one outstanding request. Finalization is exclusive:
// it is refused while any change request is outstanding, and change requests
// are refused while it is.
func (c *Controller) acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == finalizeKey {
		if len(c.inflight) > 0 {
			return false
		}
	} else if _, finalizing := c.inflight[finalizeKey]; finalizing {
		return false
	}
	if _, busy := c.inflight[key]; busy {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Controller) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

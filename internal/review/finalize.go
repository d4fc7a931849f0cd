package review

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Complete asks the authority to finish the session. On success the registry
// is frozen; the authority's applied list is returned for display and does not
// touch local per-change flags. While a change request is outstanding it
// fails with ErrInFlight without contacting the authority. On failure the
// session stays active and the caller may try again.
func (c *Controller) Complete(ctx context.Context) (*Completion, error) {
	var applied []string
	err := c.finalize(ctx, opComplete, StatusCompleted, func(ctx context.Context) error {
		var err error
		applied, err = c.auth.CompleteSession(ctx, c.reg.SessionID())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("session completed", "session", c.reg.SessionID(), "applied", len(applied))
	return &Completion{
		SessionID:      c.reg.SessionID(),
		Status:         StatusCompleted,
		AppliedChanges: applied,
	}, nil
}

// SkipAll completes the session without applying the remaining changes.
func (c *Controller) SkipAll(ctx context.Context) (*Completion, error) {
	c.logger.Info("skipping remaining changes", "session", c.reg.SessionID(), "pending", len(c.reg.PendingIDs()))
	return c.Complete(ctx)
}

// Cancel abandons the session. Like Complete, it freezes the registry.
func (c *Controller) Cancel(ctx context.Context) error {
	err := c.finalize(ctx, opCancel, StatusCancelled, func(ctx context.Context) error {
		return c.auth.CancelSession(ctx, c.reg.SessionID())
	})
	if err == nil {
		c.logger.Info("session cancelled", "session", c.reg.SessionID())
	}
	return err
}

func (c *Controller) finalize(ctx context.Context, op string, status Status, call func(context.Context) error) error {
	if c.reg.Finalized() {
		return &ActionError{Op: op, Err: ErrFinalized}
	}
	if !c.acquire(finalizeKey) {
		return &ActionError{Op: op, Err: ErrInFlight}
	}
	defer c.release(finalizeKey)

	rctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := call(rctx)
	c.logger.Debug("authority round trip", "op", op, "session", c.reg.SessionID(), "duration", time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response from server within %s: %w", c.timeout, err)
		}
		c.logger.Warn("session request failed", "op", op, "error", err)
		return &ActionError{Op: op, Err: err}
	}
	c.reg.finalize(status)
	return nil
}

package review

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	opApply    = "apply"
	opUnapply  = "unapply"
	opComplete = "complete"
	opCancel   = "cancel"
)

// ApplyChange asks the authority to commit change id. The local flag is set
// only after the authority confirms; on failure nothing changes. A change that
// is already applied is still sent, since only the authority knows the truth.
func (c *Controller) ApplyChange(ctx context.Context, id string) error {
	return c.toggle(ctx, opApply, id)
}

// UnapplyChange asks the authority to revert change id.
func (c *Controller) UnapplyChange(ctx context.Context, id string) error {
	return c.toggle(ctx, opUnapply, id)
}

func (c *Controller) toggle(ctx context.Context, op, id string) error {
	if c.reg.Finalized() {
		return &ActionError{Op: op, ChangeID: id, Err: ErrFinalized}
	}
	if _, ok := c.reg.Change(id); !ok {
		return &ActionError{Op: op, ChangeID: id, Err: fmt.Errorf("%w: %s", ErrUnknownChange, id)}
	}
	if !c.acquire(id) {
		return &ActionError{Op: op, ChangeID: id, Err: ErrInFlight}
	}
	defer c.release(id)

	rctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var err error
	if op == opApply {
		err = c.auth.ApplyChange(rctx, c.reg.SessionID(), id)
	} else {
		err = c.auth.UnapplyChange(rctx, c.reg.SessionID(), id)
	}
	c.logger.Debug("authority round trip", "op", op, "session", c.reg.SessionID(), "change", id, "duration", time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response from server within %s: %w", c.timeout, err)
		}
		c.logger.Warn("change request failed", "op", op, "change", id, "error", err)
		return &ActionError{Op: op, ChangeID: id, Err: err}
	}

	if err := c.reg.setApplied(id, op == opApply); err != nil {
		// The session was finalized while this request was outstanding.
		c.logger.Warn("discarding late change outcome", "op", op, "change", id, "error", err)
		return &ActionError{Op: op, ChangeID: id, Err: err}
	}
	return nil
}

// Toggle applies an unapplied change or unapplies an applied one.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	if c.reg.IsApplied(id) {
		return c.UnapplyChange(ctx, id)
	}
	return c.ApplyChange(ctx, id)
}

package review

import "context"

// BulkFailure records one change the bulk operator could not apply.
type BulkFailure struct {
	ChangeID string
	Err      error
}

// BulkResult summarizes an apply-all run. Partial application is a normal
// outcome.
type BulkResult struct {
	Attempted []string
	Succeeded []string
	Failed    []BulkFailure
	// Aborted is set when the session was finalized mid-run; the remaining
	// changes were not attempted.
	Aborted bool
}

// BulkStep is the outcome of a single request within a run.
type BulkStep struct {
	ChangeID string
	Index    int // 0-based position in the run
	Total    int
	Err      error
}

// BulkRun applies a fixed list of changes one request at a time. The list is
// captured when the run starts: every change unapplied at that moment, in file
// then change order.
type BulkRun struct {
	ctrl   *Controller
	ids    []string
	next   int
	result BulkResult
}

// StartBulk captures the pending changes for a new run.
func (c *Controller) StartBulk() *BulkRun {
	return &BulkRun{ctrl: c, ids: c.reg.PendingIDs()}
}

// Len returns the number of changes the run will attempt.
func (b *BulkRun) Len() int { return len(b.ids) }

// Done reports whether every change has been attempted or the run aborted.
func (b *BulkRun) Done() bool { return b.result.Aborted || b.next >= len(b.ids) }

// Next issues the request for the next change and waits for its outcome
// before returning. A failure does not stop the run.
func (b *BulkRun) Next(ctx context.Context) (BulkStep, bool) {
	if b.Done() {
		return BulkStep{}, false
	}
	if b.ctrl.reg.Finalized() {
		b.result.Aborted = true
		return BulkStep{}, false
	}

	id := b.ids[b.next]
	step := BulkStep{ChangeID: id, Index: b.next, Total: len(b.ids)}
	b.next++

	step.Err = b.ctrl.ApplyChange(ctx, id)
	b.result.Attempted = append(b.result.Attempted, id)
	if step.Err != nil {
		b.result.Failed = append(b.result.Failed, BulkFailure{ChangeID: id, Err: step.Err})
	} else {
		b.result.Succeeded = append(b.result.Succeeded, id)
	}
	return step, true
}

// Result returns the accumulated outcome so far.
func (b *BulkRun) Result() BulkResult { return b.result }

// ApplyAll applies every currently unapplied change sequentially.
func (c *Controller) ApplyAll(ctx context.Context) BulkResult {
	run := c.StartBulk()
	c.logger.Info("applying all pending changes", "session", c.reg.SessionID(), "count", run.Len())
	for {
		if _, ok := run.Next(ctx); !ok {
			break
		}
	}
	res := run.Result()
	c.logger.Info("apply all finished",
		"session", c.reg.SessionID(),
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
		"aborted", res.Aborted)
	return res
}

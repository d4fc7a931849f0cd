// Package tui provides the Bubble Tea review surface. Every user action is
// turned into a command; authority requests run inside those commands and
// report back as messages, so the UI stays responsive while one is in flight.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/diffreview/internal/review"
)

// DefaultTeardownDelay is how long the finished review stays on screen.
const DefaultTeardownDelay = 3 * time.Second

// Options configures a review Model.
type Options struct {
	Authority      review.Authority
	SessionID      string
	Logger         *slog.Logger
	RequestTimeout time.Duration
	TeardownDelay  time.Duration
}

// Outcome is what a review left behind once the program exits.
type Outcome struct {
	// Controller is nil when the session never loaded.
	Controller *review.Controller
	// Completion is set when the session was completed from this surface.
	Completion *review.Completion
	// LoadErr is the startup failure, if any.
	LoadErr error
}

type loadedMsg struct {
	ctrl *review.Controller
	err  error
}

type actionMsg struct {
	op  string
	id  string
	err error
}

type startBulkMsg struct{}

type bulkStepMsg struct {
	step review.BulkStep
	ok   bool
}

type finalizeMsg struct{ skip bool }

type finalizedMsg struct {
	done *review.Completion
	skip bool
	err  error
}

type toastTickMsg time.Time

type teardownMsg struct{}

const (
	opApply   = "apply"
	opUnapply = "unapply"
	opToggle  = "toggle"
)

// Model is the root Bubble Tea model for a review session.
type Model struct {
	ctx  context.Context
	opts Options

	ctrl    *review.Controller
	loadErr error
	loading bool

	gate       review.Gate[tea.Cmd]
	pending    map[string]bool // change ids with a request outstanding
	bulk       *review.BulkRun
	bulkIndex  int
	finalizing bool
	completion *review.Completion

	cursor      int
	changeLines []int // first content line of each rendered change
	preview     bool

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	bar      progress.Model
	vp       viewport.Model
	toasts   *ToastManager
	ticking  bool
	width    int
	height   int
	ready    bool
	quitting bool

	// after schedules a delayed message; tea.Tick outside tests.
	after func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

// New creates a review model. The session is loaded by Init.
func New(ctx context.Context, opts Options) Model {
	if opts.TeardownDelay <= 0 {
		opts.TeardownDelay = DefaultTeardownDelay
	}
	return Model{
		ctx:     ctx,
		opts:    opts,
		loading: true,
		pending: make(map[string]bool),
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		vp:      viewport.New(0, 0),
		toasts:  NewToastManager(),
		after:   tea.Tick,
	}
}

// Outcome reports the final state; call it on the model returned by the program.
func (m Model) Outcome() Outcome {
	return Outcome{Controller: m.ctrl, Completion: m.completion, LoadErr: m.loadErr}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	ctx, opts := m.ctx, m.opts
	return func() tea.Msg {
		ctrl, err := review.Load(ctx, opts.Authority, opts.SessionID, review.Options{
			Logger:         opts.Logger,
			RequestTimeout: opts.RequestTimeout,
		})
		return loadedMsg{ctrl: ctrl, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.layout()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.toasts.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.bar.Width = max(10, msg.Width/3)
		return nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			return nil
		}
		m.ctrl = msg.ctrl
		m.keys.setMutable(!m.ctrl.Registry().Finalized())
		if m.ctrl.Registry().Finalized() {
			return m.notify(fmt.Sprintf("This session is %s; changes are read-only.", m.ctrl.Registry().Status()), ToastInfo)
		}
		return nil

	case actionMsg:
		delete(m.pending, msg.id)
		if msg.err != nil {
			return m.notify(msg.err.Error(), ToastError)
		}
		verb := "Applied"
		if msg.op == opUnapply {
			verb = "Reverted"
		}
		return m.notify(verb+" "+msg.id, ToastSuccess)

	case startBulkMsg:
		if m.ctrl == nil || m.bulk != nil || m.ctrl.Registry().Finalized() {
			return nil
		}
		m.bulk = m.ctrl.StartBulk()
		m.bulkIndex = 0
		if m.bulk.Len() == 0 {
			m.bulk = nil
			return m.notify("Every change is already applied.", ToastInfo)
		}
		return m.bulkStep()

	case bulkStepMsg:
		return m.handleBulkStep(msg)

	case finalizeMsg:
		if m.ctrl == nil || m.finalizing || m.ctrl.Registry().Finalized() {
			return nil
		}
		if m.busy() {
			return m.notify("Wait for outstanding requests before completing.", ToastInfo)
		}
		m.finalizing = true
		ctrl, ctx, skip := m.ctrl, m.ctx, msg.skip
		return func() tea.Msg {
			var done *review.Completion
			var err error
			if skip {
				done, err = ctrl.SkipAll(ctx)
			} else {
				done, err = ctrl.Complete(ctx)
			}
			return finalizedMsg{done: done, skip: skip, err: err}
		}

	case finalizedMsg:
		m.finalizing = false
		if msg.err != nil {
			return m.notify("Could not complete the session: "+msg.err.Error(), ToastError)
		}
		m.completion = msg.done
		m.keys.setMutable(false)
		text := fmt.Sprintf("Review completed: %s.", m.ctrl.Progress())
		if msg.skip {
			text = "Remaining changes skipped. " + text
		}
		return tea.Batch(
			m.notify(text, ToastSuccess),
			m.after(m.opts.TeardownDelay, func(time.Time) tea.Msg { return teardownMsg{} }),
		)

	case toastTickMsg:
		m.toasts.Tick(time.Time(msg))
		if m.toasts.HasToasts() {
			return m.toastTick()
		}
		m.ticking = false
		return nil

	case teardownMsg:
		m.quitting = true
		return tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return tea.Quit
	}

	// An open dialog takes every key.
	if _, ok := m.gate.Pending(); ok {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			cmd, _ := m.gate.Confirm()
			return cmd
		case key.Matches(msg, m.keys.Dismiss):
			m.gate.Cancel()
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	case key.Matches(msg, m.keys.ClearToasts) && m.toasts.HasToasts():
		m.toasts.Clear()
		return nil
	}
	if m.ctrl == nil {
		return nil
	}

	nav := m.ctrl.Navigator()
	switch {
	case key.Matches(msg, m.keys.Prev):
		if nav.Navigate(review.Prev) {
			m.focusChanged()
		}
	case key.Matches(msg, m.keys.Next):
		if nav.Navigate(review.Next) {
			m.focusChanged()
		}
	case key.Matches(msg, m.keys.Select):
		if nav.Select(int(msg.String()[0] - '1')) {
			m.focusChanged()
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if f, ok := m.currentFile(); ok && m.cursor < len(f.Changes)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Apply):
		return m.changeCmd(opApply)
	case key.Matches(msg, m.keys.Unapply):
		return m.changeCmd(opUnapply)
	case key.Matches(msg, m.keys.Toggle):
		return m.changeCmd(opToggle)
	case key.Matches(msg, m.keys.ApplyAll):
		return m.requestApplyAll()
	case key.Matches(msg, m.keys.SkipAll):
		return m.requestFinalize(true)
	case key.Matches(msg, m.keys.Complete):
		return m.requestFinalize(false)
	case key.Matches(msg, m.keys.Preview):
		m.preview = !m.preview
		m.vp.GotoTop()
	default:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) focusChanged() {
	m.cursor = 0
	m.vp.GotoTop()
}

func (m *Model) currentFile() (review.File, bool) {
	idx, ok := m.ctrl.Navigator().Current()
	if !ok {
		return review.File{}, false
	}
	return m.ctrl.Registry().File(idx)
}

func (m *Model) currentChange() (review.Change, bool) {
	f, ok := m.currentFile()
	if !ok || m.cursor >= len(f.Changes) {
		return review.Change{}, false
	}
	return f.Changes[m.cursor], true
}

// changeCmd issues one apply or unapply for the change under the cursor.
func (m *Model) changeCmd(op string) tea.Cmd {
	c, ok := m.currentChange()
	if !ok {
		return nil
	}
	if m.pending[c.ID] {
		return m.notify("A request for "+c.ID+" is already in progress.", ToastInfo)
	}
	if m.finalizing {
		return m.notify("The session is being completed.", ToastInfo)
	}
	if op == opToggle {
		op = opApply
		if m.ctrl.Registry().IsApplied(c.ID) {
			op = opUnapply
		}
	}
	m.pending[c.ID] = true

	ctrl, ctx, id := m.ctrl, m.ctx, c.ID
	return func() tea.Msg {
		var err error
		if op == opApply {
			err = ctrl.ApplyChange(ctx, id)
		} else {
			err = ctrl.UnapplyChange(ctx, id)
		}
		return actionMsg{op: op, id: id, err: err}
	}
}

func (m *Model) requestApplyAll() tea.Cmd {
	if m.bulk != nil {
		return m.notify("Apply all is already running.", ToastInfo)
	}
	n := len(m.ctrl.Registry().PendingIDs())
	if n == 0 {
		return m.notify("Every change is already applied.", ToastInfo)
	}
	m.gate.Request("Apply all changes",
		fmt.Sprintf("Apply the %d remaining changes, one at a time?", n),
		emit(startBulkMsg{}))
	return nil
}

func (m *Model) requestFinalize(skip bool) tea.Cmd {
	if m.busy() {
		return m.notify("Wait for outstanding requests before completing.", ToastInfo)
	}
	p := m.ctrl.Progress()
	if skip {
		m.gate.Request("Skip remaining changes",
			fmt.Sprintf("Complete the review without applying the %d remaining changes?", p.Total-p.Applied),
			emit(finalizeMsg{skip: true}))
		return nil
	}
	m.gate.Request("Complete review",
		fmt.Sprintf("Finish the review with %s? No further changes can be made.", p),
		emit(finalizeMsg{}))
	return nil
}

// busy reports whether a change request or an apply-all run is outstanding.
func (m *Model) busy() bool {
	return len(m.pending) > 0 || m.bulk != nil
}

// emit builds a gate action that, once confirmed, sends msg back through Update.
func emit(msg tea.Msg) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return msg }
	}
}

func (m *Model) bulkStep() tea.Cmd {
	run, ctx := m.bulk, m.ctx
	return func() tea.Msg {
		step, ok := run.Next(ctx)
		return bulkStepMsg{step: step, ok: ok}
	}
}

func (m *Model) handleBulkStep(msg bulkStepMsg) tea.Cmd {
	if m.bulk == nil {
		return nil
	}
	if msg.ok {
		m.bulkIndex = msg.step.Index + 1
		var cmd tea.Cmd
		if msg.step.Err != nil {
			cmd = m.notify(msg.step.ChangeID+": "+msg.step.Err.Error(), ToastError)
		}
		return tea.Batch(cmd, m.bulkStep())
	}

	res := m.bulk.Result()
	m.bulk = nil
	switch {
	case res.Aborted:
		return m.notify(fmt.Sprintf("Apply all stopped after %d changes: the session was finalized.", len(res.Attempted)), ToastInfo)
	case len(res.Failed) > 0:
		return m.notify(fmt.Sprintf("Applied %d of %d changes; %d failed.", len(res.Succeeded), len(res.Attempted), len(res.Failed)), ToastError)
	}
	return m.notify(fmt.Sprintf("Applied all %d changes.", len(res.Succeeded)), ToastSuccess)
}

// notify shows a toast and starts the expiry ticker if it is not running.
func (m *Model) notify(text string, level ToastLevel) tea.Cmd {
	m.toasts.Add(text, level)
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.toastTick()
}

func (m *Model) toastTick() tea.Cmd {
	return m.after(time.Second, func(t time.Time) tea.Msg { return toastTickMsg(t) })
}

// Run starts the review TUI and blocks until it exits.
func Run(ctx context.Context, opts Options) (Outcome, error) {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		return m.Outcome(), err
	}
	return Outcome{}, err
}

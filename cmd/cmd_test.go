package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"pgregory.net/rapid"

	"github.com/fakeyudi/diffreview/internal/authority"
	"github.com/fakeyudi/diffreview/internal/config"
	"github.com/fakeyudi/diffreview/internal/review"
)

// executeCommand runs the root command with args and returns all output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetFlags restores flag variables, which outlive a single execution.
func resetFlags() {
	serverURL = ""
	verbose = false
	plainOutput = false
	reportDir = ""
	assumeYes = false
	recentOnly = false
	serveAddr = "127.0.0.1:8080"
	serveDir = ""
}

func strp(s string) *string { return &s }

func sampleSession() review.Session {
	return review.Session{
		ID:             "s1",
		RepositoryName: "demo",
		Files: []review.File{
			{Path: "src/a.go", Changes: []review.Change{
				{ID: "c1", Type: review.ChangeReplace, LineNumber: 3, OldContent: strp("x := 1"), NewContent: strp("x := 2"), Reason: "bump"},
				{ID: "c2", Type: review.ChangeInsertAfter, LineNumber: 7, NewContent: strp("// note")},
			}},
			{Path: "src/b.go", Changes: []review.Change{
				{ID: "c3", Type: review.ChangeDelete, LineNumber: 1, OldContent: strp("old")},
			}},
		},
	}
}

// setupEnv isolates config and history in a temp dir and points the CLI at
// an in-memory review server holding sampleSession.
func setupEnv(t testing.TB, chdir func(string)) (*authority.Store, string) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	chdir(tmp)

	store := authority.NewStore()
	if _, err := store.Add(sampleSession()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	srv := httptest.NewServer(authority.NewServer(store, nil).Handler())
	t.Cleanup(srv.Close)
	t.Setenv(config.EnvServer, srv.URL)

	resetFlags()
	t.Cleanup(resetFlags)
	return store, tmp
}

func newEnv(t *testing.T) (*authority.Store, string) {
	t.Helper()
	return setupEnv(t, t.Chdir)
}

// withInput feeds r to the command's stdin for the rest of the test.
func withInput(t *testing.T, r any) {
	t.Helper()
	switch in := r.(type) {
	case string:
		rootCmd.SetIn(strings.NewReader(in))
	case *os.File:
		rootCmd.SetIn(in)
	}
	t.Cleanup(func() { rootCmd.SetIn(nil) })
}

func devNull(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func appliedOnServer(t *testing.T, store *authority.Store) []string {
	t.Helper()
	snap, err := store.LoadSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	return snap.AppliedChanges
}

func writeProjectConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".diffreviewconfig"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestReviewPlainPrintsSummary(t *testing.T) {
	newEnv(t)

	out, err := executeCommand(rootCmd, "review", "s1", "--plain")
	if err != nil {
		t.Fatalf("review: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Session:    s1",
		"Repository: demo",
		"Status:     active",
		"0 of 3 changes applied (0%)",
		"## src/a.go  (0/2 applied)",
		"[ ] MODIFY",
		"bump",
		"[ ] DELETE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReviewFallsBackToLastSession(t *testing.T) {
	newEnv(t)

	if _, err := executeCommand(rootCmd, "review", "--plain"); !errors.Is(err, errNoSessionID) {
		t.Fatalf("expected errNoSessionID, got %v", err)
	}
	if _, err := executeCommand(rootCmd, "review", "s1", "--plain"); err != nil {
		t.Fatalf("review s1: %v", err)
	}
	out, err := executeCommand(rootCmd, "review", "--plain")
	if err != nil {
		t.Fatalf("review from history: %v", err)
	}
	if !strings.Contains(out, "Session:    s1") {
		t.Errorf("expected the last session to reopen, got:\n%s", out)
	}
}

func TestReviewUnknownSession(t *testing.T) {
	newEnv(t)

	_, err := executeCommand(rootCmd, "review", "nope", "--plain")
	var lerr *review.LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *review.LoadError, got %v", err)
	}
}

func TestApplyAndUnapply(t *testing.T) {
	store, _ := newEnv(t)

	out, err := executeCommand(rootCmd, "apply", "s1", "c1", "c3")
	if err != nil {
		t.Fatalf("apply: %v\n%s", err, out)
	}
	if !strings.Contains(out, "applied c1") || !strings.Contains(out, "applied c3") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if got := appliedOnServer(t, store); len(got) != 2 {
		t.Errorf("server applied = %v, want c1 and c3", got)
	}

	out, err = executeCommand(rootCmd, "unapply", "s1", "c1")
	if err != nil {
		t.Fatalf("unapply: %v\n%s", err, out)
	}
	if !strings.Contains(out, "reverted c1") || !strings.Contains(out, "1 of 3 changes applied") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestApplyKeepsGoingAfterFailure(t *testing.T) {
	store, _ := newEnv(t)

	out, err := executeCommand(rootCmd, "apply", "s1", "nope", "c2")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 changes failed") {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if !strings.Contains(out, "nope: ") || !strings.Contains(out, "applied c2") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if got := appliedOnServer(t, store); len(got) != 1 || got[0] != "c2" {
		t.Errorf("server applied = %v, want [c2]", got)
	}
}

func TestApplyAllNeedsConfirmation(t *testing.T) {
	store, _ := newEnv(t)
	withInput(t, devNull(t))

	_, err := executeCommand(rootCmd, "apply-all", "s1")
	if !errors.Is(err, errNotConfirmed) {
		t.Fatalf("expected errNotConfirmed, got %v", err)
	}
	if got := appliedOnServer(t, store); len(got) != 0 {
		t.Errorf("nothing should be applied, got %v", got)
	}
}

func TestApplyAllWithYes(t *testing.T) {
	store, _ := newEnv(t)

	out, err := executeCommand(rootCmd, "apply-all", "s1", "--yes")
	if err != nil {
		t.Fatalf("apply-all: %v\n%s", err, out)
	}
	for _, want := range []string{"[1/3] applied c1", "[3/3] applied c3", "3 of 3 changes applied (100%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := appliedOnServer(t, store); len(got) != 3 {
		t.Errorf("server applied = %v", got)
	}

	out, err = executeCommand(rootCmd, "apply-all", "s1", "--yes")
	if err != nil || !strings.Contains(out, "already applied") {
		t.Errorf("second run: err=%v out=%s", err, out)
	}
}

func TestDeclinedPromptDoesNothing(t *testing.T) {
	store, _ := newEnv(t)
	withInput(t, "n\n")

	out, err := executeCommand(rootCmd, "complete", "s1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(out, "[y/N]") || !strings.Contains(out, "Aborted.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	snap, _ := store.LoadSession(context.Background(), "s1")
	if snap.Session.Status != review.StatusActive {
		t.Errorf("status = %s, want active", snap.Session.Status)
	}
}

func TestCompleteWritesReport(t *testing.T) {
	_, tmp := newEnv(t)
	writeProjectConfig(t, tmp, `{"report_dir": "reports", "report_format": "json"}`)
	withInput(t, "y\n")

	if _, err := executeCommand(rootCmd, "apply", "s1", "c1"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	out, err := executeCommand(rootCmd, "complete", "s1")
	if err != nil {
		t.Fatalf("complete: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Review completed: 1 of 3 changes applied (33%).") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "Server applied: c1") {
		t.Errorf("expected the server's applied list:\n%s", out)
	}

	path := filepath.Join("reports", "review-s1.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report not written: %v", err)
	}
	out, err = executeCommand(rootCmd, "show", path)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Session:    s1", "Status:     completed", "[x] c1 MODIFY line 3", "[ ] c3 DELETE line 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := executeCommand(rootCmd, "complete", "s1", "--yes"); err == nil {
		t.Error("completing twice should fail")
	}
}

func TestSkipWithReportDirFlag(t *testing.T) {
	store, tmp := newEnv(t)
	dir := filepath.Join(tmp, "out")

	out, err := executeCommand(rootCmd, "skip", "s1", "--yes", "--report-dir", dir)
	if err != nil {
		t.Fatalf("skip: %v\n%s", err, out)
	}
	if got := appliedOnServer(t, store); len(got) != 0 {
		t.Errorf("skip applied changes: %v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "review-s1.md")); err != nil {
		t.Errorf("markdown report not written: %v", err)
	}
}

func TestCancelFreezesSession(t *testing.T) {
	store, _ := newEnv(t)

	out, err := executeCommand(rootCmd, "cancel", "s1", "-y")
	if err != nil {
		t.Fatalf("cancel: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Review cancelled.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	snap, _ := store.LoadSession(context.Background(), "s1")
	if snap.Session.Status != review.StatusCancelled {
		t.Errorf("status = %s, want cancelled", snap.Session.Status)
	}

	if _, err := executeCommand(rootCmd, "apply", "s1", "c1"); err == nil {
		t.Error("apply after cancel should fail")
	}
	if got := appliedOnServer(t, store); len(got) != 0 {
		t.Errorf("server applied = %v", got)
	}
}

func TestStatus(t *testing.T) {
	newEnv(t)

	out, err := executeCommand(rootCmd, "status")
	if err != nil || !strings.Contains(out, "no review history") {
		t.Fatalf("status without history: err=%v out=%s", err, out)
	}

	if _, err := executeCommand(rootCmd, "apply", "s1", "c1"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	out, err = executeCommand(rootCmd, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Session: s1", "Status: active", "Progress: 1 of 3 changes applied (33%)", "  src/a.go: 1/2", "  src/b.go: 0/1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = executeCommand(rootCmd, "status", "--recent")
	if err != nil {
		t.Fatalf("status --recent: %v", err)
	}
	if !strings.Contains(out, "s1  active") || !strings.Contains(out, "1/3") {
		t.Errorf("unexpected history listing:\n%s", out)
	}
}

func TestServerFlagOverridesEnvironment(t *testing.T) {
	newEnv(t)

	// Nothing listens on the discard port.
	_, err := executeCommand(rootCmd, "--server", "http://127.0.0.1:9", "status", "s1")
	var lerr *review.LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a load error from the flag's server, got %v", err)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	_, tmp := newEnv(t)
	writeProjectConfig(t, tmp, `{"report_format": "xml"}`)

	if _, err := executeCommand(rootCmd, "status", "s1"); err == nil {
		t.Fatal("expected a config validation error")
	}
}

func TestShowMissingFile(t *testing.T) {
	newEnv(t)

	_, err := executeCommand(rootCmd, "show", "missing.md")
	if err == nil || !strings.Contains(err.Error(), "file not found") {
		t.Fatalf("expected file not found, got %v", err)
	}
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	_, tmp := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	serveCmd.SetContext(ctx)
	t.Cleanup(func() { serveCmd.SetContext(context.Background()) })

	out, err := executeCommand(rootCmd, "serve", "--addr", "127.0.0.1:0", "--dir", filepath.Join(tmp, "snaps"))
	if err != nil {
		t.Fatalf("serve: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Listening on http://127.0.0.1:") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestServeBadAddress(t *testing.T) {
	newEnv(t)

	if _, err := executeCommand(rootCmd, "serve", "--addr", "not-an-address"); err == nil {
		t.Fatal("expected listen error")
	}
}

// Feature: diffreview, Property: progress reported by status matches the changes applied through the CLI
func TestStatusMatchesAppliedChanges(t *testing.T) {
	ids := []string{"c1", "c2", "c3"}
	rapid.Check(t, func(rt *rapid.T) {
		pick := rapid.SliceOfNDistinct(rapid.SampledFrom(ids), 0, len(ids), rapid.ID[string]).Draw(rt, "applied")

		store, _ := setupEnv(t, func(string) {})
		if len(pick) > 0 {
			args := append([]string{"apply", "s1"}, pick...)
			if _, err := executeCommand(rootCmd, args...); err != nil {
				rt.Fatalf("apply %v: %v", pick, err)
			}
		}
		if got := appliedOnServer(t, store); len(got) != len(pick) {
			rt.Fatalf("server applied %v, want %v", got, pick)
		}

		out, err := executeCommand(rootCmd, "status", "s1")
		if err != nil {
			rt.Fatalf("status: %v", err)
		}
		want := fmt.Sprintf("Progress: %d of 3 changes applied", len(pick))
		if !strings.Contains(out, want) {
			rt.Errorf("expected %q in:\n%s", want, out)
		}
	})
}

package apply

import (
	"path/filepath"
	"strings"
	"testing"
)

// recordingSink captures engine notifications for assertions. Confirm
// answers with a fixed response.
type recordingSink struct {
	infos     []string
	successes []string
	warnings  []string
	errors    []string
	diffs     int
	prompts   []string
	answer    bool
}

func (s *recordingSink) Info(msg string)    { s.infos = append(s.infos, msg) }
func (s *recordingSink) Success(msg string) { s.successes = append(s.successes, msg) }
func (s *recordingSink) Warning(msg string) { s.warnings = append(s.warnings, msg) }
func (s *recordingSink) Error(msg string)   { s.errors = append(s.errors, msg) }
func (s *recordingSink) Diff(path, before, after string) {
	s.diffs++
}
func (s *recordingSink) Confirm(prompt string) bool {
	s.prompts = append(s.prompts, prompt)
	return s.answer
}

var testBlockedPatterns = []string{"**/.env", "**/*.pem", "**/*.key", "**/*.secret*"}

func newTestEngine(t *testing.T) (*Engine, string, *recordingSink) {
	t.Helper()
	root := t.TempDir()
	sink := &recordingSink{answer: true}
	eng := New(Options{
		Root:            root,
		BlockedPatterns: testBlockedPatterns,
		CreateBackups:   true,
	}, sink)
	return eng, root, sink
}

func TestValidatePath_Valid(t *testing.T) {
	eng, root, _ := newTestEngine(t)
	resolved, ok := eng.ValidatePath("src/main.py")
	if !ok {
		t.Fatal("expected valid path to pass")
	}
	if want := filepath.Join(root, "src", "main.py"); resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}
}

func TestValidatePath_TraversalRejected(t *testing.T) {
	eng, _, sink := newTestEngine(t)
	if _, ok := eng.ValidatePath("../../etc/passwd"); ok {
		t.Error("expected traversal to be rejected")
	}
	if len(sink.errors) == 0 || !strings.Contains(sink.errors[0], "Path traversal rejected") {
		t.Errorf("errors = %v, want traversal message", sink.errors)
	}
}

func TestValidatePath_DotDotInMiddle(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if _, ok := eng.ValidatePath("src/../../../etc/passwd"); ok {
		t.Error("expected mid-path traversal to be rejected")
	}
}

func TestValidatePath_AbsoluteOutsideRoot(t *testing.T) {
	eng, _, sink := newTestEngine(t)
	if _, ok := eng.ValidatePath("/etc/hosts"); ok {
		t.Error("expected absolute path outside root to be rejected")
	}
	if len(sink.errors) == 0 || !strings.Contains(sink.errors[0], "outside project root") {
		t.Errorf("errors = %v, want outside-root message", sink.errors)
	}
}

func TestValidatePath_AbsoluteInsideRoot(t *testing.T) {
	eng, root, _ := newTestEngine(t)
	target := filepath.Join(root, "ok.py")
	resolved, ok := eng.ValidatePath(target)
	if !ok || resolved != target {
		t.Errorf("ValidatePath(%q) = %q, %v; want accepted as-is", target, resolved, ok)
	}
}

func TestValidatePath_BlockedPatterns(t *testing.T) {
	eng, _, sink := newTestEngine(t)
	blocked := []string{
		".env",
		"certs/server.pem",
		"secrets/private.key",
		"config/app.secret.yaml",
	}
	for _, path := range blocked {
		if _, ok := eng.ValidatePath(path); ok {
			t.Errorf("expected %q to be blocked", path)
		}
	}
	if len(sink.errors) != len(blocked) {
		t.Errorf("got %d errors, want %d", len(sink.errors), len(blocked))
	}
	for _, msg := range sink.errors {
		if !strings.Contains(msg, "Blocked write pattern") {
			t.Errorf("unexpected error message %q", msg)
		}
	}
}

func TestValidatePath_SimilarNamesNotBlocked(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	allowed := []string{
		"environment.py",
		"src/keyboard.go",
		"docs/env.md",
	}
	for _, path := range allowed {
		if _, ok := eng.ValidatePath(path); !ok {
			t.Errorf("expected %q to pass", path)
		}
	}
}

func TestMatchesBlocked_BaseNameComponent(t *testing.T) {
	if !matchesBlocked("**/*.pem", "/project/certs/server.pem", "server.pem") {
		t.Error("*.pem base-name match failed")
	}
	if matchesBlocked("**/*.pem", "/project/src/main.go", "main.go") {
		t.Error("main.go should not match *.pem")
	}
	if !matchesBlocked("**/.env", "/project/.env", ".env") {
		t.Error(".env base-name match failed")
	}
}

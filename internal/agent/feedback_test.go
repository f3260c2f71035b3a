package agent

import (
	"strings"
	"testing"

	"graft/internal/apply"
)

func TestFeedbackSuccessesOnly(t *testing.T) {
	rr := RoundOutcome{Applied: []string{"a.py", "b.py"}}

	got := Feedback(rr)

	want := "Successfully applied changes to: a.py, b.py.\n\n" +
		"Continue with any remaining tasks."
	if got != want {
		t.Errorf("Feedback = %q, want %q", got, want)
	}
}

func TestFeedbackNothingHappened(t *testing.T) {
	got := Feedback(RoundOutcome{})
	if got != "Continue with next steps." {
		t.Errorf("Feedback = %q", got)
	}
}

func TestFeedbackFailuresGetOwnParagraphs(t *testing.T) {
	rr := RoundOutcome{
		Applied: []string{"ok.py"},
		Failed: []apply.Outcome{
			{Path: "x.py", Error: "SEARCH block not found in x.py. The content does not match the file.", Snippet: "def g():\n    return 2"},
			{Path: "y.py", Error: "File not found: y.py"},
		},
	}

	got := Feedback(rr)

	wantParts := []string{
		"Successfully applied changes to: ok.py.",
		"FAILED to apply edit to x.py: SEARCH block not found in x.py. The content does not match the file.",
		"Current content of x.py:\n```\ndef g():\n    return 2\n```",
		"FAILED to apply edit to y.py: File not found: y.py",
		"Please retry the failed edits with corrected SEARCH content that exactly matches the current file content shown above.",
	}
	if got != strings.Join(wantParts, "\n\n") {
		t.Errorf("Feedback =\n%q\nwant\n%q", got, strings.Join(wantParts, "\n\n"))
	}
	// Successes-only closer must not appear alongside failures.
	if strings.Contains(got, "Continue with any remaining tasks.") {
		t.Error("closer for success-only rounds leaked into a failed round")
	}
}

func TestFeedbackFailureWithoutSnippet(t *testing.T) {
	rr := RoundOutcome{
		Failed: []apply.Outcome{{Path: "z.py", Error: "Path validation failed: z.py"}},
	}

	got := Feedback(rr)

	if strings.Contains(got, "Current content of") {
		t.Errorf("no snippet expected: %q", got)
	}
	if !strings.Contains(got, "FAILED to apply edit to z.py: Path validation failed: z.py") {
		t.Errorf("failure line missing: %q", got)
	}
}

func TestFeedbackIsDeterministic(t *testing.T) {
	rr := RoundOutcome{
		Applied: []string{"a.py"},
		Failed:  []apply.Outcome{{Path: "b.py", Error: "File not found: b.py"}},
	}
	first := Feedback(rr)
	for i := 0; i < 3; i++ {
		if got := Feedback(rr); got != first {
			t.Fatalf("Feedback not deterministic: %q vs %q", got, first)
		}
	}
}

package display

import (
	"bytes"
	"strings"
	"testing"

	"graft/internal/tokens"
)

func newTestDisplay(input string) (*Display, *bytes.Buffer) {
	var out bytes.Buffer
	d := New(WithWriter(&out), WithInput(strings.NewReader(input)))
	return d, &out
}

func TestStatusLines(t *testing.T) {
	d, out := newTestDisplay("")

	d.Info("checking")
	d.Success("done")
	d.Warning("careful")
	d.Error("broken")

	got := out.String()
	for _, want := range []string{"  checking\n", "✓ done\n", "Warning: careful\n", "Error: broken\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestMessageRoles(t *testing.T) {
	d, out := newTestDisplay("")

	d.Message("hello", "user")
	if !strings.Contains(out.String(), "You> hello") {
		t.Errorf("user message not prefixed: %q", out.String())
	}

	out.Reset()
	d.Message("reply text", "assistant")
	if !strings.Contains(out.String(), "reply text") {
		t.Errorf("assistant message missing: %q", out.String())
	}
}

func TestConfirmAnswers(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
		{"whatever\n", false},
		{"", false}, // closed stdin declines
	}
	for _, tc := range cases {
		d, _ := newTestDisplay(tc.input)
		if got := d.Confirm("Apply?"); got != tc.want {
			t.Errorf("Confirm with input %q = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestDiffOutput(t *testing.T) {
	d, out := newTestDisplay("")

	d.Diff("a.py", "def f():\n    pass\n", "def f():\n    return 1\n")

	got := out.String()
	for _, want := range []string{"--- a/a.py", "+++ b/a.py", "-    pass", "+    return 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("diff output missing %q:\n%s", want, got)
		}
	}
}

func TestDiffIdenticalContentPrintsNothing(t *testing.T) {
	d, out := newTestDisplay("")
	d.Diff("a.py", "same\n", "same\n")
	if out.Len() != 0 {
		t.Errorf("expected no output for identical content, got %q", out.String())
	}
}

func TestTokenStatus(t *testing.T) {
	d, out := newTestDisplay("")
	d.TokenStatus(tokens.Usage{Consumed: 12800, ContextWindow: 128000})
	got := out.String()
	if !strings.Contains(got, "12,800 / 128,000 tokens (10%)") {
		t.Errorf("unexpected token status: %q", got)
	}
}

func TestBundleSummaryPluralization(t *testing.T) {
	d, out := newTestDisplay("")
	d.BundleSummary("python", 1, 500)
	d.BundleSummary("docs", 3, 1500)
	got := out.String()
	if !strings.Contains(got, "Queued 1 python file (~500 tokens)") {
		t.Errorf("singular form wrong: %q", got)
	}
	if !strings.Contains(got, "Queued 3 docs files (~1,500 tokens)") {
		t.Errorf("plural form wrong: %q", got)
	}
}

func TestFormatInt(t *testing.T) {
	cases := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		128000:  "128,000",
		1234567: "1,234,567",
	}
	for n, want := range cases {
		if got := formatInt(n); got != want {
			t.Errorf("formatInt(%d) = %q, want %q", n, got, want)
		}
	}
}

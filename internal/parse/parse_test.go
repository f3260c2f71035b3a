package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReply_PrefersSearchReplaceOverLegacy(t *testing.T) {
	reply := "src/main.py\n" +
		"<<<<<<< SEARCH\n" +
		"old\n" +
		"=======\n" +
		"new\n" +
		">>>>>>> REPLACE\n" +
		"\n" +
		"```python:src/main.py\n" +
		"legacy content\n" +
		"```\n"

	edits := Reply(reply)
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if edits[0].Op != OpReplace {
		t.Errorf("op = %v, legacy block must not leak through", edits[0].Op)
	}
}

func TestReply_FallbackToFenced(t *testing.T) {
	edits := Reply("```python:src/main.py\ndef hello():\n    pass\n```")
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if edits[0].Op != OpFullWrite {
		t.Errorf("op = %v, want OpFullWrite", edits[0].Op)
	}
	if edits[0].Path != "src/main.py" {
		t.Errorf("path = %q", edits[0].Path)
	}
}

func TestReply_FallbackToDiff(t *testing.T) {
	reply := "--- a/src/main.py\n" +
		"+++ b/src/main.py\n" +
		"@@ -1,3 +1,4 @@\n" +
		" def hello():\n" +
		"-    pass\n" +
		"+    return 'hi'\n"
	edits := Reply(reply)
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if edits[0].Op != OpDiffReplay {
		t.Errorf("op = %v, want OpDiffReplay", edits[0].Op)
	}
}

func TestReply_FallbackToFileMarker(t *testing.T) {
	edits := Reply("FILE: src/new.py\ndef new():\n    pass\n")
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if edits[0].Op != OpFullWrite {
		t.Errorf("op = %v, want OpFullWrite", edits[0].Op)
	}
}

func TestReply_NoBlocksAnywhere(t *testing.T) {
	if edits := Reply("No code here."); len(edits) != 0 {
		t.Fatalf("expected 0 edits, got %d", len(edits))
	}
}

func TestReply_NeverMixesProtocols(t *testing.T) {
	reply := "FILE: legacy.py\nlegacy body\n\n" +
		"primary.py\n" +
		"<<<<<<< SEARCH\n" +
		"a\n" +
		"=======\n" +
		"b\n" +
		">>>>>>> REPLACE\n"

	edits := Reply(reply)
	for _, e := range edits {
		if e.Op == OpFullWrite || e.Op == OpDiffReplay {
			t.Fatalf("legacy op %v returned alongside primary protocol", e.Op)
		}
	}
	if len(edits) != 1 {
		t.Fatalf("expected the single primary edit, got %d", len(edits))
	}
}

func TestReply_CanonicalExample(t *testing.T) {
	reply := "a.py\n<<<<<<< SEARCH\ndef f():\n    pass\n=======\ndef f():\n    return 1\n>>>>>>> REPLACE\n"
	edits := Reply(reply)
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	got := edits[0]
	got.Raw = ""
	want := Edit{
		Path:    "a.py",
		Search:  "def f():\n    pass",
		Replace: "def f():\n    return 1",
		Op:      OpReplace,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edit mismatch (-want +got):\n%s", diff)
	}
}

func TestOpString(t *testing.T) {
	cases := map[Op]string{
		OpReplace:    "replace",
		OpCreate:     "create",
		OpDelete:     "delete",
		OpFullWrite:  "full_write",
		OpDiffReplay: "diff_replay",
	}
	for op, want := range cases {
		if op.String() != want {
			t.Errorf("Op(%d).String() = %q, want %q", int(op), op.String(), want)
		}
	}
}

// Package diffview renders line diffs for change previews.
//
// Dry-run mode and the confirmation prompt show what an edit would do
// before anything is written; this package computes the line operations
// with go-diff's line mode and renders them as unified-style hunks the
// display layer can colorize.
package diffview

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is how many unchanged lines surround each hunk.
const contextLines = 3

// LineKind tags a preview line for rendering.
type LineKind int

const (
	KindContext LineKind = iota
	KindAdd
	KindDelete
)

// Line is one line of a hunk.
type Line struct {
	Kind LineKind
	Text string
}

// Hunk is a contiguous run of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Result is the computed preview of one file change.
type Result struct {
	Path     string
	Hunks    []Hunk
	Added    int
	Removed  int
	IsNew    bool
	IsDelete bool
}

// Empty reports whether the contents are identical.
func (r Result) Empty() bool {
	return len(r.Hunks) == 0
}

// Compute diffs old and new content line by line.
func Compute(path, oldContent, newContent string) Result {
	result := Result{
		Path:     path,
		IsNew:    oldContent == "",
		IsDelete: oldContent != "" && newContent == "",
	}

	if oldContent == newContent {
		return result
	}

	ops := computeOps(oldContent, newContent)
	for _, o := range ops {
		switch o.kind {
		case KindAdd:
			result.Added++
		case KindDelete:
			result.Removed++
		}
	}
	result.Hunks = groupHunks(ops)
	return result
}

// op is one line operation with its 1-based positions. A position is 0
// when the line does not exist on that side.
type op struct {
	kind LineKind
	text string
	oldN int
	newN int
}

// computeOps runs go-diff in line mode. Diffing the line-encoded form
// and mapping back avoids character-level splits inside lines.
func computeOps(oldContent, newContent string) []op {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []op
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldN++
				newN++
				ops = append(ops, op{KindContext, text, oldN, newN})
			case diffmatchpatch.DiffDelete:
				oldN++
				ops = append(ops, op{KindDelete, text, oldN, 0})
			case diffmatchpatch.DiffInsert:
				newN++
				ops = append(ops, op{KindAdd, text, 0, newN})
			}
		}
	}
	return ops
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// groupHunks slices the operation stream into hunks, merging changes
// whose context windows would overlap.
func groupHunks(ops []op) []Hunk {
	var changes []int
	for i, o := range ops {
		if o.kind != KindContext {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var hunks []Hunk
	first, last := changes[0], changes[0]
	flush := func() {
		start := first - contextLines
		if start < 0 {
			start = 0
		}
		end := last + contextLines
		if end > len(ops)-1 {
			end = len(ops) - 1
		}
		hunks = append(hunks, buildHunk(ops[start:end+1]))
	}
	for _, c := range changes[1:] {
		if c-last > 2*contextLines {
			flush()
			first = c
		}
		last = c
	}
	flush()
	return hunks
}

func buildHunk(ops []op) Hunk {
	var h Hunk
	for _, o := range ops {
		switch o.kind {
		case KindContext:
			h.OldCount++
			h.NewCount++
		case KindDelete:
			h.OldCount++
		case KindAdd:
			h.NewCount++
		}
		if h.OldStart == 0 && o.oldN > 0 {
			h.OldStart = o.oldN
		}
		if h.NewStart == 0 && o.newN > 0 {
			h.NewStart = o.newN
		}
		h.Lines = append(h.Lines, Line{Kind: o.kind, Text: o.text})
	}
	return h
}

// Unified renders the preview in unified diff form. Identical contents
// render as an empty string.
func (r Result) Unified() string {
	if r.Empty() {
		return ""
	}

	var sb strings.Builder
	if r.IsNew {
		sb.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&sb, "--- a/%s\n", r.Path)
	}
	if r.IsDelete {
		sb.WriteString("+++ /dev/null\n")
	} else {
		fmt.Fprintf(&sb, "+++ b/%s\n", r.Path)
	}

	for _, h := range r.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, line := range h.Lines {
			switch line.Kind {
			case KindAdd:
				sb.WriteByte('+')
			case KindDelete:
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(line.Text)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

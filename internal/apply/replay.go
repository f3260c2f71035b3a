package apply

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// snippetMaxLines bounds the file content echoed back after a failed
// match. Enough for the caller to re-anchor without resending the file.
const snippetMaxLines = 200

var hunkHeaderRe = regexp.MustCompile(`@@ -(\d+)`)

// replayDiff applies unified-diff hunks by positional replay. A hunk
// header moves the line pointer, "-" removes the line under it, "+"
// inserts before it, and context lines advance it. Nothing is verified
// against the context lines, so a diff whose line numbers have drifted
// lands wherever the pointer says. The stricter path for callers is the
// search/replace protocol; this exists for replies that only speak diff.
func replayDiff(original []string, diffContent string) []string {
	result := make([]string, len(original))
	copy(result, original)

	idx := 0
	offset := 0
	for _, dline := range splitPlain(diffContent) {
		switch {
		case strings.HasPrefix(dline, "@@"):
			if m := hunkHeaderRe.FindStringSubmatch(dline); m != nil {
				n, _ := strconv.Atoi(m[1])
				idx = n - 1 + offset
			}
		case strings.HasPrefix(dline, "---") || strings.HasPrefix(dline, "+++"):
			// file headers
		case strings.HasPrefix(dline, "-"):
			if idx >= 0 && idx < len(result) {
				result = append(result[:idx], result[idx+1:]...)
				offset--
			}
		case strings.HasPrefix(dline, "+"):
			at := idx
			if at < 0 {
				at = 0
			}
			if at > len(result) {
				at = len(result)
			}
			inserted := dline[1:] + "\n"
			result = append(result[:at], append([]string{inserted}, result[at:]...)...)
			idx = at + 1
			offset++
		default:
			idx++
		}
	}
	return result
}

// truncateContent keeps the head and tail of content and collapses the
// middle into an omitted-line count. Content at or under maxLines passes
// through untouched.
func truncateContent(content string, maxLines int) string {
	lines := splitPlain(content)
	if len(lines) <= maxLines {
		return content
	}
	half := maxLines / 2
	omitted := len(lines) - maxLines
	out := make([]string, 0, maxLines+1)
	out = append(out, lines[:half]...)
	out = append(out, fmt.Sprintf("... (%d lines omitted) ...", omitted))
	out = append(out, lines[len(lines)-half:]...)
	return strings.Join(out, "\n")
}

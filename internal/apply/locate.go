package apply

import (
	"strings"
	"unicode"
)

// Span is a half-open byte range inside file content.
type Span struct {
	Start int
	End   int
}

// locator tries to find search inside content, returning the span in
// original byte offsets.
type locator func(content, search string) (Span, bool)

// locators holds the matching tiers in strictness order. The first hit
// wins; multiple occurrences are never detected, the earliest match in
// document order is always taken. New tiers append here without touching
// call sites.
var locators = []locator{
	exactLocate,
	trailingWSLocate,
	leadingWSLocate,
}

// Locate finds search inside content under the three matching tiers:
// exact, trailing-whitespace-normalized, then leading-indent-normalized.
func Locate(content, search string) (Span, bool) {
	for _, loc := range locators {
		if span, ok := loc(content, search); ok {
			return span, true
		}
	}
	return Span{}, false
}

func exactLocate(content, search string) (Span, bool) {
	idx := strings.Index(content, search)
	if idx < 0 {
		return Span{}, false
	}
	return Span{Start: idx, End: idx + len(search)}, true
}

func trailingWSLocate(content, search string) (Span, bool) {
	return normalizedLocate(content, search, stripTrailing)
}

func leadingWSLocate(content, search string) (Span, bool) {
	return normalizedLocate(content, search, stripLeading)
}

// normalizedLocate searches the normalized haystack for the normalized
// needle, then translates the hit back to original byte offsets. The
// normalization preserves line count and line boundaries, so the match is
// remapped by counting how many normalized lines precede it and summing
// the corresponding original line lengths; the match length maps the same
// way through the needle's line count.
func normalizedLocate(content, search string, norm func(string) string) (Span, bool) {
	normContent := normalizeLines(content, norm)
	normSearch := normalizeLines(search, norm)

	idx := strings.Index(normContent, normSearch)
	if idx < 0 {
		return Span{}, false
	}

	origLines := splitKeepEnds(content)
	normLines := splitKeepEnds(normContent)

	charCount := 0
	startLine := 0
	for li, nl := range normLines {
		if charCount+len(nl) > idx {
			startLine = li
			break
		}
		charCount += len(nl)
	}
	endLine := startLine + countLines(normSearch)

	origStart := 0
	for _, fl := range origLines[:startLine] {
		origStart += len(fl)
	}
	origEnd := origStart
	for _, fl := range origLines[startLine:min(endLine, len(origLines))] {
		origEnd += len(fl)
	}
	return Span{Start: origStart, End: origEnd}, true
}

// normalizeLines applies norm to every line and rejoins with bare
// newlines, preserving the line structure.
func normalizeLines(text string, norm func(string) string) string {
	lines := splitPlain(text)
	for i, line := range lines {
		lines[i] = norm(line)
	}
	return strings.Join(lines, "\n")
}

func stripTrailing(line string) string {
	return strings.TrimRightFunc(line, unicode.IsSpace)
}

func stripLeading(line string) string {
	return strings.TrimLeftFunc(line, unicode.IsSpace)
}

// splitKeepEnds splits text into lines, each retaining its trailing
// newline.
func splitKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// splitPlain splits text into lines without terminators; a trailing
// newline does not produce an empty final line.
func splitPlain(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// countLines mirrors line counting over normalized text: a trailing
// newline does not start a new line.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

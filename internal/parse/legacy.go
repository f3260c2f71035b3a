package parse

import (
	"regexp"
	"strings"
)

// Legacy block patterns, oldest conventions first. All three scans run over
// the same reply and merge in this fixed order with first-occurrence-wins
// deduplication by path.
var (
	// ```language:path/to/file
	fencedRe = regexp.MustCompile("(?s)```(\\w+):([^\n]+)\n(.*?)```")

	// --- a/path and +++ b/path headers followed by one or more @@ hunks
	diffRe = regexp.MustCompile(`(---[ \t]+a/([^\n]+)\n\+\+\+[ \t]+b/([^\n]+)\n(?:@@[^\n]*\n(?:[-+ ].*\n?)*)+)`)

	// FILE: path/to/file marker line
	fileMarkerRe = regexp.MustCompile(`(?m)^FILE:[ \t]*(.+)$`)
)

// LegacyBlocks scans a reply for the three legacy edit conventions: fenced
// blocks carrying a language:path tag, unified diffs, and FILE: markers.
// A path already captured by an earlier format is not captured again by a
// later one.
func LegacyBlocks(text string) []Edit {
	var edits []Edit
	seen := make(map[string]bool)

	// Fenced code blocks with an embedded path
	for _, m := range fencedRe.FindAllStringSubmatch(text, -1) {
		lang := m[1]
		path := strings.TrimSpace(m[2])
		content := m[3]
		if !isPathLike(path) || seen[path] {
			continue
		}
		edits = append(edits, Edit{
			Path:     path,
			Replace:  content,
			Language: lang,
			Op:       OpFullWrite,
			Raw:      m[0],
		})
		seen[path] = true
	}

	// Unified diffs
	for _, m := range diffRe.FindAllStringSubmatch(text, -1) {
		diffText := m[1]
		fromPath := strings.TrimSpace(m[2])
		toPath := strings.TrimSpace(m[3])
		path := toPath
		if path == "" {
			path = fromPath
		}
		if path == "" || seen[path] {
			continue
		}
		edits = append(edits, Edit{
			Path:    path,
			Replace: diffText,
			Op:      OpDiffReplay,
			Raw:     m[0],
		})
		seen[path] = true
	}

	// FILE: markers, content running to the next marker or end of text
	locs := fileMarkerRe.FindAllStringSubmatchIndex(text, -1)
	for idx, loc := range locs {
		path := strings.TrimSpace(text[loc[2]:loc[3]])
		contentStart := loc[1]
		if contentStart < len(text) && text[contentStart] == '\n' {
			contentStart++
		}
		contentEnd := len(text)
		if idx+1 < len(locs) {
			contentEnd = locs[idx+1][0]
		}
		content := strings.TrimSpace(text[contentStart:contentEnd])
		if path == "" || content == "" || seen[path] {
			continue
		}
		edits = append(edits, Edit{
			Path:    path,
			Replace: content,
			Op:      OpFullWrite,
			Raw:     text[loc[0]:contentEnd],
		})
		seen[path] = true
	}

	return edits
}

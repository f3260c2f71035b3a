package parse

import "strings"

const (
	searchMarker  = "<<<<<<< SEARCH"
	dividerMarker = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

// splitKeepEnds splits text into lines, each retaining its trailing newline.
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

// SearchReplaceBlocks scans a reply line by line for primary-protocol blocks
// and returns the edits in document order.
//
// A path line is any non-empty, non-indented line that is not itself a
// marker and is immediately followed by the SEARCH marker. Search content
// runs to the ======= divider, replace content to the REPLACE marker, and
// the single newline introduced by the line break before each marker is
// stripped from the captured side. A block missing its divider or end
// marker is discarded without resynchronizing inside the broken span.
func SearchReplaceBlocks(text string) []Edit {
	var edits []Edit
	lines := splitKeepEnds(text)
	total := len(lines)
	i := 0

	for i < total {
		stripped := strings.TrimRight(lines[i], "\r\n")

		if i+1 < total &&
			strings.TrimRight(lines[i+1], "\r\n") == searchMarker &&
			stripped != "" &&
			!strings.HasPrefix(stripped, " ") &&
			!strings.HasPrefix(stripped, "\t") &&
			stripped != searchMarker &&
			stripped != dividerMarker &&
			stripped != replaceMarker {

			path := strings.TrimSpace(stripped)
			originalStart := i

			// Replies sometimes wrap the whole block in a display fence; the
			// real path then sits one line above the fence opening, often as
			// inline code.
			if strings.HasPrefix(path, "```") {
				prev := ""
				if i > 0 {
					prev = strings.TrimSpace(strings.TrimRight(lines[i-1], "\r\n"))
					prev = strings.Trim(prev, "`")
				}
				if !isPathLike(prev) {
					i++
					continue
				}
				path = prev
				originalStart = i - 1
			}

			i += 2 // skip path line and <<<<<<< SEARCH

			var searchLines []string
			foundDivider := false
			for i < total {
				if strings.TrimRight(lines[i], "\r\n") == dividerMarker {
					foundDivider = true
					i++
					break
				}
				searchLines = append(searchLines, lines[i])
				i++
			}
			if !foundDivider {
				// Incomplete block, no =======
				continue
			}

			var replaceLines []string
			foundEnd := false
			for i < total {
				if strings.TrimRight(lines[i], "\r\n") == replaceMarker {
					foundEnd = true
					i++
					break
				}
				replaceLines = append(replaceLines, lines[i])
				i++
			}
			if !foundEnd {
				// Incomplete block, no >>>>>>> REPLACE
				continue
			}

			search := strings.Join(searchLines, "")
			replace := strings.Join(replaceLines, "")

			// Strip the single trailing newline that comes from the line
			// break before the ======= / >>>>>>> marker.
			search = strings.TrimSuffix(search, "\n")
			replace = strings.TrimSuffix(replace, "\n")

			edits = append(edits, Edit{
				Path:    path,
				Search:  search,
				Replace: replace,
				Op:      classify(search, replace),
				Raw:     strings.Join(lines[originalStart:i], ""),
			})
		} else {
			i++
		}
	}

	return edits
}

// isPathLike reports whether s plausibly names a file: non-empty, no
// internal whitespace, and at least one dot or slash.
func isPathLike(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.Contains(s, ".") || strings.Contains(s, "/")
}

package llm

import "strings"

// maxUploadBytes caps a single uploaded context document.
const maxUploadBytes = 200_000

const fileMarker = "===== FILE:"

// SplitUploadContent splits bundle content into uploadable chunks.
// Content under the cap passes through whole; oversized content splits
// at "===== FILE:" boundaries so no file is torn apart, falling back to
// line boundaries when the markers are absent.
func SplitUploadContent(content string) []string {
	if len(content) <= maxUploadBytes {
		return []string{content}
	}

	parts := strings.Split(content, fileMarker)
	if len(parts) <= 1 {
		return splitByLines(content)
	}

	var chunks []string
	current := parts[0] // header before first marker
	for _, part := range parts[1:] {
		candidate := current + fileMarker + part
		if len(candidate) > maxUploadBytes && strings.TrimSpace(current) != "" {
			chunks = append(chunks, current)
			current = fileMarker + part
		} else {
			current = candidate
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitByLines splits content at line boundaries into capped chunks.
// A single line longer than the cap stays whole.
func splitByLines(content string) []string {
	lines := strings.Split(content, "\n")
	var chunks []string
	var current []string
	size := 0
	for _, line := range lines {
		lineSize := len(line) + 1
		if size+lineSize > maxUploadBytes && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			size = 0
		}
		current = append(current, line)
		size += lineSize
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

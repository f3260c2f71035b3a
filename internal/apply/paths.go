package apply

import (
	"path/filepath"
	"strings"

	"graft/internal/logging"
)

// ValidatePath checks that a reply-supplied path is safe to write to.
// It returns the resolved absolute path, or ok=false when the path is
// rejected. Rejections are reported through the sink, never raised.
//
// The parent-directory check is deliberately textual and runs before any
// resolution: a path containing ".." anywhere is rejected even if its
// resolved form would land inside the root.
func (e *Engine) ValidatePath(path string) (string, bool) {
	if strings.Contains(path, "..") {
		e.sink.Error("Path traversal rejected: " + path)
		logging.Audit().PathBlocked(path, "parent directory token")
		return "", false
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(e.root, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(e.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		e.sink.Error("Path outside project root: " + path)
		logging.Audit().PathBlocked(path, "outside project root")
		return "", false
	}

	base := filepath.Base(resolved)
	for _, pattern := range e.blockedPatterns {
		if matchesBlocked(pattern, resolved, base) {
			e.sink.Error("Blocked write pattern: " + path)
			logging.Audit().PathBlocked(path, "blocked pattern "+pattern)
			return "", false
		}
	}

	return resolved, true
}

// matchesBlocked matches a glob pattern against the full resolved path and
// against the bare file name alone. Patterns of the form "**/X" block X in
// any directory via the file-name check; the last pattern component is
// matched against the base name so "**/*.pem" blocks every .pem file.
func matchesBlocked(pattern, fullPath, base string) bool {
	if ok, err := filepath.Match(pattern, fullPath); err == nil && ok {
		return true
	}
	last := pattern
	if i := strings.LastIndex(pattern, "/"); i >= 0 {
		last = pattern[i+1:]
	}
	if ok, err := filepath.Match(last, base); err == nil && ok {
		return true
	}
	return false
}

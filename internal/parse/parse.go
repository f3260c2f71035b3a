// Package parse extracts file-edit instructions from model replies.
//
// Two protocol families are recognized. The primary protocol is the
// SEARCH/REPLACE block grammar:
//
//	path/to/file.py
//	<<<<<<< SEARCH
//	existing content
//	=======
//	replacement content
//	>>>>>>> REPLACE
//
// The legacy protocols are three looser conventions (fenced blocks with an
// embedded path, unified diffs, FILE: markers) recognized only when a reply
// contains no primary blocks at all.
package parse

import (
	"graft/internal/logging"
)

// Op tags what an Edit does to its target file.
type Op int

const (
	// OpReplace substitutes the matched search span with new content.
	OpReplace Op = iota
	// OpCreate writes a new file; the search side is empty.
	OpCreate
	// OpDelete removes the matched search span; the replace side is empty.
	OpDelete
	// OpFullWrite replaces the entire file with the block content (legacy).
	OpFullWrite
	// OpDiffReplay applies a unified diff by positional replay (legacy).
	OpDiffReplay
)

func (o Op) String() string {
	switch o {
	case OpReplace:
		return "replace"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpFullWrite:
		return "full_write"
	case OpDiffReplay:
		return "diff_replay"
	default:
		return "unknown"
	}
}

// Edit is a single parsed instruction. Exactly one Op applies; the
// Search/Replace fields are interpreted according to it. Raw preserves the
// verbatim reply span the instruction came from, for diagnostics only.
type Edit struct {
	Path     string
	Search   string
	Replace  string
	Language string // legacy fenced blocks only
	Op       Op
	Raw      string
}

// classify derives the operation from the two content sides. The three
// primary cases are mutually exclusive by construction: empty search is a
// create, empty replace with non-empty search is a delete, everything else
// is a replacement.
func classify(search, replace string) Op {
	if search == "" {
		return OpCreate
	}
	if replace == "" {
		return OpDelete
	}
	return OpReplace
}

// Reply parses a model reply, preferring SEARCH/REPLACE blocks over the
// legacy formats. When at least one primary block parses, legacy scanning
// is skipped entirely, even if legacy-shaped text appears in the same
// reply. The result therefore never mixes primary and legacy ops.
func Reply(text string) []Edit {
	edits := SearchReplaceBlocks(text)
	if len(edits) > 0 {
		logging.ParseDebug("Parsed %d SEARCH/REPLACE block(s)", len(edits))
		return edits
	}
	legacy := LegacyBlocks(text)
	if len(legacy) > 0 {
		logging.ParseDebug("Parsed %d legacy block(s)", len(legacy))
	}
	return legacy
}

// Package apply mutates the working tree from parsed edit instructions.
//
// The engine validates target paths, locates search content under three
// successively looser matching tiers, and performs the mutation for each
// operation kind. Failures are captured as outcome values, never raised:
// a batch keeps going past a failed instruction and reports everything.
package apply

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"graft/internal/gitops"
	"graft/internal/logging"
	"graft/internal/parse"
)

// Mode controls whether an edit is previewed, gated, or written.
type Mode string

const (
	// ModeDryRun computes and displays the change but never writes.
	ModeDryRun Mode = "dry-run"
	// ModeConfirm displays the change and requires interactive acceptance.
	ModeConfirm Mode = "confirm"
	// ModeAuto writes unconditionally.
	ModeAuto Mode = "auto"
)

// Sink receives user-facing notifications from the engine. Notifications
// are fire-and-forget; Confirm blocks for a yes/no answer.
type Sink interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	Diff(path, before, after string)
	Confirm(prompt string) bool
}

// Outcome is the immutable record of one attempted instruction. Snippet
// carries truncated file content only when the search content was not
// found, so a retrying caller has context to correct itself.
type Outcome struct {
	Path          string
	Op            parse.Op
	Success       bool
	Error         string
	Snippet       string
	LinesAffected int
	OldHash       string
	NewHash       string
}

// Options configures an Engine.
type Options struct {
	// Root is the project root; resolved targets must stay inside it.
	Root string
	// BlockedPatterns are glob patterns that may never be written.
	BlockedPatterns []string
	// CreateBackups writes a .bak sibling before overwriting a file.
	CreateBackups bool
}

// Engine applies parsed edits to files under a project root.
type Engine struct {
	root            string
	blockedPatterns []string
	createBackups   bool
	sink            Sink
}

// New creates an Engine rooted at opts.Root (the working directory when
// empty).
func New(opts Options, sink Sink) *Engine {
	root := opts.Root
	if root == "" {
		root, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Engine{
		root:            root,
		blockedPatterns: opts.BlockedPatterns,
		createBackups:   opts.CreateBackups,
		sink:            sink,
	}
}

// Apply performs a single edit. Path validation failures, missing files,
// and unmatched search content all come back as failed outcomes.
func (e *Engine) Apply(edit parse.Edit, mode Mode) Outcome {
	resolved, ok := e.ValidatePath(edit.Path)
	if !ok {
		return Outcome{
			Path:  edit.Path,
			Op:    edit.Op,
			Error: "Path validation failed: " + edit.Path,
		}
	}

	// Advisory only: externally modified files are warned about, never
	// blocked on.
	if fileExists(resolved) && gitops.FileIsDirty(e.root, resolved) {
		e.sink.Warning("File has uncommitted changes: " + edit.Path)
	}

	switch edit.Op {
	case parse.OpCreate:
		return e.applyCreate(resolved, edit, mode)
	case parse.OpReplace, parse.OpDelete:
		return e.applyEdit(resolved, edit, mode)
	case parse.OpFullWrite:
		return e.applyFullWrite(resolved, edit, mode)
	case parse.OpDiffReplay:
		return e.applyDiffReplay(resolved, edit, mode)
	default:
		return Outcome{
			Path:  edit.Path,
			Op:    edit.Op,
			Error: fmt.Sprintf("Unsupported operation: %s", edit.Op),
		}
	}
}

// ApplyAll applies edits strictly sequentially with no transactional
// grouping: a failure in the middle leaves earlier edits applied and
// later ones still attempted.
func (e *Engine) ApplyAll(edits []parse.Edit, mode Mode) []Outcome {
	timer := logging.StartTimer(logging.CategoryApply, "Apply batch")
	defer timer.Stop()

	outcomes := make([]Outcome, 0, len(edits))
	applied := 0
	for _, edit := range edits {
		out := e.Apply(edit, mode)
		if out.Success {
			applied++
		}
		outcomes = append(outcomes, out)
	}
	logging.Apply("Batch complete: %d/%d edits applied", applied, len(edits))
	return outcomes
}

func (e *Engine) applyCreate(path string, edit parse.Edit, mode Mode) Outcome {
	out := Outcome{Path: edit.Path, Op: edit.Op}

	if mode == ModeDryRun {
		e.sink.Info("Would create: " + edit.Path)
		return out
	}
	if mode == ModeConfirm {
		e.sink.Info("New file: " + edit.Path)
		if !e.sink.Confirm("Create this file?") {
			logging.Audit().FileOp(logging.AuditApplySkip, edit.Path, 0, false, "declined")
			return out
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		out.Error = fmt.Sprintf("Failed to create directories for %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		return out
	}
	if err := os.WriteFile(path, []byte(edit.Replace), 0644); err != nil {
		out.Error = fmt.Sprintf("Failed to write %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		logging.Audit().FileOp(logging.AuditApplyCreate, edit.Path, 0, false, out.Error)
		return out
	}

	out.Success = true
	out.LinesAffected = countLines(edit.Replace)
	out.NewHash = hashContent(edit.Replace)
	e.sink.Success("Created: " + edit.Path)
	logging.Apply("Created %s (%d lines)", edit.Path, out.LinesAffected)
	logging.Audit().FileOp(logging.AuditApplyCreate, edit.Path, out.LinesAffected, true, "")
	return out
}

func (e *Engine) applyEdit(path string, edit parse.Edit, mode Mode) Outcome {
	out := Outcome{Path: edit.Path, Op: edit.Op}

	if !fileExists(path) {
		out.Error = "File not found: " + edit.Path
		logging.Audit().FileOp(auditOpFor(edit.Op), edit.Path, 0, false, out.Error)
		return out
	}

	data, err := os.ReadFile(path)
	if err != nil {
		out.Error = fmt.Sprintf("Failed to read %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		return out
	}
	content := string(data)

	span, found := Locate(content, edit.Search)
	if !found {
		out.Error = fmt.Sprintf("SEARCH block not found in %s. The content does not match the file.", edit.Path)
		out.Snippet = truncateContent(content, snippetMaxLines)
		logging.ApplyWarn("No match in %s for %d-byte search content", edit.Path, len(edit.Search))
		logging.Audit().FileOp(auditOpFor(edit.Op), edit.Path, 0, false, "search not found")
		return out
	}

	newContent := content[:span.Start] + edit.Replace + content[span.End:]

	if mode == ModeDryRun {
		e.sink.Info("Would edit: " + edit.Path)
		e.sink.Diff(edit.Path, content, newContent)
		return out
	}
	if mode == ModeConfirm {
		e.sink.Diff(edit.Path, content, newContent)
		if !e.sink.Confirm("Apply this edit?") {
			logging.Audit().FileOp(logging.AuditApplySkip, edit.Path, 0, false, "declined")
			return out
		}
	}

	if e.createBackups {
		e.backup(path)
	}
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		out.Error = fmt.Sprintf("Failed to write %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		return out
	}

	out.Success = true
	out.OldHash = hashContent(content)
	out.NewHash = hashContent(newContent)
	if edit.Op == parse.OpDelete {
		out.LinesAffected = countLines(edit.Search)
		e.sink.Success("Deleted content from: " + edit.Path)
	} else {
		out.LinesAffected = countLines(edit.Replace)
		e.sink.Success("Edited: " + edit.Path)
	}
	logging.Apply("%s %s (span %d:%d)", edit.Op, edit.Path, span.Start, span.End)
	logging.Audit().FileOp(auditOpFor(edit.Op), edit.Path, out.LinesAffected, true, "")
	return out
}

func (e *Engine) applyFullWrite(path string, edit parse.Edit, mode Mode) Outcome {
	out := Outcome{Path: edit.Path, Op: edit.Op}

	oldContent := ""
	exists := false
	if data, err := os.ReadFile(path); err == nil {
		oldContent = string(data)
		exists = true
	}

	if mode == ModeDryRun {
		e.sink.Info("Would write: " + edit.Path)
		if exists {
			e.sink.Diff(edit.Path, oldContent, edit.Replace)
		}
		return out
	}
	if mode == ModeConfirm {
		if exists {
			e.sink.Diff(edit.Path, oldContent, edit.Replace)
		} else {
			e.sink.Info("New file: " + edit.Path)
		}
		if !e.sink.Confirm("Apply changes?") {
			logging.Audit().FileOp(logging.AuditApplySkip, edit.Path, 0, false, "declined")
			return out
		}
	}

	if exists && e.createBackups {
		e.backup(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		out.Error = fmt.Sprintf("Failed to create directories for %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		return out
	}
	if err := os.WriteFile(path, []byte(edit.Replace), 0644); err != nil {
		out.Error = fmt.Sprintf("Failed to write %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		logging.Audit().FileOp(logging.AuditApplyFullWrite, edit.Path, 0, false, out.Error)
		return out
	}

	out.Success = true
	out.LinesAffected = countLines(edit.Replace)
	if exists {
		out.OldHash = hashContent(oldContent)
	}
	out.NewHash = hashContent(edit.Replace)
	e.sink.Success("Applied: " + edit.Path)
	logging.Audit().FileOp(logging.AuditApplyFullWrite, edit.Path, out.LinesAffected, true, "")
	return out
}

func (e *Engine) applyDiffReplay(path string, edit parse.Edit, mode Mode) Outcome {
	out := Outcome{Path: edit.Path, Op: edit.Op}

	if !fileExists(path) {
		out.Error = "File not found for diff: " + edit.Path
		e.sink.Error(out.Error)
		logging.Audit().FileOp(logging.AuditApplyDiff, edit.Path, 0, false, out.Error)
		return out
	}

	data, err := os.ReadFile(path)
	if err != nil {
		out.Error = fmt.Sprintf("Failed to read %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		return out
	}
	content := string(data)

	if mode == ModeDryRun {
		e.sink.Info("Would apply diff to: " + edit.Path)
		for i, line := range splitPlain(edit.Replace) {
			if i >= 20 {
				break
			}
			e.sink.Info("  " + line)
		}
		return out
	}

	patched := replayDiff(splitKeepEnds(content), edit.Replace)
	newContent := joinLines(patched)

	if mode == ModeConfirm {
		e.sink.Diff(edit.Path, content, newContent)
		if !e.sink.Confirm("Apply this diff?") {
			logging.Audit().FileOp(logging.AuditApplySkip, edit.Path, 0, false, "declined")
			return out
		}
	}

	if e.createBackups {
		e.backup(path)
	}
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		out.Error = fmt.Sprintf("Failed to apply diff to %s: %v", edit.Path, err)
		logging.ApplyError("%s", out.Error)
		logging.Audit().FileOp(logging.AuditApplyDiff, edit.Path, 0, false, out.Error)
		return out
	}

	out.Success = true
	out.OldHash = hashContent(content)
	out.NewHash = hashContent(newContent)
	out.LinesAffected = len(patched)
	e.sink.Success("Applied diff to: " + edit.Path)
	logging.Audit().FileOp(logging.AuditApplyDiff, edit.Path, out.LinesAffected, true, "")
	return out
}

// backup writes a byte-identical sibling copy with a .bak suffix. It runs
// immediately before the first overwrite of an existing target, never on
// creation.
func (e *Engine) backup(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	backupPath := path + ".bak"
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		logging.ApplyWarn("Backup failed for %s: %v", path, err)
		return
	}
	logging.ApplyDebug("Backup written: %s", backupPath)
	logging.Audit().BackupWritten(path, backupPath)
}

func auditOpFor(op parse.Op) logging.AuditEventType {
	switch op {
	case parse.OpCreate:
		return logging.AuditApplyCreate
	case parse.OpDelete:
		return logging.AuditApplyDelete
	case parse.OpFullWrite:
		return logging.AuditApplyFullWrite
	case parse.OpDiffReplay:
		return logging.AuditApplyDiff
	default:
		return logging.AuditApplyEdit
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hashContent(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

func joinLines(lines []string) string {
	total := 0
	for _, l := range lines {
		total += len(l)
	}
	var b = make([]byte, 0, total)
	for _, l := range lines {
		b = append(b, l...)
	}
	return string(b)
}

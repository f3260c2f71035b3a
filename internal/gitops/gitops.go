// Package gitops shells out to the git CLI for repository state checks
// and checkpoint commits. Every function degrades gracefully when git is
// missing or the directory is not a repository: callers get a failed
// Result or a zero value, never a panic or a hang.
package gitops

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"graft/internal/logging"
)

// defaultTimeout bounds every git invocation. Subtree operations on big
// repositories can be slow; everything this package runs is metadata.
const defaultTimeout = 30 * time.Second

// Status describes a repository's working tree.
type Status struct {
	IsRepo    bool
	Branch    string
	Clean     bool
	Staged    []string
	Unstaged  []string
	Untracked []string
}

// Result captures one git invocation.
type Result struct {
	Success    bool
	Command    string
	Stdout     string
	Stderr     string
	ReturnCode int
}

func run(dir string, args ...string) Result {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmdStr := "git " + strings.Join(args, " ")

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Command: cmdStr,
		Stdout:  strings.TrimSpace(stdout.String()),
		Stderr:  strings.TrimSpace(stderr.String()),
	}
	switch {
	case err == nil:
		res.Success = true
	case ctx.Err() == context.DeadlineExceeded:
		res.Stderr = "command timed out"
		res.ReturnCode = -1
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ReturnCode = exitErr.ExitCode()
		} else {
			// git binary missing or not executable
			res.Stderr = err.Error()
			res.ReturnCode = -1
		}
	}
	if !res.Success {
		logging.GitDebug("%s failed (rc=%d): %s", cmdStr, res.ReturnCode, res.Stderr)
	}
	return res
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	res := run(dir, "rev-parse", "--is-inside-work-tree")
	return res.Success && res.Stdout == "true"
}

// CurrentBranch returns the checked-out branch name, or "" outside a
// repository.
func CurrentBranch(dir string) string {
	res := run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if !res.Success {
		return ""
	}
	return res.Stdout
}

// IsClean reports whether the working tree has no staged, unstaged, or
// untracked changes.
func IsClean(dir string) bool {
	res := run(dir, "status", "--porcelain")
	return res.Success && res.Stdout == ""
}

// FileIsDirty reports whether path has uncommitted changes (modified,
// staged, or untracked). False outside a repository or when git is
// unavailable, so callers can treat it as a pure advisory.
func FileIsDirty(dir, path string) bool {
	res := run(dir, "status", "--porcelain", "--", path)
	return res.Success && res.Stdout != ""
}

// GetStatus collects the full working-tree status for dir.
func GetStatus(dir string) Status {
	if !IsRepo(dir) {
		return Status{}
	}

	st := Status{IsRepo: true, Branch: CurrentBranch(dir)}

	if res := run(dir, "diff", "--cached", "--name-only"); res.Success && res.Stdout != "" {
		st.Staged = strings.Split(res.Stdout, "\n")
	}
	if res := run(dir, "diff", "--name-only"); res.Success && res.Stdout != "" {
		st.Unstaged = strings.Split(res.Stdout, "\n")
	}
	if res := run(dir, "ls-files", "--others", "--exclude-standard"); res.Success && res.Stdout != "" {
		st.Untracked = strings.Split(res.Stdout, "\n")
	}
	st.Clean = len(st.Staged) == 0 && len(st.Unstaged) == 0 && len(st.Untracked) == 0
	return st
}

// Add stages the given paths.
func Add(dir string, paths ...string) Result {
	return run(dir, append([]string{"add"}, paths...)...)
}

// Commit creates a commit with the given message.
func Commit(dir, message string) Result {
	return run(dir, "commit", "-m", message)
}

// Checkpoint stages everything and commits it under a checkpoint
// message. Used before risky batches so a rollback target exists.
func Checkpoint(dir, message string) Result {
	run(dir, "add", "-A")
	res := run(dir, "commit", "-m", "checkpoint: "+message)
	if res.Success {
		logging.Git("Checkpoint created: %s", message)
	}
	return res
}

// RollbackTo hard-resets the working tree to commitHash. Destructive;
// callers must confirm with the user first.
func RollbackTo(dir, commitHash string) Result {
	return run(dir, "reset", "--hard", commitHash)
}

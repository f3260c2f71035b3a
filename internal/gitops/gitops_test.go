package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	mustGit(t, dir, "init", "-q")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "user.name", "Test User")
	return dir
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIsRepo(t *testing.T) {
	repo := initRepo(t)
	if !IsRepo(repo) {
		t.Error("expected initialized directory to be a repo")
	}
	if IsRepo(t.TempDir()) {
		t.Error("expected plain temp directory not to be a repo")
	}
}

func TestCurrentBranch(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "hello\n")
	mustGit(t, repo, "add", "a.txt")
	mustGit(t, repo, "commit", "-q", "-m", "initial")

	if branch := CurrentBranch(repo); branch == "" {
		t.Error("expected a branch name after first commit")
	}
	if branch := CurrentBranch(t.TempDir()); branch != "" {
		t.Errorf("expected empty branch outside a repo, got %q", branch)
	}
}

func TestIsClean(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "hello\n")
	mustGit(t, repo, "add", "a.txt")
	mustGit(t, repo, "commit", "-q", "-m", "initial")

	if !IsClean(repo) {
		t.Error("expected clean tree right after commit")
	}
	writeFile(t, repo, "b.txt", "new\n")
	if IsClean(repo) {
		t.Error("expected dirty tree after adding untracked file")
	}
}

func TestFileIsDirty(t *testing.T) {
	repo := initRepo(t)
	committed := writeFile(t, repo, "a.txt", "hello\n")
	mustGit(t, repo, "add", "a.txt")
	mustGit(t, repo, "commit", "-q", "-m", "initial")

	if FileIsDirty(repo, committed) {
		t.Error("committed untouched file reported dirty")
	}

	writeFile(t, repo, "a.txt", "changed\n")
	if !FileIsDirty(repo, committed) {
		t.Error("modified file not reported dirty")
	}

	untracked := writeFile(t, repo, "b.txt", "new\n")
	if !FileIsDirty(repo, untracked) {
		t.Error("untracked file not reported dirty")
	}
}

func TestFileIsDirty_OutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello\n")
	if FileIsDirty(dir, path) {
		t.Error("file outside any repo reported dirty")
	}
}

func TestGetStatus(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "hello\n")
	mustGit(t, repo, "add", "a.txt")
	mustGit(t, repo, "commit", "-q", "-m", "initial")

	writeFile(t, repo, "a.txt", "modified\n") // unstaged
	writeFile(t, repo, "b.txt", "staged\n")
	mustGit(t, repo, "add", "b.txt") // staged
	writeFile(t, repo, "c.txt", "untracked\n")

	st := GetStatus(repo)
	if !st.IsRepo {
		t.Fatal("expected IsRepo")
	}
	if st.Clean {
		t.Error("expected dirty status")
	}
	if len(st.Unstaged) != 1 || st.Unstaged[0] != "a.txt" {
		t.Errorf("unstaged = %v, want [a.txt]", st.Unstaged)
	}
	if len(st.Staged) != 1 || st.Staged[0] != "b.txt" {
		t.Errorf("staged = %v, want [b.txt]", st.Staged)
	}
	if len(st.Untracked) != 1 || st.Untracked[0] != "c.txt" {
		t.Errorf("untracked = %v, want [c.txt]", st.Untracked)
	}
}

func TestGetStatus_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	st := GetStatus(t.TempDir())
	if st.IsRepo {
		t.Error("plain directory reported as repo")
	}
}

func TestCheckpoint(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "hello\n")
	mustGit(t, repo, "add", "a.txt")
	mustGit(t, repo, "commit", "-q", "-m", "initial")

	writeFile(t, repo, "a.txt", "updated\n")
	res := Checkpoint(repo, "before batch")
	if !res.Success {
		t.Fatalf("checkpoint failed: %s", res.Stderr)
	}
	if !IsClean(repo) {
		t.Error("expected clean tree after checkpoint")
	}
}

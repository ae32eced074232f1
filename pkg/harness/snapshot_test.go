package harness

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	return repo
}

func commitFile(t *testing.T, repo, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(repo, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, name), []byte(content), 0o644))
	for _, args := range [][]string{
		{"add", name},
		{"commit", "-q", "-m", "add " + name},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		require.NoError(t, cmd.Run(), "git %v", args)
	}
}

func TestRepoSnapshotIncludesTrackedFiles(t *testing.T) {
	repo := initGitRepo(t)
	commitFile(t, repo, "src/app.py", "print('hello')\n")

	snapshot := RepoSnapshot(context.Background(), repo)

	assert.Contains(t, snapshot, "=== GIT FILES ===")
	assert.Contains(t, snapshot, "=== FILE CONTENTS ===")
	assert.Contains(t, snapshot, "src/app.py")
	assert.Contains(t, snapshot, "print('hello')")
}

func TestRepoSnapshotOutsideGitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	snapshot := RepoSnapshot(context.Background(), t.TempDir())
	assert.Contains(t, snapshot, "Error capturing repo state")
}

func TestCurrentBranchAndWorkBranch(t *testing.T) {
	repo := initGitRepo(t)
	commitFile(t, repo, "README.md", "hello\n")

	ctx := context.Background()
	branch, err := CreateWorkBranch(ctx, repo, "agent", "Add a math helper!")
	require.NoError(t, err)
	assert.Equal(t, "agent/add-a-math-helper", branch)

	current, err := CurrentBranch(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, branch, current)
}

func TestCommit(t *testing.T) {
	repo := initGitRepo(t)
	commitFile(t, repo, "README.md", "hello\n")

	require.NoError(t, os.MkdirAll(filepath.Join(repo, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "src", "new.py"), []byte("x = 1\n"), 0o644))

	err := Commit(context.Background(), repo, "src/new.py", "Add src/new.py")
	require.NoError(t, err)

	out, err := runGit(context.Background(), repo, "log", "-1", "--pretty=%s")
	require.NoError(t, err)
	assert.Contains(t, out, "Add src/new.py")
}

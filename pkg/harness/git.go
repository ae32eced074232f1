package harness

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode"
)

// DefaultBranchPrefix is used for work branches when no prefix is set.
const DefaultBranchPrefix = "agent"

// CurrentBranch returns the checked-out branch name in repoPath.
func CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	out, err := runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to read current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CreateWorkBranch creates and checks out a branch named <prefix>/<slug>
// where the slug is derived from the task description.
func CreateWorkBranch(ctx context.Context, repoPath, prefix, task string) (string, error) {
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}
	branch := prefix + "/" + slugify(task)
	if _, err := runGit(ctx, repoPath, "checkout", "-b", branch); err != nil {
		return "", fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return branch, nil
}

// Commit stages path and commits it with message.
func Commit(ctx context.Context, repoPath, path, message string) error {
	if _, err := runGit(ctx, repoPath, "add", path); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	if _, err := runGit(ctx, repoPath, "commit", "-m", message); err != nil {
		return fmt.Errorf("failed to commit %s: %w", path, err)
	}
	return nil
}

// CreatePR pushes the branch and opens a pull request with the gh CLI.
// Requires gh to be installed and authenticated.
func CreatePR(ctx context.Context, repoPath, branch, title, body string) (string, error) {
	if _, err := runGit(ctx, repoPath, "push", "-u", "origin", branch); err != nil {
		return "", fmt.Errorf("failed to push branch %s: %w", branch, err)
	}
	cmd := exec.CommandContext(ctx, "gh", "pr", "create", "--title", title, "--body", body)
	cmd.Dir = repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("gh pr create failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// slugify reduces a task description to a short branch-safe slug.
func slugify(task string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(task) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "task"
	}
	return slug
}

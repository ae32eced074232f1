package harness

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// maxSnapshotFileSize caps per-file content included in a repo snapshot.
const maxSnapshotFileSize = 50_000

// runGit runs a git subcommand in dir and returns its stdout.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// RepoSnapshot captures the current state of the repository as prompt context:
// tracked files, working diff, status, and the contents of small tracked
// files. Failures are embedded in the returned text rather than aborting the
// run; a degraded snapshot still lets the agent attempt the task.
func RepoSnapshot(ctx context.Context, repoPath string) string {
	files, err := runGit(ctx, repoPath, "ls-files")
	if err != nil {
		return fmt.Sprintf("Error capturing repo state: %v", err)
	}
	diff, _ := runGit(ctx, repoPath, "diff")
	status, _ := runGit(ctx, repoPath, "status", "--short")

	var contents []string
	for _, file := range strings.Split(strings.TrimSpace(files), "\n") {
		if file == "" {
			continue
		}
		fullPath := filepath.Join(repoPath, file)
		info, err := os.Stat(fullPath)
		if err != nil || info.Size() > maxSnapshotFileSize {
			continue
		}
		data, err := os.ReadFile(fullPath)
		if err != nil {
			continue
		}
		contents = append(contents, fmt.Sprintf("=== %s ===\n%s", file, data))
	}

	contentsSection := "(no readable files)"
	if len(contents) > 0 {
		contentsSection = strings.Join(contents, "\n\n")
	}

	return fmt.Sprintf(`=== GIT FILES ===
%s

=== GIT DIFF ===
%s

=== GIT STATUS ===
%s

=== FILE CONTENTS ===
%s
`, files, diff, status, contentsSection)
}

package guardrail

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteNew writes content to path, creating parent directories as needed.
// The file is opened with O_EXCL so the create fails if the file appeared
// after validation: the existence check in Validate is advisory, this write
// is the authoritative guard against overwrites.
func WriteNew(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parent directories for %s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	_, writeErr := f.WriteString(content)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return nil
}

// PathExistsOnDisk is the production existence predicate for Validate,
// resolving req.TargetPath relative to root.
func PathExistsOnDisk(root string) PathExistsFunc {
	return func(path string) bool {
		_, err := os.Stat(filepath.Join(root, path))
		return err == nil
	}
}

// Package atomicfile writes files through the write-to-temp, fsync,
// rename protocol. A concurrent reader sees either the previous
// committed version or the new one, never a partial write; a crash
// leaves at most a stray temp file that enumeration ignores.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write commits data to path with the given permissions. The temp file
// is a hidden sibling in the same directory (rename must not cross
// filesystems); it is removed on any error path.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	// Flush data to disk before rename. Without fsync, a power loss
	// after rename could leave the file empty (rename is metadata-only
	// on POSIX).
	if err := f.Sync(); err != nil {
		f.Close()

		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file into place: %w", err)
	}

	succeeded = true

	return nil
}

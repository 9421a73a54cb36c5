package trashstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// moveEntry moves src to dest. On the same volume this is a single
// atomic rename. Across volumes it falls back to copy-then-remove: the
// tree is copied to a temp sibling of dest, synced, renamed into place,
// and only then is src removed — an interruption anywhere leaves src
// intact.
func moveEntry(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	if !isCrossDevice(err) {
		return err
	}

	tmp := dest + tmpSuffix

	if err := copyTree(src, tmp); err != nil {
		os.RemoveAll(tmp)

		return fmt.Errorf("cross-device copy: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)

		return fmt.Errorf("committing cross-device copy: %w", err)
	}

	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}

	return nil
}

// isCrossDevice reports whether a rename failed because source and
// destination live on different volumes.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// copyTree recursively copies src to dest, preserving permission bits
// and symlink targets. Symlinks are copied as links, never followed.
func copyTree(src, dest string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("examining %s: %w", src, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("reading link %s: %w", src, err)
		}

		if err := os.Symlink(target, dest); err != nil {
			return fmt.Errorf("linking %s: %w", dest, err)
		}

		return nil

	case info.IsDir():
		if err := os.Mkdir(dest, info.Mode().Perm()); err != nil {
			return fmt.Errorf("creating %s: %w", dest, err)
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			return fmt.Errorf("listing %s: %w", src, err)
		}

		for _, entry := range entries {
			if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
				return err
			}
		}

		return nil

	case info.Mode().IsRegular():
		return copyFile(src, dest, info.Mode().Perm())

	default:
		return fmt.Errorf("cannot copy %s: unsupported file type %s", src, info.Mode().Type())
	}
}

// copyFile copies one regular file with chunked I/O and syncs it to disk
// before returning, so the subsequent rename commits durable bytes.
func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)

		return fmt.Errorf("copying to %s: %w", dest, err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dest)

		return fmt.Errorf("syncing %s: %w", dest, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}

	return nil
}

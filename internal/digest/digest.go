// Package digest computes advisory SHA-256 content digests over staged
// payloads. Digests detect silent corruption between staging and
// restore; they are recomputed and compared on restore but never
// enforced as a precondition.
//
// Regular file: SHA-256 over the byte stream. Symlink: SHA-256 over the
// literal link target string. Directory: SHA-256 over the sorted
// sequence of "<name>\x00<digest(child)>" pairs, recursing. An empty
// directory therefore digests to the hash of the empty input.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Length of a rendered digest in hex characters.
const Length = sha256.Size * 2

// File computes the streaming digest of a regular file.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for digest: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digesting %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Symlink computes the digest of a symlink's literal target string.
func Symlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("reading link %s for digest: %w", path, err)
	}

	sum := sha256.Sum256([]byte(target))

	return hex.EncodeToString(sum[:]), nil
}

// Tree computes the digest of an arbitrary payload, dispatching on the
// object's type without following symlinks.
func Tree(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("examining %s for digest: %w", path, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return Symlink(path)
	case info.IsDir():
		return dir(path)
	case info.Mode().IsRegular():
		return File(path)
	default:
		return "", fmt.Errorf("cannot digest %s: unsupported file type %s", path, info.Mode().Type())
	}
}

// dir computes the canonical recursive digest of a directory: child
// entries sorted by literal name, each contributing its name, a NUL
// separator, and its own digest.
func dir(path string) (string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("listing %s for digest: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	sort.Strings(names)

	h := sha256.New()

	for _, name := range names {
		child, err := Tree(filepath.Join(path, name))
		if err != nil {
			return "", err
		}

		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(child))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the digest of path and compares it to want. It
// returns the recomputed value so callers can report both sides of a
// mismatch.
func Verify(path, want string) (match bool, got string, err error) {
	got, err = Tree(path)
	if err != nil {
		return false, "", err
	}

	return got == want, got, nil
}

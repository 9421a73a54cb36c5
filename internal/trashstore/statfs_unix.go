//go:build unix

package trashstore

import (
	"fmt"
	"syscall"
)

// FreeSpace reports the bytes available to this user on the volume
// hosting the payload directory.
func (s *Store) FreeSpace() (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", s.dir, err)
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}

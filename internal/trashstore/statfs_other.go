//go:build !unix

package trashstore

// FreeSpace is unavailable on this platform; status reports zero.
func (s *Store) FreeSpace() (uint64, error) {
	return 0, nil
}

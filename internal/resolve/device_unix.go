//go:build unix

package resolve

import (
	"io/fs"
	"syscall"
)

// deviceOf extracts the device id from the underlying stat structure.
func deviceOf(info fs.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Dev)
	}

	return 0
}

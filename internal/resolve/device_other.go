//go:build !unix

package resolve

import "io/fs"

// deviceOf reports a single synthetic device id on platforms without
// per-file device ids; the engine treats identical ids as "same volume".
func deviceOf(_ fs.FileInfo) uint64 {
	return 0
}

//go:build !windows

package platform

import (
	"golang.org/x/sys/unix"
)

// CanRead reports whether the current process may read (and, for directories, list) path.
func CanRead(path string) bool {
	if path == "" {
		return false
	}
	mode := uint32(unix.R_OK)
	if DirExists(path) {
		mode |= unix.X_OK
	}
	return unix.Access(path, mode) == nil
}

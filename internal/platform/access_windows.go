//go:build windows

package platform

import (
	"os"

	"golang.org/x/sys/windows"
)

// CanRead reports whether the current process may read (and, for directories, list) path.
func CanRead(path string) bool {
	if path == "" {
		return false
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	if _, err := windows.GetFileAttributes(p); err != nil {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

package platform

import (
	"os"
	"runtime"
	"strings"
)

// IsMacOS returns true when running on macOS
func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

// IsLinux returns true when running on Linux
func IsLinux() bool {
	return runtime.GOOS == "linux"
}

// IsWindows returns true when running on Windows
func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// FileExists reports whether path exists (file or directory)
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// DirExists reports whether path exists and is a directory
func DirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ExpandEnv expands ${VAR} and $VAR references and a leading ~ to the home directory.
// Unset variables are left untouched so that misconfiguration stays visible.
func ExpandEnv(s string) string {
	if s == "" {
		return s
	}

	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = home + s[1:]
		}
	}

	return os.Expand(s, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return "${" + key + "}"
	})
}

package medialib

import (
	"github.com/777genius/tonepicker/internal/platform"
	"github.com/777genius/tonepicker/internal/tones"
)

// Access returns a tones.StorageAccess granting the music category only when
// at least one music directory is configured and every one of them is readable.
func Access(dirs []string) tones.StorageAccess {
	return func() bool {
		if len(dirs) == 0 {
			return false
		}
		for _, dir := range dirs {
			if !platform.CanRead(dir) {
				return false
			}
		}
		return true
	}
}

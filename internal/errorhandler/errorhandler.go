// ABOUTME: Panic containment for background goroutines.
// ABOUTME: A panicking worker is logged instead of taking down the picker UI.

package errorhandler

import (
	"fmt"
	"runtime/debug"

	"github.com/777genius/tonepicker/internal/logging"
)

// SafeGo runs fn in a new goroutine and recovers any panic it raises.
func SafeGo(fn func()) {
	go func() {
		defer Recover("goroutine")
		fn()
	}()
}

// Recover logs a recovered panic with its stack. Must be called via defer.
func Recover(where string) {
	if r := recover(); r != nil {
		logging.Error("panic in %s: %v\n%s", where, r, debug.Stack())
	}
}

// RecoverError converts a recovered panic into an error stored in *errp.
// Use as `defer errorhandler.RecoverError("scan", &err)`.
func RecoverError(where string, errp *error) {
	if r := recover(); r != nil {
		logging.Error("panic in %s: %v\n%s", where, r, debug.Stack())
		if errp != nil {
			*errp = fmt.Errorf("panic in %s: %v", where, r)
		}
	}
}

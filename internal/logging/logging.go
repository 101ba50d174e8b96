// ABOUTME: Process-wide leveled logger writing to a file under the XDG state directory.
// ABOUTME: Printf-style Debug/Info/Warn/Error helpers; silent until InitLogger is called.

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

const logFileName = "tonepicker.log"

var (
	mu     sync.Mutex
	logger = log.New(io.Discard, "", 0)
	file   *os.File
	debug  bool
)

// DefaultLogPath returns the log file location (~/.local/state/tonepicker/tonepicker.log on Linux).
func DefaultLogPath() (string, error) {
	return xdg.StateFile(filepath.Join("tonepicker", logFileName))
}

// InitLogger opens path for appending and routes all log calls to it.
// An empty path uses DefaultLogPath.
func InitLogger(path string, debugEnabled bool) error {
	if path == "" {
		p, err := DefaultLogPath()
		if err != nil {
			return fmt.Errorf("failed to resolve log path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
	}
	file = f
	debug = debugEnabled
	logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	return nil
}

// SetOutput redirects logging to w. Used by tests and by --verbose runs that log to stderr.
func SetOutput(w io.Writer, debugEnabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = debugEnabled
	logger = log.New(w, "", log.Ltime|log.Lmicroseconds)
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(io.Discard, "", 0)
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Debug logs only when debug logging is enabled.
func Debug(format string, args ...any) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if enabled {
		write("DEBUG", format, args...)
	}
}

func Info(format string, args ...any) {
	write("INFO", format, args...)
}

func Warn(format string, args ...any) {
	write("WARN", format, args...)
}

func Error(format string, args ...any) {
	write("ERROR", format, args...)
}

func write(level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

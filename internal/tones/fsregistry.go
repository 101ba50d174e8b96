// ABOUTME: Filesystem tone registry: user tone folders, extra directories and platform system sounds.
// ABOUTME: Pure filesystem scanning with no audio dependencies (CGO-free).

package tones

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/platform"
)

// FSOptions controls which directories the registry scans.
type FSOptions struct {
	UserDir         string                // Root holding ringtones/, alarms/ and notifications/
	Extra           map[Category][]string // Additional directories per category
	IncludeSystem   bool
	MaxSystemDepth  int      // Max directory depth for Linux system sounds (default 5)
	SystemDirs      []string // Overrides the platform system sound directories when non-empty
	DefaultRingtone string   // Path the default ringtone alias resolves to
}

// FSRegistry enumerates tones from directories on disk.
type FSRegistry struct {
	opts FSOptions
}

// NewFSRegistry creates a registry over the given directories.
func NewFSRegistry(opts FSOptions) *FSRegistry {
	if opts.MaxSystemDepth <= 0 {
		opts.MaxSystemDepth = 5
	}
	return &FSRegistry{opts: opts}
}

var userFolders = map[Category]string{
	Ringtone:     "ringtones",
	Alarm:        "alarms",
	Notification: "notifications",
}

// toneExtensions lists the formats the preview player can decode.
var toneExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".oga":  true,
	".flac": true,
	".aiff": true,
	".aif":  true,
}

// Tones returns the tones of c: user folder first, then extra directories, then system sounds.
func (r *FSRegistry) Tones(ctx context.Context, c Category) ([]Row, error) {
	folder, ok := userFolders[c]
	if !ok {
		return nil, fmt.Errorf("category %s is not served by the tone registry", c)
	}

	var rows []Row
	if r.opts.UserDir != "" {
		rows = append(rows, scanDir(filepath.Join(r.opts.UserDir, folder))...)
	}
	for _, dir := range r.opts.Extra[c] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, scanDir(dir)...)
	}

	if r.opts.IncludeSystem {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, row := range r.systemTones() {
			if classifySystem(row.Title) == c {
				rows = append(rows, row)
			}
		}
	}

	return rows, ctx.Err()
}

// Title returns the display title of id. Default aliases report the title of the tone they resolve to.
func (r *FSRegistry) Title(ctx context.Context, id ID) (string, bool, error) {
	if c, ok := id.DefaultCategory(); ok {
		path, err := r.resolveDefault(ctx, c)
		if err != nil {
			return "", false, nil
		}
		return titleFromPath(path), true, nil
	}

	path, ok := id.FilePath()
	if !ok {
		return "", false, nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", false, nil
	}
	return titleFromPath(path), true, nil
}

// DefaultID returns the default alias of c.
func (r *FSRegistry) DefaultID(c Category) ID {
	return DefaultID(c)
}

// Resolve maps file identifiers and default aliases to a path on disk.
func (r *FSRegistry) Resolve(id ID) (string, error) {
	if c, ok := id.DefaultCategory(); ok {
		return r.resolveDefault(context.Background(), c)
	}
	path, ok := id.FilePath()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return path, nil
}

// resolveDefault returns the configured default ringtone, else the first tone of c.
func (r *FSRegistry) resolveDefault(ctx context.Context, c Category) (string, error) {
	if c == Ringtone && r.opts.DefaultRingtone != "" {
		if _, err := os.Stat(r.opts.DefaultRingtone); err == nil {
			return r.opts.DefaultRingtone, nil
		}
		logging.Warn("Configured default ringtone not found: %s", r.opts.DefaultRingtone)
	}

	rows, err := r.Tones(ctx, c)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: no default %s", ErrNotFound, c)
	}
	return rows[0].Path, nil
}

// classifySystem guesses the category of a system sound from its name.
func classifySystem(name string) Category {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "alarm"):
		return Alarm
	case strings.Contains(lower, "ring"), strings.Contains(lower, "phone"), strings.Contains(lower, "call"):
		return Ringtone
	default:
		return Notification
	}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// scanDir lists tone files directly inside dir, in directory order.
func scanDir(dir string) []Row {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Cannot read tone directory %s: %v", dir, err)
		}
		return nil
	}

	var rows []Row
	for _, e := range entries {
		if e.IsDir() || !toneExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		rows = append(rows, newRow(path, e))
	}
	return rows
}

func newRow(path string, d fs.DirEntry) Row {
	row := Row{
		Title: titleFromPath(path),
		ID:    FileID(path),
		Path:  path,
	}
	if info, err := d.Info(); err == nil {
		row.Size = info.Size()
	}
	return row
}

// systemTones scans platform-specific system sound directories.
func (r *FSRegistry) systemTones() []Row {
	if len(r.opts.SystemDirs) > 0 {
		var rows []Row
		for _, dir := range r.opts.SystemDirs {
			rows = append(rows, walkDir(dir, r.opts.MaxSystemDepth)...)
		}
		return rows
	}

	dir, recursive := systemSoundDir()
	switch {
	case dir == "":
		return nil
	case recursive:
		return walkDir(dir, r.opts.MaxSystemDepth)
	default:
		return scanDir(dir)
	}
}

// systemSoundDir returns the platform sound directory and whether it is walked recursively.
func systemSoundDir() (string, bool) {
	switch {
	case platform.IsMacOS():
		return "/System/Library/Sounds", false
	case platform.IsLinux():
		return "/usr/share/sounds", true
	case platform.IsWindows():
		sysRoot := os.Getenv("SYSTEMROOT")
		if sysRoot == "" {
			sysRoot = `C:\Windows`
		}
		return filepath.Join(sysRoot, "Media"), false
	default:
		return "", false
	}
}

// walkDir walks baseDir up to maxDepth levels for tone files.
func walkDir(baseDir string, maxDepth int) []Row {
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		return nil
	}

	var rows []Row
	baseDepth := strings.Count(filepath.Clean(baseDir), string(os.PathSeparator))

	_ = filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}

		currentDepth := strings.Count(path, string(os.PathSeparator)) - baseDepth
		if d.IsDir() {
			if currentDepth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !toneExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rows = append(rows, newRow(path, d))
		return nil
	})

	return rows
}

// ABOUTME: Tone categories, identifiers and entries shared by the picker packages.
// ABOUTME: Also defines the registry and music-store collaborators that tones are enumerated from.

package tones

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Category tags a kind of tone. Default and Silent are synthetic and never enumerated.
type Category int

const (
	Ringtone Category = iota + 1
	Alarm
	Notification
	Music
	Default
	Silent
)

var categoryNames = map[Category]string{
	Ringtone:     "ringtone",
	Alarm:        "alarm",
	Notification: "notification",
	Music:        "music",
	Default:      "default",
	Silent:       "silent",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Enumerable reports whether tones of this category come from a registry or the music store.
func (c Category) Enumerable() bool {
	switch c {
	case Ringtone, Alarm, Notification, Music:
		return true
	default:
		return false
	}
}

// ParseCategory parses a lowercase category name. "notifications", "alarms" and "ringtones" are accepted too.
func ParseCategory(s string) (Category, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown tone category %q", s)
}

// ID identifies a playable tone. The empty ID means silence.
type ID string

const (
	fileScheme    = "file://"
	mediaScheme   = "media://audio/"
	defaultScheme = "tone://default/"
)

// None is the null identifier used by the silent entry.
const None ID = ""

// IsNone reports whether id is the null identifier.
func (id ID) IsNone() bool { return id == None }

func (id ID) String() string { return string(id) }

// FileID returns the identifier for a tone stored at path.
func FileID(path string) ID {
	return ID(fileScheme + filepath.ToSlash(path))
}

// MediaID returns the identifier for a row of the music store.
func MediaID(rowID int64) ID {
	return ID(fmt.Sprintf("%s%d", mediaScheme, rowID))
}

// DefaultID returns the alias that stands for the system default tone of c.
func DefaultID(c Category) ID {
	return ID(defaultScheme + c.String())
}

// FilePath returns the path of a file identifier.
func (id ID) FilePath() (string, bool) {
	s := string(id)
	if !strings.HasPrefix(s, fileScheme) {
		return "", false
	}
	return filepath.FromSlash(strings.TrimPrefix(s, fileScheme)), true
}

// MediaRow returns the music store row of a media identifier.
func (id ID) MediaRow() (int64, bool) {
	s := string(id)
	if !strings.HasPrefix(s, mediaScheme) {
		return 0, false
	}
	var row int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(s, mediaScheme), "%d", &row); err != nil {
		return 0, false
	}
	return row, true
}

// DefaultCategory returns the category of a default alias.
func (id ID) DefaultCategory() (Category, bool) {
	s := string(id)
	if !strings.HasPrefix(s, defaultScheme) {
		return 0, false
	}
	c, err := ParseCategory(strings.TrimPrefix(s, defaultScheme))
	if err != nil {
		return 0, false
	}
	return c, true
}

// Entry is one selectable tone.
type Entry struct {
	Name string `json:"name"`
	ID   ID     `json:"id"`
}

// Row is one (title, identifier) pair as produced by a registry or music store.
type Row struct {
	Title string
	ID    ID
	Path  string
	Size  int64
}

var (
	// ErrNotFound is returned when an identifier does not resolve to a tone.
	ErrNotFound = errors.New("tone not found")
	// ErrStorageAccess is returned when the music category is used without read access to music storage.
	ErrStorageAccess = errors.New("storage read access is required for the music category")
)

// Registry is the platform tone registry.
type Registry interface {
	// Tones returns the tones of c in registry order.
	Tones(ctx context.Context, c Category) ([]Row, error)
	// Title looks up the display title of id.
	Title(ctx context.Context, id ID) (string, bool, error)
	// DefaultID returns the alias of the system default tone for c.
	DefaultID(c Category) ID
	// Resolve maps id to a playable file path.
	Resolve(id ID) (string, error)
}

// MusicStore is the locally stored music collection.
type MusicStore interface {
	// Tracks returns music rows ordered by title.
	Tracks(ctx context.Context) ([]Row, error)
	Title(ctx context.Context, id ID) (string, bool, error)
	Resolve(id ID) (string, error)
}

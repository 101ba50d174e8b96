package tones

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/777genius/tonepicker/internal/logging"
)

// StorageAccess reports whether the process may read the music storage.
type StorageAccess func() bool

// Source enumerates tones per category from a registry and an optional music store.
type Source struct {
	registry Registry
	music    MusicStore
	access   StorageAccess
}

// NewSource creates a Source. music and access may be nil when the music category is not used.
func NewSource(registry Registry, music MusicStore, access StorageAccess) *Source {
	return &Source{registry: registry, music: music, access: access}
}

// HasStorageAccess reports whether the music category may be enumerated.
func (s *Source) HasStorageAccess() bool {
	return s.music != nil && s.access != nil && s.access()
}

// CheckCategories verifies the preconditions of enumerating cats.
func (s *Source) CheckCategories(cats []Category) error {
	for _, c := range cats {
		if c == Music && !s.HasStorageAccess() {
			return ErrStorageAccess
		}
	}
	return nil
}

// DefaultID returns the system default identifier of c.
func (s *Source) DefaultID(c Category) ID {
	if s.registry == nil {
		return DefaultID(c)
	}
	return s.registry.DefaultID(c)
}

// Enumerate returns the tones of c as an ordered name -> identifier mapping.
// A repeated name keeps its first position and takes the last identifier.
// Failures are logged and yield an empty result.
func (s *Source) Enumerate(ctx context.Context, c Category) []Entry {
	var (
		rows []Row
		err  error
	)

	switch c {
	case Music:
		if !s.HasStorageAccess() {
			logging.Error("Music enumeration skipped: %v", ErrStorageAccess)
			return nil
		}
		rows, err = s.music.Tracks(ctx)
	case Ringtone, Alarm, Notification:
		if s.registry == nil {
			return nil
		}
		rows, err = s.registry.Tones(ctx, c)
	default:
		logging.Warn("Category %s cannot be enumerated", c)
		return nil
	}

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.Warn("Enumerating %s tones failed: %v", c, err)
		}
		return nil
	}

	return dedupe(rows)
}

func dedupe(rows []Row) []Entry {
	entries := make([]Entry, 0, len(rows))
	pos := make(map[string]int, len(rows))
	for _, row := range rows {
		if i, ok := pos[row.Title]; ok {
			entries[i].ID = row.ID
			continue
		}
		pos[row.Title] = len(entries)
		entries = append(entries, Entry{Name: row.Title, ID: row.ID})
	}
	return entries
}

// Title looks up the display title of id in the registry, then in the music store.
func (s *Source) Title(ctx context.Context, id ID) (string, bool) {
	if id.IsNone() {
		return "", false
	}

	if _, isMedia := id.MediaRow(); isMedia {
		if !s.HasStorageAccess() {
			return "", false
		}
		title, ok, err := s.music.Title(ctx, id)
		if err != nil {
			logging.Warn("Music title lookup for %s failed: %v", id, err)
			return "", false
		}
		return title, ok
	}

	if s.registry == nil {
		return "", false
	}
	title, ok, err := s.registry.Title(ctx, id)
	if err != nil {
		logging.Warn("Tone title lookup for %s failed: %v", id, err)
		return "", false
	}
	return title, ok
}

// Resolve maps id to a playable file path.
func (s *Source) Resolve(id ID) (string, error) {
	if _, isMedia := id.MediaRow(); isMedia {
		if s.music == nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return s.music.Resolve(id)
	}
	if s.registry == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.registry.Resolve(id)
}

// FindByName searches entries by name with 3-level matching:
// 1. Exact match
// 2. Case-insensitive match
// 3. Prefix match (case-insensitive)
// An identifier given as name matches its entry directly.
func FindByName(name string, entries []Entry) (Entry, bool) {
	for _, e := range entries {
		if string(e.ID) == name {
			return e, true
		}
	}

	nameLower := strings.ToLower(name)
	matchers := []func(Entry) bool{
		func(e Entry) bool { return e.Name == name },
		func(e Entry) bool { return strings.ToLower(e.Name) == nameLower },
		func(e Entry) bool { return strings.HasPrefix(strings.ToLower(e.Name), nameLower) },
	}

	for _, match := range matchers {
		for _, e := range entries {
			if match(e) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

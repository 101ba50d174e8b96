// Package selection assembles the ordered, name-unique list shown by the picker.
package selection

import (
	"context"

	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/tones"
)

// NotFound is returned by FindSelectedIndex when nothing matches.
const NotFound = -1

// Enumerator produces the tones of one category in order.
type Enumerator interface {
	Enumerate(ctx context.Context, c tones.Category) []tones.Entry
}

// Options controls the synthetic entries placed before enumerated tones.
type Options struct {
	ShowDefault  bool
	ShowSilent   bool
	DefaultLabel string
	SilentLabel  string
	DefaultID    tones.ID
}

// List is an ordered sequence of entries with unique display names.
type List struct {
	entries []tones.Entry
	pinned  int // leading synthetic entries
}

// Build enumerates categories in order and merges them after the optional
// Default and Silent entries. A name written twice moves to the position of
// its last write and takes its identifier.
func Build(ctx context.Context, src Enumerator, categories []tones.Category, opts Options) *List {
	l := &List{}

	if opts.ShowDefault {
		l.entries = append(l.entries, tones.Entry{Name: label(opts.DefaultLabel, "Default"), ID: opts.DefaultID})
	}
	if opts.ShowSilent {
		l.entries = append(l.entries, tones.Entry{Name: label(opts.SilentLabel, "Silent"), ID: tones.None})
	}
	l.pinned = len(l.entries)

	for _, c := range categories {
		if ctx.Err() != nil {
			return l
		}
		for _, e := range src.Enumerate(ctx, c) {
			l.put(e)
		}
	}
	return l
}

func label(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// put writes e with last-write-wins semantics. Synthetic entries are never replaced.
func (l *List) put(e tones.Entry) {
	for i, existing := range l.entries {
		if existing.Name != e.Name {
			continue
		}
		if i < l.pinned {
			logging.Debug("Dropping %q (%s): name is reserved for a synthetic entry", e.Name, e.ID)
			return
		}
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		break
	}
	l.entries = append(l.entries, e)
}

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

// At returns the entry at index i.
func (l *List) At(i int) tones.Entry { return l.entries[i] }

// Entries returns a copy of the entries.
func (l *List) Entries() []tones.Entry {
	return append([]tones.Entry(nil), l.entries...)
}

// Names returns the display names in order.
func (l *List) Names() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Name
	}
	return names
}

// FindSelectedIndex returns the first index whose identifier equals id, or NotFound.
// The null identifier never matches, so a silent entry is not preselected.
func (l *List) FindSelectedIndex(id tones.ID) int {
	if id.IsNone() {
		return NotFound
	}
	for i, e := range l.entries {
		if e.ID.String() == id.String() {
			return i
		}
	}
	return NotFound
}

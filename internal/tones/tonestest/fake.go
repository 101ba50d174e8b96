// Package tonestest provides in-memory tone registries for tests.
package tonestest

import (
	"context"
	"fmt"
	"sync"

	"github.com/777genius/tonepicker/internal/tones"
)

// Registry is an in-memory tones.Registry.
type Registry struct {
	mu      sync.Mutex
	rows    map[tones.Category][]tones.Row
	errs    map[tones.Category]error
	paths   map[tones.ID]string
	calls   []tones.Category
	block   chan struct{}
	Default tones.ID
}

// NewRegistry returns an empty registry. Its default ringtone alias is tones.DefaultID(tones.Ringtone).
func NewRegistry() *Registry {
	return &Registry{
		rows:    make(map[tones.Category][]tones.Row),
		errs:    make(map[tones.Category]error),
		paths:   make(map[tones.ID]string),
		Default: tones.DefaultID(tones.Ringtone),
	}
}

// Add appends a tone to category c and returns its identifier.
func (r *Registry) Add(c tones.Category, title string, id tones.ID) tones.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c] = append(r.rows[c], tones.Row{Title: title, ID: id, Path: "/tones/" + string(id)})
	r.paths[id] = "/tones/" + string(id)
	return id
}

// Fail makes Tones(c) return err.
func (r *Registry) Fail(c tones.Category, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[c] = err
}

// Block makes every Tones call wait until the returned function is called or the context ends.
func (r *Registry) Block() (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.block = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns the categories enumerated so far, in call order.
func (r *Registry) Calls() []tones.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tones.Category(nil), r.calls...)
}

func (r *Registry) Tones(ctx context.Context, c tones.Category) ([]tones.Row, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	block := r.block
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[c]; err != nil {
		return nil, err
	}
	return append([]tones.Row(nil), r.rows[c]...), nil
}

func (r *Registry) Title(_ context.Context, id tones.ID) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rows := range r.rows {
		for _, row := range rows {
			if row.ID == id {
				return row.Title, true, nil
			}
		}
	}
	if id == r.Default {
		return "Default ringtone", true, nil
	}
	return "", false, nil
}

func (r *Registry) DefaultID(tones.Category) tones.ID {
	return r.Default
}

func (r *Registry) Resolve(id tones.ID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.paths[id]; ok {
		return p, nil
	}
	if id == r.Default {
		return "/tones/default", nil
	}
	return "", fmt.Errorf("%w: %s", tones.ErrNotFound, id)
}

// Music is an in-memory tones.MusicStore. Tracks are returned in insertion order,
// so callers add them already sorted by title.
type Music struct {
	mu   sync.Mutex
	rows []tones.Row
	err  error
}

func NewMusic() *Music {
	return &Music{}
}

// Add appends a track and returns its media identifier.
func (m *Music) Add(title string) tones.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := tones.MediaID(int64(len(m.rows) + 1))
	m.rows = append(m.rows, tones.Row{Title: title, ID: id, Path: "/music/" + title + ".mp3"})
	return id
}

func (m *Music) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Music) Tracks(context.Context) ([]tones.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]tones.Row(nil), m.rows...), nil
}

func (m *Music) Title(_ context.Context, id tones.ID) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return row.Title, true, nil
		}
	}
	return "", false, nil
}

func (m *Music) Resolve(id tones.ID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return row.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", tones.ErrNotFound, id)
}

// Granted is a tones.StorageAccess that always allows access.
func Granted() bool { return true }

// Denied is a tones.StorageAccess that never allows access.
func Denied() bool { return false }

// ABOUTME: Picker session state machine: Configuring -> Loading -> Ready -> Closed.
// ABOUTME: Owns the background enumeration, the selection list and the preview player.

package picker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/777genius/tonepicker/internal/errorhandler"
	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/preview"
	"github.com/777genius/tonepicker/internal/selection"
	"github.com/777genius/tonepicker/internal/sessionname"
	"github.com/777genius/tonepicker/internal/tones"
)

var (
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("picker session is closed")
	// ErrNotReady is returned when an operation needs the Ready state.
	ErrNotReady = errors.New("picker session is not ready")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("picker session already started")
)

// State is the lifecycle state of a session.
type State int

const (
	Configuring State = iota
	Loading
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source is what a session needs from the tone source. *tones.Source implements it.
type Source interface {
	selection.Enumerator
	DefaultID(c tones.Category) tones.ID
	Title(ctx context.Context, id tones.ID) (string, bool)
	Resolve(id tones.ID) (string, error)
	CheckCategories(cats []tones.Category) error
}

// Deps are the collaborators of a session.
type Deps struct {
	Source Source
	// Engine plays previews. Nil disables previewing.
	Engine preview.Engine
}

// Snapshot is the Ready view of a session.
type Snapshot struct {
	Entries []tones.Entry
	// SelectedIndex is the highlighted entry or selection.NotFound.
	SelectedIndex int
}

type loadResult struct {
	list  *selection.List
	title string
	found bool
}

// Session is one picker dialog.
type Session struct {
	id   uuid.UUID
	name string
	req  Request
	src  Source

	player *preview.Player

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	loadCtx context.Context
	done    chan struct{}
	closed  chan struct{}
	loaded  *loadResult
	list    *selection.List
	index   int
	current *Result
}

// NewSession validates req and returns a session in the Configuring state.
// Invalid requests fail with a *ConfigError.
func NewSession(req Request, deps Deps) (*Session, error) {
	if err := req.validate(deps.Source); err != nil {
		logging.Error("Picker request rejected: %v", err)
		return nil, err
	}

	id, name := sessionname.New()
	s := &Session{
		id:     id,
		name:   name,
		req:    req.clone(),
		src:    deps.Source,
		state:  Configuring,
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		index:  selection.NotFound,
	}
	if deps.Engine != nil {
		s.player = preview.NewPlayer(deps.Engine, deps.Source.Resolve)
	}
	return s, nil
}

// ID returns the session UUID.
func (s *Session) ID() uuid.UUID { return s.id }

// Name returns the friendly session name used in logs.
func (s *Session) Name() string { return s.name }

// Request returns a copy of the session's request.
func (s *Session) Request() Request { return s.req.clone() }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves the session to Loading and enumerates the requested categories in the background.
// Cancelling ctx or closing the session abandons the enumeration; a cancelled
// ctx closes the session on the next Wait.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Closed:
		return ErrClosed
	case Configuring:
	default:
		return ErrStarted
	}

	s.loadCtx, s.cancel = context.WithCancel(ctx)
	s.state = Loading
	logging.Info("Picker %s: loading %v", s.name, s.req.Categories)

	loadCtx := s.loadCtx
	errorhandler.SafeGo(func() {
		defer close(s.done)
		s.load(loadCtx)
	})
	return nil
}

func (s *Session) load(ctx context.Context) {
	list := selection.Build(ctx, s.src, s.req.Categories, selection.Options{
		ShowDefault:  s.req.ShowDefault,
		ShowSilent:   s.req.ShowSilent,
		DefaultLabel: s.req.DefaultLabel,
		SilentLabel:  s.req.SilentLabel,
		DefaultID:    s.src.DefaultID(tones.Ringtone),
	})

	res := &loadResult{list: list}
	if !s.req.Current.IsNone() {
		res.title, res.found = s.src.Title(ctx, s.req.Current)
	}

	s.mu.Lock()
	s.loaded = res
	s.mu.Unlock()
}

// Wait blocks until loading completes and returns the Ready snapshot.
// A session closed while loading discards the enumeration and returns ErrClosed.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case Configuring:
		return Snapshot{}, ErrNotReady
	case Closed:
		return Snapshot{}, ErrClosed
	}

	select {
	case <-s.done:
	case <-s.closed:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == Loading && s.loadCtx.Err() != nil {
			s.teardownLocked("cancelled")
			return Snapshot{}, ErrClosed
		}
		return Snapshot{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked()
}

// mergeLocked is the single completion point of the enumeration.
func (s *Session) mergeLocked() (Snapshot, error) {
	switch s.state {
	case Closed:
		return Snapshot{}, ErrClosed
	case Ready:
		return s.snapshotLocked(), nil
	}

	if s.loadCtx.Err() != nil {
		logging.Debug("Picker %s: enumeration cancelled, result discarded", s.name)
		s.teardownLocked("cancelled")
		return Snapshot{}, ErrClosed
	}

	if s.loaded == nil || s.loaded.list == nil {
		// enumeration panicked; show what there is
		logging.Warn("Picker %s: enumeration produced no list", s.name)
		s.list = selection.Build(s.loadCtx, emptyEnumerator{}, nil, selection.Options{
			ShowDefault:  s.req.ShowDefault,
			ShowSilent:   s.req.ShowSilent,
			DefaultLabel: s.req.DefaultLabel,
			SilentLabel:  s.req.SilentLabel,
			DefaultID:    s.src.DefaultID(tones.Ringtone),
		})
	} else {
		s.list = s.loaded.list
	}

	s.index = selection.NotFound
	if !s.req.Current.IsNone() {
		if s.loaded != nil && s.loaded.found {
			s.current = &Result{Name: s.loaded.title, ID: s.req.Current}
			s.index = s.list.FindSelectedIndex(s.req.Current)
		} else {
			logging.Info("Picker %s: no title for %s, clearing pre-selection", s.name, s.req.Current)
		}
	}

	s.state = Ready
	logging.Info("Picker %s: ready with %d entries (selected %d)", s.name, s.list.Len(), s.index)
	return s.snapshotLocked(), nil
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{Entries: s.list.Entries(), SelectedIndex: s.index}
}

// Select records entry i as the current selection and previews it when the
// request asks for it. A preview failure is returned but the selection stays.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		return err
	}
	if i < 0 || i >= s.list.Len() {
		return fmt.Errorf("selection index %d out of range [0, %d)", i, s.list.Len())
	}

	e := s.list.At(i)
	s.index = i
	s.current = &Result{Name: e.Name, ID: e.ID}
	logging.Debug("Picker %s: selected %q (%s)", s.name, e.Name, e.ID)

	if !s.req.PreviewOnSelect || s.player == nil {
		return nil
	}
	if err := s.player.Preview(e.ID); err != nil {
		logging.Warn("Picker %s: %v", s.name, err)
		return err
	}
	return nil
}

// Selection returns the current selection, if any.
func (s *Session) Selection() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

func (s *Session) readyLocked() error {
	switch s.state {
	case Ready:
		return nil
	case Closed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

// Confirm closes the session and reports the current selection to the
// listener. Without a selection the session closes silently.
func (s *Session) Confirm() (Result, bool, error) {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return Result{}, false, err
	}
	s.teardownLocked("confirmed")
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return Result{}, false, nil
	}
	s.req.Listener(current.Name, current.ID)
	return *current, true, nil
}

// Cancel closes the session without reporting anything.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return ErrClosed
	}
	s.teardownLocked("cancelled")
	return nil
}

// Close tears the session down from any state. It cancels a running
// enumeration and releases the preview player. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Closed {
		s.teardownLocked("closed")
	}
	return nil
}

func (s *Session) teardownLocked(reason string) {
	s.state = Closed
	if s.cancel != nil {
		s.cancel()
	}
	close(s.closed)

	if s.player != nil {
		if err := s.player.Release(); err != nil {
			logging.Warn("Picker %s: releasing preview: %v", s.name, err)
		}
	}
	logging.Info("Picker %s: %s", s.name, reason)
}

type emptyEnumerator struct{}

func (emptyEnumerator) Enumerate(context.Context, tones.Category) []tones.Entry { return nil }

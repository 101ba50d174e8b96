// ABOUTME: Single-voice preview of tones on top of a playback engine.
// ABOUTME: Each preview stops and resets the previous one; failures are reported but never fatal.

package preview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/tones"
)

// ErrReleased is wrapped by previews attempted after Release.
var ErrReleased = errors.New("preview player released")

// Engine is a playback engine with an explicit lifecycle.
// internal/audio.Player implements it.
type Engine interface {
	SetSource(path string) error
	Prepare() error
	Start() error
	Stop() error
	Reset()
	Release() error
	IsPlaying() bool
}

// Resolver maps an identifier to a playable file path.
type Resolver func(id tones.ID) (string, error)

// Error is a failed preview attempt. It does not end the picker session.
type Error struct {
	ID  tones.ID
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preview %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Player previews one tone at a time.
type Player struct {
	engine  Engine
	resolve Resolver

	mu       sync.Mutex
	released bool
	once     sync.Once
}

// NewPlayer creates a Player. The Player takes ownership of engine.
func NewPlayer(engine Engine, resolve Resolver) *Player {
	return &Player{engine: engine, resolve: resolve}
}

// Preview stops any current playback and starts id. The null identifier
// only stops what is playing.
func (p *Player) Preview(id tones.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return &Error{ID: id, Op: "preview", Err: ErrReleased}
	}

	p.halt()
	if id.IsNone() {
		return nil
	}

	if err := p.start(id); err != nil {
		p.engine.Reset()
		logging.Warn("Preview of %s failed: %v", id, err)
		return err
	}
	logging.Debug("Previewing %s", id)
	return nil
}

func (p *Player) start(id tones.ID) error {
	path, err := p.resolve(id)
	if err != nil {
		return &Error{ID: id, Op: "resolve", Err: err}
	}
	if err := p.engine.SetSource(path); err != nil {
		return &Error{ID: id, Op: "set source", Err: err}
	}
	if err := p.engine.Prepare(); err != nil {
		return &Error{ID: id, Op: "prepare", Err: err}
	}
	if err := p.engine.Start(); err != nil {
		return &Error{ID: id, Op: "start", Err: err}
	}
	return nil
}

// halt stops a running playback and returns the engine to idle.
func (p *Player) halt() {
	if p.engine.IsPlaying() {
		if err := p.engine.Stop(); err != nil {
			logging.Warn("Stopping preview: %v", err)
		}
	}
	p.engine.Reset()
}

// Release stops playback and frees the engine. Only the first call has an effect.
func (p *Player) Release() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.released = true

		if p.engine.IsPlaying() {
			if stopErr := p.engine.Stop(); stopErr != nil {
				logging.Warn("Stopping preview on release: %v", stopErr)
			}
		}
		err = p.engine.Release()
	})
	return err
}

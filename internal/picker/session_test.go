package picker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/777genius/tonepicker/internal/preview"
	"github.com/777genius/tonepicker/internal/selection"
	"github.com/777genius/tonepicker/internal/tones"
	"github.com/777genius/tonepicker/internal/tones/tonestest"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	playing bool
	failOn  string
}

func (e *fakeEngine) record(op string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, op)
	if e.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (e *fakeEngine) SetSource(string) error { return e.record("set-source") }
func (e *fakeEngine) Prepare() error         { return e.record("prepare") }

func (e *fakeEngine) Start() error {
	if err := e.record("start"); err != nil {
		return err
	}
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	return e.record("stop")
}

func (e *fakeEngine) Reset() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	_ = e.record("reset")
}

func (e *fakeEngine) Release() error { return e.record("release") }

func (e *fakeEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeEngine) count(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == op {
			n++
		}
	}
	return n
}

type recorder struct {
	mu    sync.Mutex
	calls []Result
}

func (r *recorder) listen(name string, id tones.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Result{Name: name, ID: id})
}

func (r *recorder) results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.calls...)
}

var (
	id1 = tones.FileID("/tones/ringtones/a.ogg")
	id2 = tones.FileID("/tones/ringtones/b.ogg")
	id3 = tones.FileID("/tones/alarms/x.ogg")
)

func baseRequest(rec *recorder, cats ...tones.Category) Request {
	return Request{
		Categories:   cats,
		Title:        "Pick a tone",
		PositiveText: "OK",
		NegativeText: "Cancel",
		Listener:     rec.listen,
	}
}

func newRegistry() *tonestest.Registry {
	reg := tonestest.NewRegistry()
	reg.Add(tones.Ringtone, "Tone A", id1)
	reg.Add(tones.Ringtone, "Tone B", id2)
	reg.Add(tones.Alarm, "Alarm X", id3)
	return reg
}

func startReady(t *testing.T, req Request, deps Deps) (*Session, Snapshot) {
	t.Helper()
	s, err := NewSession(req, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Ready, s.State())
	return s, snap
}

func TestScenarioSingleCategory(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	_, snap := startReady(t, baseRequest(rec, tones.Ringtone), Deps{Source: src})

	assert.Equal(t, []tones.Entry{
		{Name: "Tone A", ID: id1},
		{Name: "Tone B", ID: id2},
	}, snap.Entries)
	assert.Equal(t, selection.NotFound, snap.SelectedIndex)
}

func TestScenarioDefaultAndSilent(t *testing.T) {
	rec := &recorder{}
	reg := newRegistry()
	src := tones.NewSource(reg, nil, nil)

	req := baseRequest(rec, tones.Alarm)
	req.ShowDefault = true
	req.ShowSilent = true

	_, snap := startReady(t, req, Deps{Source: src})

	assert.Equal(t, []tones.Entry{
		{Name: "Default", ID: reg.Default},
		{Name: "Silent", ID: tones.None},
		{Name: "Alarm X", ID: id3},
	}, snap.Entries)
}

func TestScenarioPreselection(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	req := baseRequest(rec, tones.Ringtone)
	req.Current = id2

	s, snap := startReady(t, req, Deps{Source: src})
	assert.Equal(t, 1, snap.SelectedIndex)

	// confirming without clicking reports the pre-selected tone
	res, ok, err := s.Confirm()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Result{Name: "Tone B", ID: id2}, res)
	assert.Equal(t, []Result{{Name: "Tone B", ID: id2}}, rec.results())
}

func TestScenarioSilentPreviewAndConfirm(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	src := tones.NewSource(newRegistry(), nil, nil)

	req := baseRequest(rec, tones.Ringtone)
	req.ShowDefault = true
	req.ShowSilent = true
	req.PreviewOnSelect = true

	s, snap := startReady(t, req, Deps{Source: src, Engine: engine})
	require.Equal(t, "Silent", snap.Entries[1].Name)

	require.NoError(t, s.Select(1))
	assert.Zero(t, engine.count("start"), "silent must not start playback")

	res, ok, err := s.Confirm()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Result{Name: "Silent", ID: tones.None}, res)
	assert.Equal(t, []Result{{Name: "Silent", ID: tones.None}}, rec.results())
}

func TestScenarioMusicWithoutStorageAccess(t *testing.T) {
	rec := &recorder{}
	music := tonestest.NewMusic()
	music.Add("Song")
	src := tones.NewSource(newRegistry(), music, tonestest.Denied)

	s, err := NewSession(baseRequest(rec, tones.Ringtone, tones.Music), Deps{Source: src})

	require.Error(t, err)
	assert.Nil(t, s)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, tones.ErrStorageAccess)
}

func TestMusicWithStorageAccess(t *testing.T) {
	rec := &recorder{}
	music := tonestest.NewMusic()
	song := music.Add("Song")
	src := tones.NewSource(newRegistry(), music, tonestest.Granted)

	_, snap := startReady(t, baseRequest(rec, tones.Music), Deps{Source: src})

	assert.Equal(t, []tones.Entry{{Name: "Song", ID: song}}, snap.Entries)
}

func TestNewSessionValidation(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	tests := []struct {
		name   string
		mutate func(*Request)
		deps   Deps
		field  string
	}{
		{"no categories", func(r *Request) { r.Categories = nil }, Deps{Source: src}, "categories"},
		{"synthetic category", func(r *Request) { r.Categories = []tones.Category{tones.Silent} }, Deps{Source: src}, "categories"},
		{"no title", func(r *Request) { r.Title = "" }, Deps{Source: src}, "title"},
		{"no positive text", func(r *Request) { r.PositiveText = "" }, Deps{Source: src}, "positive text"},
		{"no negative text", func(r *Request) { r.NegativeText = "" }, Deps{Source: src}, "negative text"},
		{"no listener", func(r *Request) { r.Listener = nil }, Deps{Source: src}, "listener"},
		{"no source", func(r *Request) {}, Deps{}, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest(rec, tones.Ringtone)
			tt.mutate(&req)

			_, err := NewSession(req, tt.deps)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestRequestCopiedAtConstruction(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)
	req := baseRequest(rec, tones.Ringtone)

	s, err := NewSession(req, Deps{Source: src})
	require.NoError(t, err)
	defer s.Close()

	req.Categories[0] = tones.Alarm
	assert.Equal(t, []tones.Category{tones.Ringtone}, s.Request().Categories)
	assert.Equal(t, Configuring, s.State())
	assert.NotEmpty(t, s.Name())
}

func TestTeardownWhileLoading(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	reg := newRegistry()
	release := reg.Block()
	defer release()

	src := tones.NewSource(reg, nil, nil)
	s, err := NewSession(baseRequest(rec, tones.Ringtone), Deps{Source: src, Engine: engine})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, Loading, s.State())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, Closed, s.State())
	assert.Empty(t, rec.results())
	assert.Equal(t, 1, engine.count("release"))
}

func TestEnumerationFinishingAfterCloseIsDiscarded(t *testing.T) {
	rec := &recorder{}
	reg := newRegistry()
	release := reg.Block()

	src := tones.NewSource(reg, nil, nil)
	s, err := NewSession(baseRequest(rec, tones.Ringtone), Deps{Source: src})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Close())
	release()

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("enumeration did not finish")
	}

	s.mu.Lock()
	_, err = s.mergeLocked()
	s.mu.Unlock()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, s.list)
}

func TestStartContextCancelledClosesSession(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	reg := newRegistry()
	release := reg.Block()
	defer release()

	src := tones.NewSource(reg, nil, nil)
	s, err := NewSession(baseRequest(rec, tones.Ringtone), Deps{Source: src, Engine: engine})
	require.NoError(t, err)

	parent, cancelParent := context.WithCancel(context.Background())
	require.NoError(t, s.Start(parent))
	cancelParent()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, Closed, s.State())
	assert.Equal(t, 1, engine.count("release"))
	assert.Empty(t, rec.results())
	assert.ErrorIs(t, s.Select(0), ErrClosed)
}

func TestWaitOnCancelledStartContextClosesSession(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	reg := newRegistry()
	release := reg.Block()
	defer release()

	src := tones.NewSource(reg, nil, nil)
	s, err := NewSession(baseRequest(rec, tones.Ringtone), Deps{Source: src, Engine: engine})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	_, err = s.Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, 1, engine.count("release"))
}

func TestCancel(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	src := tones.NewSource(newRegistry(), nil, nil)

	req := baseRequest(rec, tones.Ringtone)
	req.PreviewOnSelect = true

	s, _ := startReady(t, req, Deps{Source: src, Engine: engine})
	require.NoError(t, s.Select(0))
	assert.True(t, engine.IsPlaying())

	require.NoError(t, s.Cancel())

	assert.Empty(t, rec.results())
	assert.False(t, engine.IsPlaying())
	assert.Equal(t, 1, engine.count("release"))

	assert.ErrorIs(t, s.Cancel(), ErrClosed)
	assert.ErrorIs(t, s.Select(0), ErrClosed)
	_, _, err := s.Confirm()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Start(context.Background()), ErrClosed)
}

func TestSelectSilentStopsRunningPreview(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	src := tones.NewSource(newRegistry(), nil, nil)

	req := baseRequest(rec, tones.Ringtone)
	req.ShowSilent = true
	req.PreviewOnSelect = true

	s, snap := startReady(t, req, Deps{Source: src, Engine: engine})
	require.Equal(t, "Silent", snap.Entries[0].Name)
	require.Equal(t, "Tone A", snap.Entries[1].Name)

	require.NoError(t, s.Select(1))
	require.True(t, engine.IsPlaying())

	require.NoError(t, s.Select(0))
	assert.False(t, engine.IsPlaying())
	assert.Equal(t, 1, engine.count("start"))

	res, ok := s.Selection()
	assert.True(t, ok)
	assert.Equal(t, Result{Name: "Silent", ID: tones.None}, res)
}

func TestConfirmReportsOnce(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	s, _ := startReady(t, baseRequest(rec, tones.Ringtone), Deps{Source: src})
	require.NoError(t, s.Select(0))

	_, ok, err := s.Confirm()
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = s.Confirm()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []Result{{Name: "Tone A", ID: id1}}, rec.results())
}

func TestConfirmWithoutSelection(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	s, _ := startReady(t, baseRequest(rec, tones.Ringtone), Deps{Source: src})

	_, ok, err := s.Confirm()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.results())
	assert.Equal(t, Closed, s.State())
}

func TestPreselectionWithoutTitleIsCleared(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	req := baseRequest(rec, tones.Ringtone)
	req.Current = tones.FileID("/nowhere/gone.ogg")

	s, snap := startReady(t, req, Deps{Source: src})
	assert.Equal(t, selection.NotFound, snap.SelectedIndex)

	_, ok := s.Selection()
	assert.False(t, ok)
}

func TestPreselectionOutsideListStillReported(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	// Alarm X exists but only ringtones are listed
	req := baseRequest(rec, tones.Ringtone)
	req.Current = id3

	s, snap := startReady(t, req, Deps{Source: src})
	assert.Equal(t, selection.NotFound, snap.SelectedIndex)

	res, ok, err := s.Confirm()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Result{Name: "Alarm X", ID: id3}, res)
}

func TestSelectPreviewFailureKeepsSelection(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{failOn: "prepare"}
	src := tones.NewSource(newRegistry(), nil, nil)

	req := baseRequest(rec, tones.Ringtone)
	req.PreviewOnSelect = true

	s, _ := startReady(t, req, Deps{Source: src, Engine: engine})

	err := s.Select(1)
	var perr *preview.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "prepare", perr.Op)

	sel, ok := s.Selection()
	require.True(t, ok)
	assert.Equal(t, Result{Name: "Tone B", ID: id2}, sel)
	assert.Equal(t, Ready, s.State())

	res, ok, err := s.Confirm()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id2, res.ID)
}

func TestSelectWithoutPreviewFlag(t *testing.T) {
	rec := &recorder{}
	engine := &fakeEngine{}
	src := tones.NewSource(newRegistry(), nil, nil)

	s, _ := startReady(t, baseRequest(rec, tones.Ringtone), Deps{Source: src, Engine: engine})

	require.NoError(t, s.Select(0))
	assert.Zero(t, engine.count("start"))
}

func TestSelectOutOfRange(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	s, _ := startReady(t, baseRequest(rec, tones.Ringtone), Deps{Source: src})

	assert.Error(t, s.Select(-1))
	assert.Error(t, s.Select(2))
	_, ok := s.Selection()
	assert.False(t, ok)
}

func TestOperationsBeforeReady(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	s, err := NewSession(baseRequest(rec, tones.Ringtone), Deps{Source: src})
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Select(0), ErrNotReady)
	_, _, err = s.Confirm()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = s.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrStarted)
}

func TestFailingCategoryDoesNotStopOthers(t *testing.T) {
	rec := &recorder{}
	reg := newRegistry()
	reg.Fail(tones.Alarm, errors.New("registry unreachable"))
	src := tones.NewSource(reg, nil, nil)

	_, snap := startReady(t, baseRequest(rec, tones.Alarm, tones.Ringtone), Deps{Source: src})

	assert.Len(t, snap.Entries, 2)
}

func TestEmptyRegistryRendersEmptyList(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(tonestest.NewRegistry(), nil, nil)

	_, snap := startReady(t, baseRequest(rec, tones.Notification), Deps{Source: src})

	assert.Empty(t, snap.Entries)
	assert.Equal(t, selection.NotFound, snap.SelectedIndex)
}

func TestWaitIsRepeatable(t *testing.T) {
	rec := &recorder{}
	src := tones.NewSource(newRegistry(), nil, nil)

	s, first := startReady(t, baseRequest(rec, tones.Ringtone), Deps{Source: src})
	require.NoError(t, s.Select(1))

	second, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, 1, second.SelectedIndex)
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "title", Err: errors.New("missing")}
	assert.Equal(t, "picker config: title: missing", err.Error())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "configuring", Configuring.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "closed", Closed.String())
}

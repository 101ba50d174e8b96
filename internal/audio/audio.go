// ABOUTME: Audio output through miniaudio (malgo) with beep and go-audio decoders.
// ABOUTME: Supports MP3, WAV, OGG/Vorbis, FLAC and AIFF; device selection and volume scaling.

package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/777genius/tonepicker/internal/logging"
)

// ErrClosed is returned by operations on a closed player.
var ErrClosed = errors.New("audio player is closed")

// Device describes a playback device.
type Device struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Player plays audio files on one output device. It follows a
// set-source / prepare / start / stop / reset / release lifecycle.
type Player struct {
	ctx        *malgo.AllocatedContext
	deviceName string
	deviceID   *malgo.DeviceID
	volume     float64

	mu      sync.Mutex
	source  string
	pcm     *pcmData
	device  *malgo.Device
	stream  *stream
	playing bool
}

// pcmData is interleaved signed 16-bit little-endian PCM.
type pcmData struct {
	data       []byte
	channels   int
	sampleRate int
}

// stream is read from the audio thread; it has its own lock so that
// stopping the device never waits on a callback blocked by the player lock.
type stream struct {
	mu       sync.Mutex
	data     []byte
	pos      int
	done     chan struct{}
	finished bool
}

func newStream(data []byte) *stream {
	return &stream{data: data, done: make(chan struct{})}
}

func (s *stream) read(out []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(out, s.data[s.pos:])
	s.pos += n
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if s.pos >= len(s.data) && !s.finished {
		s.finished = true
		close(s.done)
	}
}

func (s *stream) isFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func initContext() (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logging.Debug("miniaudio: %s", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	return ctx, nil
}

func freeContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

// ListDevices returns the available playback devices.
func ListDevices() ([]Device, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}
	defer freeContext(ctx)

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// NewPlayer creates a player on the named device (empty = system default) at volume 0.0-1.0.
func NewPlayer(deviceName string, volume float64) (*Player, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}

	p := &Player{
		ctx:        ctx,
		deviceName: deviceName,
		volume:     volume,
	}

	if deviceName != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			freeContext(ctx)
			return nil, fmt.Errorf("failed to list playback devices: %w", err)
		}
		for _, info := range infos {
			if info.Name() == deviceName {
				id := info.ID
				p.deviceID = &id
				break
			}
		}
		if p.deviceID == nil {
			freeContext(ctx)
			return nil, fmt.Errorf("audio device not found: %s", deviceName)
		}
	}

	return p, nil
}

// SetSource selects the file played by the next Prepare/Start.
func (p *Player) SetSource(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return ErrClosed
	}
	if p.device != nil {
		return errors.New("player must be reset before setting a new source")
	}
	p.source = path
	p.pcm = nil
	return nil
}

// Prepare decodes the source and opens the output device.
func (p *Player) Prepare() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return ErrClosed
	}
	if p.source == "" {
		return errors.New("no source set")
	}
	if p.device != nil {
		return errors.New("player is already prepared")
	}

	pcm, err := decodeFile(p.source, p.volume)
	if err != nil {
		return err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(pcm.channels)
	cfg.SampleRate = uint32(pcm.sampleRate)
	cfg.Alsa.NoMMap = 1
	if p.deviceID != nil {
		cfg.Playback.DeviceID = p.deviceID.Pointer()
	}

	s := newStream(pcm.data)
	device, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			s.read(out)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	p.pcm = pcm
	p.stream = s
	p.device = device
	return nil
}

// Start begins playback of the prepared source and returns immediately.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return ErrClosed
	}
	if p.device == nil {
		return errors.New("player is not prepared")
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	p.playing = true
	return nil
}

// IsPlaying reports whether a started source still has audio left.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && p.stream != nil && !p.stream.isFinished()
}

// Stop halts playback. The source stays prepared.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	if p.device == nil || !p.playing {
		return nil
	}
	p.playing = false
	if err := p.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// Reset stops playback and frees the device, returning the player to its idle state.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Player) resetLocked() {
	if err := p.stopLocked(); err != nil {
		logging.Warn("Audio reset: %v", err)
	}
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.stream = nil
	p.pcm = nil
	p.source = ""
}

// Play plays path to completion.
func (p *Player) Play(path string) error {
	p.Reset()
	if err := p.SetSource(path); err != nil {
		return err
	}
	if err := p.Prepare(); err != nil {
		return err
	}

	p.mu.Lock()
	done := p.stream.done
	p.mu.Unlock()

	if err := p.Start(); err != nil {
		p.Reset()
		return err
	}

	<-done
	p.Reset()
	return nil
}

// Release is Close under the engine lifecycle name.
func (p *Player) Release() error {
	return p.Close()
}

// Close releases the device and the audio context. Safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
	if p.ctx == nil {
		return nil
	}
	freeContext(p.ctx)
	p.ctx = nil
	return nil
}

// decodeFile decodes path into PCM scaled by volume.
func decodeFile(path string, volume float64) (*pcmData, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".aiff", ".aif":
		return decodeAIFF(path, volume)
	case ".mp3", ".wav", ".ogg", ".oga", ".flac":
		return decodeBeep(path, ext, volume)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
}

func decodeBeep(path, ext string, volume float64) (*pcmData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	defer streamer.Close()

	samples, err := streamToSamples(streamer, volume)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return &pcmData{
		data:       samplesToBytes(samples),
		channels:   2,
		sampleRate: int(format.SampleRate),
	}, nil
}

// streamToSamples drains a beep streamer into interleaved stereo int16 samples.
func streamToSamples(s beep.Streamer, volume float64) ([]int16, error) {
	buf := make([][2]float64, 1024)
	var samples []int16
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, floatToInt16(buf[i][0]*volume), floatToInt16(buf[i][1]*volume))
		}
		if !ok {
			break
		}
	}
	return samples, s.Err()
}

func floatToInt16(v float64) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	default:
		return int16(v * 32767)
	}
}

func decodeAIFF(path string, volume float64) (*pcmData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid AIFF file: %s", filepath.Base(path))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	d = aiff.NewDecoder(f)

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	samples := intBufferToSamples(buf, int(d.BitDepth))
	applyVolume(samples, volume)

	return &pcmData{
		data:       samplesToBytes(samples),
		channels:   int(d.NumChans),
		sampleRate: int(d.SampleRate),
	}, nil
}

// intBufferToSamples converts integer PCM of the given bit depth to 16-bit samples.
// Unknown depths are treated as 16-bit.
func intBufferToSamples(buf *audio.IntBuffer, bitDepth int) []int16 {
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch bitDepth {
		case 8:
			samples[i] = int16(v << 8)
		case 24:
			samples[i] = int16(v >> 8)
		case 32:
			samples[i] = int16(v >> 16)
		default:
			samples[i] = int16(v)
		}
	}
	return samples
}

func applyVolume(samples []int16, volume float64) {
	if volume >= 1.0 {
		return
	}
	for i, s := range samples {
		samples[i] = int16(float64(s) * volume)
	}
}

// samplesToBytes encodes samples as little-endian bytes.
func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

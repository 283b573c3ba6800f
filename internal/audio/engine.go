// Package audio owns the output device and the single queue that feeds it.
//
// The Engine is driven from one goroutine (the run loop). The device pulls
// samples from the Sink on its own goroutine; the Sink's mutex is the only
// point the two meet.
package audio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/catalog"
)

// DefaultResampleQuality is the beep resampler quality used when the track
// and device rates differ
const DefaultResampleQuality = 4

// PlaybackState is a point-in-time view of the engine. Loaded is the catalog
// index of the loaded track, or -1 when nothing has been loaded.
type PlaybackState struct {
	Paused bool `json:"paused"`
	Loaded int  `json:"loaded"`
}

// Idle reports whether no track has been loaded yet
func (s PlaybackState) Idle() bool {
	return s.Loaded < 0
}

// Engine loads tracks into the sink and applies transport commands
type Engine struct {
	sink    *Sink
	decoder Decoder
	quality int
	log     *zap.Logger

	track  catalog.Track
	loaded bool
	source beep.StreamSeekCloser

	generation atomic.Uint64
	finished   chan uint64
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithResampleQuality sets the resampler quality (1-64)
func WithResampleQuality(q int) EngineOption {
	return func(e *Engine) {
		if q > 0 {
			e.quality = q
		}
	}
}

// NewEngine creates an idle engine feeding sink
func NewEngine(sink *Sink, decoder Decoder, log *zap.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if decoder == nil {
		decoder = FileDecoder{}
	}
	e := &Engine{
		sink:     sink,
		decoder:  decoder,
		quality:  DefaultResampleQuality,
		log:      log.Named("engine"),
		finished: make(chan uint64, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load decodes t and makes it the only queued source, then starts output.
// On failure the previous track keeps playing untouched.
func (e *Engine) Load(t catalog.Track) error {
	src, format, err := e.decoder.Decode(t.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, t.Name, err)
	}

	e.replace(src, format, src)
	e.sink.Play()
	e.track = t
	e.loaded = true

	e.log.Info("loaded", zap.Int("index", t.Index), zap.String("track", t.Name),
		zap.Int("rate", int(format.SampleRate)), zap.Duration("length", format.SampleRate.D(src.Len())))
	return nil
}

// TogglePlayPause flips between playing and paused. No-op when idle.
func (e *Engine) TogglePlayPause() {
	if !e.loaded {
		return
	}
	if e.sink.IsPaused() {
		e.sink.Play()
		e.log.Debug("resumed")
	} else {
		e.sink.Pause()
		e.log.Debug("paused")
	}
}

// SkipForward restarts the loaded track d into the audio. A d at or past the
// end of the track changes nothing. Pause state is kept.
func (e *Engine) SkipForward(d time.Duration) error {
	if !e.loaded {
		return nil
	}

	src, format, err := e.decoder.Decode(e.track.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, e.track.Name, err)
	}

	n := format.SampleRate.N(d)
	if n >= src.Len() {
		src.Close()
		e.log.Debug("skip past end ignored", zap.Duration("offset", d))
		return nil
	}
	if err := src.Seek(n); err != nil {
		src.Close()
		return fmt.Errorf("%w: seek %s: %v", ErrDecode, e.track.Name, err)
	}

	e.replace(src, format, src)
	e.log.Debug("skipped", zap.Duration("offset", d))
	return nil
}

// LoopCurrent replaces the queue with the loaded track repeating forever.
// Pause state is kept.
func (e *Engine) LoopCurrent() error {
	if !e.loaded {
		return nil
	}

	src, format, err := e.decoder.Decode(e.track.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, e.track.Name, err)
	}

	looped, err := beep.Loop2(src)
	if err != nil {
		src.Close()
		return fmt.Errorf("%w: loop %s: %v", ErrDecode, e.track.Name, err)
	}

	e.replace(src, format, looped)
	e.log.Debug("looping", zap.String("track", e.track.Name))
	return nil
}

// Clear drops queued audio without starting anything
func (e *Engine) Clear() {
	e.generation.Add(1)
	e.sink.Clear()
	e.closeSource()
}

// State returns the current playback state
func (e *Engine) State() PlaybackState {
	st := PlaybackState{Paused: e.sink.IsPaused(), Loaded: -1}
	if e.loaded {
		st.Loaded = e.track.Index
	}
	return st
}

// Finished delivers the generation of a source the sink has drained
func (e *Engine) Finished() <-chan uint64 {
	return e.finished
}

// Generation returns the generation of the currently queued source
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Close drops the queue and releases the open source
func (e *Engine) Close() error {
	e.Clear()
	return nil
}

// replace swaps the queue for s, tagging it with a fresh generation so a
// drain notification from the old source is recognisably stale.
func (e *Engine) replace(src beep.StreamSeekCloser, format beep.Format, s beep.Streamer) {
	gen := e.generation.Add(1)

	if format.SampleRate != e.sink.SampleRate() {
		s = beep.Resample(e.quality, format.SampleRate, e.sink.SampleRate(), s)
	}
	seq := beep.Seq(s, beep.Callback(func() { e.notify(gen) }))

	e.sink.Clear()
	e.closeSource()
	e.sink.Append(seq)
	e.source = src
}

// notify runs on the device goroutine and must not block
func (e *Engine) notify(gen uint64) {
	select {
	case e.finished <- gen:
		return
	default:
	}
	// drop the older pending value
	select {
	case <-e.finished:
	default:
	}
	select {
	case e.finished <- gen:
	default:
	}
}

func (e *Engine) closeSource() {
	if e.source == nil {
		return
	}
	if err := e.source.Close(); err != nil {
		e.log.Debug("close source", zap.Error(err))
	}
	e.source = nil
}

package audio

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/austinkregel/local-media/termplay/internal/catalog"
)

const testRate = beep.SampleRate(1000)

// fakeSource is a constant-level stream of a fixed number of frames
type fakeSource struct {
	length int
	pos    int
	level  float64
	closed bool
}

func (f *fakeSource) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= f.length {
		return 0, false
	}
	n := 0
	for n < len(samples) && f.pos < f.length {
		samples[n] = [2]float64{f.level, f.level}
		n++
		f.pos++
	}
	return n, true
}

func (f *fakeSource) Err() error    { return nil }
func (f *fakeSource) Len() int      { return f.length }
func (f *fakeSource) Position() int { return f.pos }
func (f *fakeSource) Close() error  { f.closed = true; return nil }

func (f *fakeSource) Seek(p int) error {
	if p < 0 || p > f.length {
		return fmt.Errorf("seek %d out of range", p)
	}
	f.pos = p
	return nil
}

// fakeDecoder hands out fakeSources keyed by path
type fakeDecoder struct {
	lengths map[string]int
	rate    beep.SampleRate
	opened  []*fakeSource
}

func (d *fakeDecoder) Decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	n, ok := d.lengths[path]
	if !ok {
		return nil, beep.Format{}, errors.New("corrupt")
	}
	rate := d.rate
	if rate == 0 {
		rate = testRate
	}
	src := &fakeSource{length: n, level: 0.5}
	d.opened = append(d.opened, src)
	return src, beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}, nil
}

func newTestEngine(lengths map[string]int) (*Engine, *Sink, *fakeDecoder) {
	sink := NewSink(testRate)
	dec := &fakeDecoder{lengths: lengths}
	return NewEngine(sink, dec, nil), sink, dec
}

func track(i int, path string) catalog.Track {
	return catalog.Track{Index: i, Path: path, Name: path}
}

func drain(s *Sink, frames int) [][2]float64 {
	buf := make([][2]float64, frames)
	s.Stream(buf)
	return buf
}

func TestEngineStartsIdle(t *testing.T) {
	e, _, _ := newTestEngine(nil)

	st := e.State()
	if !st.Idle() || st.Loaded != -1 {
		t.Errorf("Expected idle state, got %+v", st)
	}

	// transport calls on an idle engine are no-ops
	e.TogglePlayPause()
	if err := e.SkipForward(time.Second); err != nil {
		t.Errorf("Expected no error skipping while idle, got %v", err)
	}
	if err := e.LoopCurrent(); err != nil {
		t.Errorf("Expected no error looping while idle, got %v", err)
	}
	if e.State().Paused {
		t.Error("Expected toggle on idle engine to do nothing")
	}
}

func TestLoadQueuesExactlyOneSource(t *testing.T) {
	e, sink, dec := newTestEngine(map[string]int{"a": 100, "b": 100})

	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := e.Load(track(1, "b")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if sink.Len() != 1 {
		t.Errorf("Expected 1 queued source, got %d", sink.Len())
	}
	if st := e.State(); st.Loaded != 1 || st.Paused {
		t.Errorf("Expected playing track 1, got %+v", st)
	}
	if !dec.opened[0].closed {
		t.Error("Expected the replaced source to be closed")
	}
}

func TestLoadFailureLeavesStateUnchanged(t *testing.T) {
	e, sink, _ := newTestEngine(map[string]int{"a": 100})

	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	gen := e.Generation()

	err := e.Load(track(1, "broken"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if e.State().Loaded != 0 {
		t.Errorf("Expected track 0 to stay loaded, got %d", e.State().Loaded)
	}
	if sink.Len() != 1 || e.Generation() != gen {
		t.Error("Expected queue to be untouched after a failed load")
	}
}

func TestTogglePlayPauseTwiceRestores(t *testing.T) {
	e, _, _ := newTestEngine(map[string]int{"a": 100})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	before := e.State().Paused
	e.TogglePlayPause()
	if e.State().Paused == before {
		t.Fatal("Expected toggle to flip paused state")
	}
	e.TogglePlayPause()
	if e.State().Paused != before {
		t.Errorf("Expected paused=%v after two toggles, got %v", before, e.State().Paused)
	}
}

func TestPausedSinkStreamsSilence(t *testing.T) {
	e, sink, _ := newTestEngine(map[string]int{"a": 100})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e.TogglePlayPause()

	buf := drain(sink, 10)
	for i, s := range buf {
		if s != [2]float64{} {
			t.Fatalf("Expected silence at %d while paused, got %v", i, s)
		}
	}
}

func TestSkipForward(t *testing.T) {
	e, sink, dec := newTestEngine(map[string]int{"a": 10000})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := e.SkipForward(5 * time.Second); err != nil {
		t.Fatalf("SkipForward failed: %v", err)
	}

	if len(dec.opened) != 2 {
		t.Fatalf("Expected track to be re-decoded, got %d opens", len(dec.opened))
	}
	if pos := dec.opened[1].Position(); pos != testRate.N(5*time.Second) {
		t.Errorf("Expected position %d, got %d", testRate.N(5*time.Second), pos)
	}
	if sink.Len() != 1 {
		t.Errorf("Expected 1 queued source, got %d", sink.Len())
	}
}

func TestSkipForwardBeyondEndIsNoop(t *testing.T) {
	e, sink, dec := newTestEngine(map[string]int{"a": 3000}) // 3s
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	gen := e.Generation()

	if err := e.SkipForward(5 * time.Second); err != nil {
		t.Fatalf("Expected clean no-op, got %v", err)
	}

	if e.Generation() != gen {
		t.Error("Expected queue not to be replaced")
	}
	if dec.opened[0].closed {
		t.Error("Expected the playing source to stay open")
	}
	if !dec.opened[1].closed {
		t.Error("Expected the unused decode to be closed")
	}
	if sink.Len() != 1 {
		t.Errorf("Expected 1 queued source, got %d", sink.Len())
	}
}

func TestSkipForwardKeepsPause(t *testing.T) {
	e, _, _ := newTestEngine(map[string]int{"a": 10000})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e.TogglePlayPause()

	if err := e.SkipForward(time.Second); err != nil {
		t.Fatalf("SkipForward failed: %v", err)
	}
	if !e.State().Paused {
		t.Error("Expected engine to stay paused after skip")
	}
}

func TestLoopCurrentRepeats(t *testing.T) {
	e, sink, _ := newTestEngine(map[string]int{"a": 10})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := e.LoopCurrent(); err != nil {
		t.Fatalf("LoopCurrent failed: %v", err)
	}

	buf := drain(sink, 35)
	for i, s := range buf {
		if s[0] != 0.5 {
			t.Fatalf("Expected looped audio at frame %d, got %v", i, s)
		}
	}
	if sink.Len() != 1 {
		t.Errorf("Expected looping source to stay queued, got %d", sink.Len())
	}
}

func TestFinishedReportsGeneration(t *testing.T) {
	e, sink, _ := newTestEngine(map[string]int{"a": 10})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	drain(sink, 20)

	select {
	case gen := <-e.Finished():
		if gen != e.Generation() {
			t.Errorf("Expected generation %d, got %d", e.Generation(), gen)
		}
	default:
		t.Fatal("Expected a finished notification")
	}
	if sink.Len() != 0 {
		t.Errorf("Expected drained queue, got %d", sink.Len())
	}
}

func TestFinishedFromReplacedSourceIsStale(t *testing.T) {
	e, sink, _ := newTestEngine(map[string]int{"a": 10, "b": 1000})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	drain(sink, 20)
	if err := e.Load(track(1, "b")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	gen := <-e.Finished()
	if gen == e.Generation() {
		t.Error("Expected notification from the replaced source to be stale")
	}
}

func TestResamplesToSinkRate(t *testing.T) {
	sink := NewSink(testRate)
	dec := &fakeDecoder{lengths: map[string]int{"a": 2000}, rate: 2 * testRate}
	e := NewEngine(sink, dec, nil)
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 2000 frames at twice the rate play as ~1000 frames at the sink rate
	drain(sink, 900)
	if sink.Len() != 1 {
		t.Error("Expected source still playing after 900 frames")
	}
	drain(sink, 200)
	if sink.Len() != 0 {
		t.Error("Expected source drained after 1100 frames")
	}
}

func TestClear(t *testing.T) {
	e, sink, dec := newTestEngine(map[string]int{"a": 100})
	if err := e.Load(track(0, "a")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	e.Clear()

	if sink.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", sink.Len())
	}
	if !dec.opened[0].closed {
		t.Error("Expected source closed on Clear")
	}
}

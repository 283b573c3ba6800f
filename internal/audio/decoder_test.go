package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/austinkregel/local-media/termplay/internal/catalog"
)

func TestFileDecoderUnsupportedExtension(t *testing.T) {
	_, _, err := FileDecoder{}.Decode("/music/notes.txt")
	if err == nil {
		t.Fatal("Expected error for unsupported extension")
	}
}

func TestFileDecoderMissingFile(t *testing.T) {
	_, _, err := FileDecoder{}.Decode(filepath.Join(t.TempDir(), "gone.mp3"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestFileDecoderCorruptWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("RIFF but not really"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := FileDecoder{}.Decode(path)
	if err == nil {
		t.Fatal("Expected error for corrupt wav")
	}
}

// writeWav encodes frames of a constant tone as 16-bit mono PCM
func writeWav(t *testing.T, path string, rate beep.SampleRate, frames int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, &fakeSource{length: frames, level: 0.25}, format); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestFileDecoderWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWav(t, path, 8000, 8000)

	src, format, err := FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	defer src.Close()

	if format.SampleRate != 8000 {
		t.Errorf("Expected rate 8000, got %d", format.SampleRate)
	}
	if src.Len() != 8000 {
		t.Errorf("Expected 8000 frames, got %d", src.Len())
	}
}

func TestEngineWithWavFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWav(t, path, 8000, 8000)

	sink := NewSink(8000)
	e := NewEngine(sink, FileDecoder{}, nil)
	defer e.Close()

	if err := e.Load(catalog.Track{Index: 0, Path: path, Name: "tone.wav"}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sink.Len() != 1 {
		t.Errorf("Expected 1 queued source after Load, got %d", sink.Len())
	}
	if e.State().Loaded != 0 {
		t.Errorf("Expected track 0 loaded, got %d", e.State().Loaded)
	}

	gen := e.Generation()
	if err := e.SkipForward(5 * time.Second); err != nil {
		t.Fatalf("SkipForward past end failed: %v", err)
	}
	if e.Generation() != gen || sink.Len() != 1 {
		t.Errorf("Expected skip past end to change nothing, gen %d->%d len %d", gen, e.Generation(), sink.Len())
	}

	if err := e.SkipForward(500 * time.Millisecond); err != nil {
		t.Fatalf("SkipForward failed: %v", err)
	}
	if got := e.source.Position(); got != 4000 {
		t.Errorf("Expected position 4000, got %d", got)
	}
	if sink.Len() != 1 {
		t.Errorf("Expected 1 queued source after skip, got %d", sink.Len())
	}

	if err := e.LoopCurrent(); err != nil {
		t.Fatalf("LoopCurrent failed: %v", err)
	}
	if sink.Len() != 1 {
		t.Errorf("Expected 1 queued source after loop, got %d", sink.Len())
	}

	buf := make([][2]float64, 1000)
	for i := 0; i < 30; i++ {
		sink.Stream(buf)
	}
	if sink.Len() != 1 {
		t.Errorf("Expected looped source to stay queued, got %d", sink.Len())
	}
	select {
	case g := <-e.Finished():
		t.Errorf("Expected no end of track while looping, got generation %d", g)
	default:
	}
}

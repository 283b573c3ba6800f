package session

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/austinkregel/local-media/termplay/internal/artwork"
	"github.com/austinkregel/local-media/termplay/internal/audio"
	"github.com/austinkregel/local-media/termplay/internal/catalog"
	"github.com/austinkregel/local-media/termplay/internal/metadata"
)

// fakePlayer records engine calls
type fakePlayer struct {
	calls   []string
	loaded  int
	paused  bool
	broken  map[string]bool
	skipped []time.Duration
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{loaded: -1, broken: map[string]bool{}}
}

func (p *fakePlayer) Load(t catalog.Track) error {
	p.calls = append(p.calls, "load:"+t.Name)
	if p.broken[t.Name] {
		return audio.ErrDecode
	}
	p.loaded = t.Index
	p.paused = false
	return nil
}

func (p *fakePlayer) TogglePlayPause() {
	p.calls = append(p.calls, "toggle")
	p.paused = !p.paused
}

func (p *fakePlayer) SkipForward(d time.Duration) error {
	p.calls = append(p.calls, "skip")
	p.skipped = append(p.skipped, d)
	return nil
}

func (p *fakePlayer) LoopCurrent() error {
	p.calls = append(p.calls, "loop")
	return nil
}

func (p *fakePlayer) State() audio.PlaybackState {
	return audio.PlaybackState{Paused: p.paused, Loaded: p.loaded}
}

type fakeExtractor map[string]metadata.Metadata

func (f fakeExtractor) Extract(t catalog.Track) metadata.Metadata {
	return f[t.Name]
}

// fakeResolver returns a fixed placeholder unless data is non-empty
type fakeResolver struct {
	placeholder image.Image
}

func (r fakeResolver) Resolve(data []byte) artwork.Artwork {
	if len(data) == 0 {
		return artwork.Artwork{Image: r.placeholder, Placeholder: true}
	}
	return artwork.Artwork{Image: image.NewRGBA(image.Rect(0, 0, len(data), 1))}
}

func newTestController(t *testing.T, opts Options) (*Controller, *fakePlayer) {
	t.Helper()
	cat := catalog.New([]string{"/m/A.mp3", "/m/B.mp3", "/m/C.mp3"})
	tags := fakeExtractor{
		"B.mp3": {Artist: "Bulbul", Album: "Titli", Artwork: []byte{1, 2, 3}},
	}
	res := fakeResolver{placeholder: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	p := newFakePlayer()

	c, err := New(cat, p, tags, res, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, p
}

func TestNewRejectsEmptyCatalog(t *testing.T) {
	c, err := New(catalog.New(nil), newFakePlayer(), fakeExtractor{}, fakeResolver{}, Options{})
	if !errors.Is(err, catalog.ErrEmptyCatalog) {
		t.Fatalf("Expected ErrEmptyCatalog, got %v", err)
	}
	if c != nil {
		t.Error("Expected no controller for an empty catalog")
	}
}

func TestStartLoadsFirstTrack(t *testing.T) {
	c, p := newTestController(t, Options{})

	if got := c.Snapshot().Index; got != -1 {
		t.Errorf("Expected no snapshot before Start, got index %d", got)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.Index != 0 || c.Index() != 0 {
		t.Errorf("Expected index 0, got %d/%d", snap.Index, c.Index())
	}
	if snap.Artist != "Unknown" || snap.Album != "Unknown" {
		t.Errorf("Expected Unknown fallbacks, got %q/%q", snap.Artist, snap.Album)
	}
	if snap.Title != "A.mp3" {
		t.Errorf("Expected title fallback to file name, got %q", snap.Title)
	}
	if !snap.Artwork.Placeholder {
		t.Error("Expected placeholder artwork")
	}
	if len(p.calls) != 1 || p.calls[0] != "load:A.mp3" {
		t.Errorf("Expected single load of A.mp3, got %v", p.calls)
	}
}

func TestNextWrapsAfterLen(t *testing.T) {
	c, _ := newTestController(t, Options{})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < c.Catalog().Len(); i++ {
		if err := c.Dispatch(Next); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if c.Index() != 0 {
		t.Errorf("Expected to return to index 0, got %d", c.Index())
	}
}

func TestPreviousInvertsNext(t *testing.T) {
	for start := 0; start < 3; start++ {
		c, _ := newTestController(t, Options{})
		if err := c.TransitionTo(start); err != nil {
			t.Fatalf("TransitionTo failed: %v", err)
		}

		c.Dispatch(Next)
		c.Dispatch(Previous)
		if c.Index() != start {
			t.Errorf("Next then Previous from %d: got %d", start, c.Index())
		}

		c.Dispatch(Previous)
		c.Dispatch(Next)
		if c.Index() != start {
			t.Errorf("Previous then Next from %d: got %d", start, c.Index())
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	c, p := newTestController(t, Options{})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := c.Dispatch(Next); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	snap := c.Snapshot()
	if snap.Index != 1 || snap.Artist != "Bulbul" || snap.Album != "Titli" {
		t.Errorf("Expected B's tags at index 1, got %+v", snap)
	}
	if snap.Artwork.Placeholder {
		t.Error("Expected B's embedded artwork, got placeholder")
	}

	c.Dispatch(Previous)
	c.Dispatch(Previous)
	if c.Index() != 2 {
		t.Errorf("Expected index 2 after two Previous, got %d", c.Index())
	}
	if c.Snapshot().Artist != "Unknown" {
		t.Errorf("Expected Unknown artist for C, got %q", c.Snapshot().Artist)
	}

	if err := c.Dispatch(Quit); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}
	if !c.ExitRequested() {
		t.Fatal("Expected exit requested after Quit")
	}

	calls := len(p.calls)
	for _, a := range Actions() {
		c.Dispatch(a)
	}
	if len(p.calls) != calls {
		t.Errorf("Expected no engine calls after Quit, got %v", p.calls[calls:])
	}
	if c.Index() != 2 {
		t.Errorf("Expected index to stay 2 after Quit, got %d", c.Index())
	}
}

func TestTransportActions(t *testing.T) {
	c, p := newTestController(t, Options{SkipOffset: 10 * time.Second})
	c.Start()

	c.Dispatch(PlayPauseToggle)
	if !c.View().State.Paused {
		t.Error("Expected paused after toggle")
	}
	c.Dispatch(PlayPauseToggle)
	if c.View().State.Paused {
		t.Error("Expected playing after second toggle")
	}

	c.Dispatch(SkipAhead)
	if len(p.skipped) != 1 || p.skipped[0] != 10*time.Second {
		t.Errorf("Expected skip of 10s, got %v", p.skipped)
	}

	c.Dispatch(LoopCurrent)
	if p.calls[len(p.calls)-1] != "loop" {
		t.Errorf("Expected loop call, got %v", p.calls)
	}
	if c.Index() != 0 {
		t.Errorf("Expected transport actions to keep index 0, got %d", c.Index())
	}
}

func TestDefaultSkipOffset(t *testing.T) {
	c, p := newTestController(t, Options{})
	c.Start()
	c.Dispatch(SkipAhead)
	if len(p.skipped) != 1 || p.skipped[0] != DefaultSkipOffset {
		t.Errorf("Expected default skip %v, got %v", DefaultSkipOffset, p.skipped)
	}
}

func TestLoadFailureKeepsSnapshot(t *testing.T) {
	c, p := newTestController(t, Options{})
	p.broken["B.mp3"] = true
	c.Start()

	err := c.Dispatch(Next)
	if !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if c.Index() != 0 {
		t.Errorf("Expected index to stay 0, got %d", c.Index())
	}
	v := c.View()
	if v.Index != v.Snapshot.Index || v.Snapshot.Index != 0 {
		t.Errorf("Expected view index and snapshot on track 0, got %d and %d", v.Index, v.Snapshot.Index)
	}
	if v.Snapshot.Title != "A.mp3" {
		t.Errorf("Expected A.mp3 snapshot, got %s", v.Snapshot.Title)
	}
	if p.loaded != 0 || v.State.Loaded != 0 {
		t.Errorf("Expected engine to keep track 0, got %d", p.loaded)
	}

	// a later Next starts from the track that is still playing
	delete(p.broken, "B.mp3")
	if err := c.Dispatch(Next); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if c.Index() != 1 || c.Snapshot().Index != 1 {
		t.Errorf("Expected to reach index 1, got %d", c.Index())
	}
}

func TestPreviousLoadFailureKeepsIndex(t *testing.T) {
	c, p := newTestController(t, Options{})
	c.Start()
	p.broken["C.mp3"] = true

	if err := c.Dispatch(Previous); !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if c.Index() != 0 || c.View().Snapshot.Index != 0 {
		t.Errorf("Expected index 0, got %d", c.Index())
	}
}

func TestStartFailureKeepsIndex(t *testing.T) {
	c, p := newTestController(t, Options{})
	p.broken["A.mp3"] = true

	if err := c.Start(); !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if c.Index() != 0 {
		t.Errorf("Expected index 0, got %d", c.Index())
	}
	if c.Snapshot().Index != -1 {
		t.Errorf("Expected no snapshot, got %d", c.Snapshot().Index)
	}
}

func TestSkipUnplayable(t *testing.T) {
	c, p := newTestController(t, Options{SkipUnplayable: true})
	p.broken["B.mp3"] = true
	c.Start()

	if err := c.Dispatch(Next); err != nil {
		t.Fatalf("Expected Next to skip the broken track, got %v", err)
	}
	if c.Index() != 2 || c.Snapshot().Index != 2 {
		t.Errorf("Expected to land on index 2, got %d", c.Index())
	}
}

func TestSkipUnplayableGivesUp(t *testing.T) {
	c, p := newTestController(t, Options{SkipUnplayable: true})
	c.Start()
	for _, n := range []string{"A.mp3", "B.mp3", "C.mp3"} {
		p.broken[n] = true
	}
	loads := len(p.calls)

	if err := c.Dispatch(Next); !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("Expected ErrDecode when every track fails, got %v", err)
	}
	if got := len(p.calls) - loads; got != 3 {
		t.Errorf("Expected 3 load attempts, got %d", got)
	}
	if c.Index() != 0 || c.Snapshot().Index != 0 {
		t.Errorf("Expected to stay on index 0, got %d", c.Index())
	}
}

func TestStartSkipsUnplayableFirstTrack(t *testing.T) {
	c, p := newTestController(t, Options{SkipUnplayable: true})
	p.broken["A.mp3"] = true

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.Index() != 1 {
		t.Errorf("Expected start on index 1, got %d", c.Index())
	}
}

func TestTransitionOutOfRange(t *testing.T) {
	c, _ := newTestController(t, Options{})
	if err := c.TransitionTo(3); err == nil {
		t.Error("Expected error for out of range index")
	}
}

func TestView(t *testing.T) {
	c, _ := newTestController(t, Options{})
	c.Start()
	c.Dispatch(Next)

	v := c.View()
	if len(v.Names) != 3 || v.Names[1] != "B.mp3" {
		t.Errorf("Unexpected names %v", v.Names)
	}
	if v.Index != 1 || v.Snapshot.Index != 1 || v.State.Loaded != 1 {
		t.Errorf("Unexpected view %+v", v)
	}
}

func TestParseAction(t *testing.T) {
	tests := map[string]Action{
		"quit":       Quit,
		"playpause":  PlayPauseToggle,
		"play-pause": PlayPauseToggle,
		"next":       Next,
		"prev":       Previous,
		"Previous":   Previous,
		"skip":       SkipAhead,
		"skip_ahead": SkipAhead,
		"loop":       LoopCurrent,
	}
	for in, want := range tests {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %v, %v; expected %v", in, got, err, want)
		}
	}
	if _, err := ParseAction("rewind"); err == nil {
		t.Error("Expected error for unknown action")
	}
	for _, a := range Actions() {
		back, err := ParseAction(a.String())
		if err != nil || back != a {
			t.Errorf("Action %v did not round trip through its name", a)
		}
	}
}

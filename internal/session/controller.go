// Package session ties the catalog, the playback engine and the metadata
// pipeline together. A Controller is driven from a single goroutine; only
// Snapshot and View may be read from elsewhere.
package session

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/artwork"
	"github.com/austinkregel/local-media/termplay/internal/audio"
	"github.com/austinkregel/local-media/termplay/internal/catalog"
	"github.com/austinkregel/local-media/termplay/internal/metadata"
)

// DefaultSkipOffset is how far SkipAhead jumps into the current track
const DefaultSkipOffset = 5 * time.Second

// Player is the part of the playback engine the controller drives
type Player interface {
	Load(t catalog.Track) error
	TogglePlayPause()
	SkipForward(d time.Duration) error
	LoopCurrent() error
	State() audio.PlaybackState
}

// Resolver turns artwork bytes into a displayable cover
type Resolver interface {
	Resolve(data []byte) artwork.Artwork
}

// Snapshot is everything the renderer shows about the current track.
// It is replaced as a whole after a successful transition.
type Snapshot struct {
	Index       int             `json:"index"`
	Track       catalog.Track   `json:"track"`
	Title       string          `json:"title"`
	Artist      string          `json:"artist"`
	Album       string          `json:"album"`
	ArtworkPath string          `json:"artworkPath,omitempty"`
	Artwork     artwork.Artwork `json:"-"`
}

// View is the render contract: the track list, the selection and the
// current snapshot
type View struct {
	Names    []string            `json:"names"`
	Index    int                 `json:"index"`
	Snapshot Snapshot            `json:"snapshot"`
	State    audio.PlaybackState `json:"state"`
}

// Options tunes controller behaviour
type Options struct {
	SkipOffset     time.Duration
	SkipUnplayable bool
	Log            *zap.Logger
}

// Controller is the playback state machine
type Controller struct {
	catalog   *catalog.Catalog
	player    Player
	extractor metadata.Source
	resolver  Resolver
	opts      Options
	log       *zap.Logger
	names     []string

	index         int
	exitRequested bool
	snapshot      atomic.Pointer[Snapshot]
}

// New creates a controller. An empty catalog is rejected with
// catalog.ErrEmptyCatalog.
func New(cat *catalog.Catalog, player Player, extractor metadata.Source, resolver Resolver, opts Options) (*Controller, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	if opts.SkipOffset <= 0 {
		opts.SkipOffset = DefaultSkipOffset
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	c := &Controller{
		catalog:   cat,
		player:    player,
		extractor: extractor,
		resolver:  resolver,
		opts:      opts,
		log:       log.Named("session"),
		names:     cat.Names(),
	}
	c.snapshot.Store(&Snapshot{Index: -1})
	return c, nil
}

// Start plays the first track
func (c *Controller) Start() error {
	err := c.TransitionTo(0)
	if err != nil && c.skipping(err) {
		return c.step(1, c.catalog.Len()-1)
	}
	return err
}

// Dispatch applies one action. After Quit every action is ignored.
func (c *Controller) Dispatch(a Action) error {
	if c.exitRequested {
		c.log.Debug("ignoring action after quit", zap.Stringer("action", a))
		return nil
	}
	c.log.Debug("dispatch", zap.Stringer("action", a), zap.Int("index", c.index))

	switch a {
	case Quit:
		c.exitRequested = true
		return nil
	case PlayPauseToggle:
		c.player.TogglePlayPause()
		return nil
	case Next:
		return c.step(1, c.catalog.Len())
	case Previous:
		return c.step(-1, c.catalog.Len())
	case SkipAhead:
		return c.player.SkipForward(c.opts.SkipOffset)
	case LoopCurrent:
		return c.player.LoopCurrent()
	default:
		return fmt.Errorf("unknown action %d", int(a))
	}
}

// step moves the index by dir, retrying unplayable tracks when configured,
// for at most attempts transitions. The index only moves when a transition
// succeeds.
func (c *Controller) step(dir, attempts int) error {
	var err error
	next := c.index
	for i := 0; i < attempts; i++ {
		next = c.wrap(next + dir)
		err = c.TransitionTo(next)
		if err == nil || !c.skipping(err) {
			return err
		}
		c.log.Warn("skipping unplayable track", zap.Int("index", next), zap.Error(err))
	}
	return err
}

func (c *Controller) skipping(err error) bool {
	return c.opts.SkipUnplayable && errors.Is(err, audio.ErrDecode)
}

func (c *Controller) wrap(i int) int {
	n := c.catalog.Len()
	return ((i % n) + n) % n
}

// TransitionTo makes track i current: load audio, read tags, resolve the
// cover and publish a new snapshot. If loading fails the index, snapshot
// and audio all stay as they were.
func (c *Controller) TransitionTo(i int) error {
	if i < 0 || i >= c.catalog.Len() {
		return fmt.Errorf("track index %d out of range [0,%d)", i, c.catalog.Len())
	}
	t := c.catalog.At(i)

	if err := c.player.Load(t); err != nil {
		c.log.Error("load failed", zap.Int("index", i), zap.String("track", t.Name), zap.Error(err))
		return fmt.Errorf("transition to %s: %w", t.Name, err)
	}

	meta := c.extractor.Extract(t)
	art := c.resolver.Resolve(meta.Artwork)

	snap := &Snapshot{
		Index:       i,
		Track:       t,
		Title:       metadata.Or(meta.Title, t.Name),
		Artist:      metadata.Or(meta.Artist, metadata.Unknown),
		Album:       metadata.Or(meta.Album, metadata.Unknown),
		ArtworkPath: meta.ArtworkPath,
		Artwork:     art,
	}
	c.index = i
	c.snapshot.Store(snap)

	c.log.Info("now playing", zap.Int("index", i), zap.String("artist", snap.Artist),
		zap.String("album", snap.Album), zap.Bool("placeholderArt", art.Placeholder))
	return nil
}

// Index returns the current catalog index
func (c *Controller) Index() int {
	return c.index
}

// ExitRequested reports whether Quit has been dispatched
func (c *Controller) ExitRequested() bool {
	return c.exitRequested
}

// Snapshot returns the last published snapshot. Before the first successful
// transition its Index is -1.
func (c *Controller) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// Catalog returns the catalog being played
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// View builds the render contract
func (c *Controller) View() View {
	return View{
		Names:    c.names,
		Index:    c.index,
		Snapshot: c.Snapshot(),
		State:    c.player.State(),
	}
}

// Package app wires the player together and runs it on the terminal.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/artwork"
	"github.com/austinkregel/local-media/termplay/internal/audio"
	"github.com/austinkregel/local-media/termplay/internal/catalog"
	"github.com/austinkregel/local-media/termplay/internal/config"
	"github.com/austinkregel/local-media/termplay/internal/ipc"
	"github.com/austinkregel/local-media/termplay/internal/keymap"
	"github.com/austinkregel/local-media/termplay/internal/media"
	"github.com/austinkregel/local-media/termplay/internal/metadata"
	"github.com/austinkregel/local-media/termplay/internal/session"
	"github.com/austinkregel/local-media/termplay/internal/terminal"
	"github.com/austinkregel/local-media/termplay/internal/ui"
)

// NewExtractor builds the metadata source described by cfg
func NewExtractor(cfg *config.Config, log *zap.Logger) metadata.Source {
	var src metadata.Source = metadata.NewExtractor(log, cfg.Artwork.ExportDir)
	if cfg.Library.CacheMetadata {
		src = metadata.NewCache(src)
	}
	return src
}

// NewResolver builds the artwork resolver described by cfg
func NewResolver(cfg *config.Config, log *zap.Logger) (*artwork.Resolver, error) {
	proto, err := artwork.ParseProtocol(cfg.Artwork.Protocol)
	if err != nil {
		return nil, err
	}
	return artwork.NewResolver(log, artwork.Options{
		Protocol:        proto,
		PlaceholderPath: cfg.Artwork.Placeholder,
		Box: artwork.Box{
			Columns:    cfg.Artwork.Columns,
			Rows:       cfg.Artwork.Rows,
			CellWidth:  cfg.Artwork.CellWidth,
			CellHeight: cfg.Artwork.CellHeight,
		},
	}), nil
}

// Run plays the library at cfg.Library.Dir until the user quits or ctx is
// cancelled. Startup failures are returned before the terminal is touched.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	cat, err := catalog.Build(cfg.Library.Dir, catalog.ParseExtensions(cfg.Library.Extensions))
	if err != nil {
		return err
	}
	log.Info("catalog built", zap.String("dir", cat.Dir()), zap.Int("tracks", cat.Len()))

	km, err := keymap.New(cfg.Keys)
	if err != nil {
		return fmt.Errorf("invalid key bindings: %w", err)
	}

	resolver, err := NewResolver(cfg, log)
	if err != nil {
		return err
	}

	sink := audio.NewSink(beep.SampleRate(cfg.Audio.SampleRate))
	engine := audio.NewEngine(sink, audio.FileDecoder{}, log, audio.WithResampleQuality(cfg.Audio.ResampleQuality))
	defer engine.Close()

	ctrl, err := session.New(cat, engine, NewExtractor(cfg, log), resolver, session.Options{
		SkipOffset:     cfg.SkipOffset(),
		SkipUnplayable: cfg.Behavior.SkipUnplayable,
		Log:            log,
	})
	if err != nil {
		return err
	}

	device, err := audio.OpenDevice(cfg.Audio.SampleRate, cfg.BufferSize(), sink)
	if err != nil {
		return err
	}
	defer device.Close()
	device.SetVolume(cfg.Audio.Volume)
	log.Info("audio device open", zap.Int("rate", device.SampleRate()), zap.Float64("volume", device.Volume()))

	var spectrum *audio.Spectrum
	if cfg.UI.Spectrum {
		spectrum = audio.NewSpectrum(device.SampleRate())
		device.SetSpectrum(spectrum)
	}

	mediaSession := openMediaSession(cfg, log)
	defer mediaSession.Close()
	mediaCmds := make(media.ChannelHandler, 8)
	mediaSession.SetCommandHandler(mediaCmds)

	term, err := terminal.Open(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer term.Close()

	screen := ui.New(os.Stdout, km.Help())
	screen.Enter()
	defer screen.Leave()

	defer func() {
		if r := recover(); r != nil {
			screen.Leave()
			term.Restore()
			log.Error("panic in run loop", zap.Any("panic", r), zap.Stack("stack"))
			panic(r)
		}
	}()

	loop := &Loop{
		Controller:   ctrl,
		Keymap:       km,
		Screen:       screen,
		Size:         term.Size,
		Keys:         term.Keys(),
		KeyErrors:    term.Errors(),
		Media:        mediaCmds,
		Finished:     engine.Finished(),
		Generation:   engine.Generation,
		AutoAdvance:  cfg.Behavior.AutoAdvance,
		MediaSession: mediaSession,
		Log:          log.Named("loop"),
	}
	if spectrum != nil {
		ticker := time.NewTicker(cfg.RefreshInterval())
		defer ticker.Stop()
		loop.Tick = ticker.C
		loop.Meter = spectrum.Bands
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Control.Enabled {
		control := make(chan ipc.Command)
		server := ipc.NewServer(cfg.Control.Socket, control, loop.View, log)
		if lerr := server.Listen(); lerr != nil {
			log.Warn("control socket disabled", zap.Error(lerr))
			screen.SetStatus("control socket disabled: "+lerr.Error(), true)
		} else {
			loop.Control = control
			done := make(chan struct{})
			go func() {
				defer close(done)
				server.Serve(ctx)
			}()
			defer func() { <-done }()
			defer cancel()
		}
	}

	if serr := ctrl.Start(); serr != nil {
		log.Warn("first track failed to start", zap.Error(serr))
		screen.SetStatus(serr.Error(), true)
	}

	return loop.Run(ctx)
}

func openMediaSession(cfg *config.Config, log *zap.Logger) media.Session {
	if !cfg.Media.Enabled {
		return media.NewNoOpSession()
	}
	s, err := media.NewSession()
	if err != nil {
		log.Warn("media session unavailable, continuing without it", zap.Error(err))
		return media.NewNoOpSession()
	}
	log.Info("media session initialized")
	return s
}

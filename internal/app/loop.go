package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/ipc"
	"github.com/austinkregel/local-media/termplay/internal/keymap"
	"github.com/austinkregel/local-media/termplay/internal/media"
	"github.com/austinkregel/local-media/termplay/internal/session"
	"github.com/austinkregel/local-media/termplay/internal/terminal"
)

// Fallback screen size when the terminal cannot report one
const (
	fallbackWidth  = 80
	fallbackHeight = 24
)

// ErrInputClosed is returned when the keyboard reader stops without an error
var ErrInputClosed = errors.New("keyboard input closed")

// Controller is the part of session.Controller the loop drives
type Controller interface {
	Dispatch(a session.Action) error
	View() session.View
	ExitRequested() bool
}

// Screen draws views and a status line
type Screen interface {
	Render(v session.View, width, height int) error
	RenderMeter(bands []uint8, width, height int) error
	SetStatus(msg string, isError bool)
}

// Loop is the single goroutine that owns the controller. Every event source
// only sends into one of its channels. Nil channels are never selected.
type Loop struct {
	Controller Controller
	Keymap     *keymap.Keymap
	Screen     Screen
	Size       func() (int, int, error)

	Keys       <-chan terminal.Key
	KeyErrors  <-chan error
	Media      <-chan media.Command
	Control    <-chan ipc.Command
	Finished   <-chan uint64
	Generation func() uint64

	// Tick redraws the meter from Meter, or the whole screen after a resize
	Tick  <-chan time.Time
	Meter func() []uint8

	AutoAdvance  bool
	MediaSession media.Session
	Log          *zap.Logger

	view      atomic.Pointer[session.View]
	drawn     [2]int
	lastIndex int
	lastState media.PlaybackState
}

// Run handles events until Quit is dispatched or ctx is cancelled. A
// cancelled context is a normal exit.
func (l *Loop) Run(ctx context.Context) error {
	if l.Log == nil {
		l.Log = zap.NewNop()
	}
	if l.MediaSession == nil {
		l.MediaSession = media.NewNoOpSession()
	}
	l.lastIndex = -1
	l.lastState = media.StateStopped
	l.publish()

	dirty := true
	for !l.Controller.ExitRequested() {
		if dirty {
			l.render()
		}
		dirty = true

		select {
		case <-ctx.Done():
			l.Log.Info("context cancelled, leaving run loop")
			return nil

		case k, ok := <-l.Keys:
			if !ok {
				return ErrInputClosed
			}
			if a, found := l.Keymap.Lookup(k); found {
				l.dispatch(a)
			}

		case err := <-l.KeyErrors:
			return fmt.Errorf("keyboard input: %w", err)

		case cmd := <-l.Media:
			l.handleMedia(cmd)

		case cmd := <-l.Control:
			cmd.Reply <- l.dispatch(cmd.Action)

		case <-l.Tick:
			w, h := l.size()
			if w == l.drawn[0] && h == l.drawn[1] {
				l.renderMeter(w, h)
				dirty = false
			}
			continue

		case gen := <-l.Finished:
			if !l.AutoAdvance {
				continue
			}
			if l.Generation != nil && gen != l.Generation() {
				l.Log.Debug("ignoring stale end of track", zap.Uint64("generation", gen))
				continue
			}
			l.Log.Debug("track finished, advancing", zap.Uint64("generation", gen))
			l.dispatch(session.Next)
		}

		l.publish()
	}

	l.Log.Info("quit requested")
	return nil
}

// View returns the last published view. It is safe to call from any
// goroutine.
func (l *Loop) View() session.View {
	if v := l.view.Load(); v != nil {
		return *v
	}
	return session.View{Index: -1, Snapshot: session.Snapshot{Index: -1}}
}

func (l *Loop) dispatch(a session.Action) error {
	err := l.Controller.Dispatch(a)
	if err != nil {
		l.Log.Warn("action failed", zap.Stringer("action", a), zap.Error(err))
		l.Screen.SetStatus(err.Error(), true)
		return err
	}

	switch a {
	case session.LoopCurrent:
		l.Screen.SetStatus("looping current track", false)
		if lerr := l.MediaSession.UpdateLoopStatus(media.LoopTrack); lerr != nil {
			l.Log.Debug("media loop status update failed", zap.Error(lerr))
		}
	case session.Next, session.Previous:
		l.Screen.SetStatus("", false)
		if lerr := l.MediaSession.UpdateLoopStatus(media.LoopNone); lerr != nil {
			l.Log.Debug("media loop status update failed", zap.Error(lerr))
		}
	}
	return nil
}

func (l *Loop) handleMedia(cmd media.Command) {
	l.Log.Debug("media command", zap.Stringer("command", cmd))
	st := l.Controller.View().State

	switch cmd {
	case media.CmdPlay:
		if st.Paused && !st.Idle() {
			l.dispatch(session.PlayPauseToggle)
		}
	case media.CmdPause, media.CmdStop:
		if !st.Paused && !st.Idle() {
			l.dispatch(session.PlayPauseToggle)
		}
	case media.CmdPlayPause:
		l.dispatch(session.PlayPauseToggle)
	case media.CmdNext:
		l.dispatch(session.Next)
	case media.CmdPrevious:
		l.dispatch(session.Previous)
	case media.CmdLoopTrack:
		l.dispatch(session.LoopCurrent)
	case media.CmdQuit:
		l.dispatch(session.Quit)
	}
}

// publish stores the current view for other goroutines and pushes changes
// to the media session
func (l *Loop) publish() {
	v := l.Controller.View()
	l.view.Store(&v)

	if v.Snapshot.Index >= 0 && v.Snapshot.Index != l.lastIndex {
		l.lastIndex = v.Snapshot.Index
		err := l.MediaSession.UpdateMetadata(media.Metadata{
			TrackID: v.Snapshot.Index,
			Title:   v.Snapshot.Title,
			Artist:  v.Snapshot.Artist,
			Album:   v.Snapshot.Album,
			ArtPath: v.Snapshot.ArtworkPath,
		})
		if err != nil {
			l.Log.Debug("media metadata update failed", zap.Error(err))
		}
	}

	state := mediaState(v)
	if state != l.lastState {
		l.lastState = state
		if err := l.MediaSession.UpdatePlaybackState(state); err != nil {
			l.Log.Debug("media state update failed", zap.Error(err))
		}
	}
}

func (l *Loop) render() {
	width, height := l.size()
	l.drawn = [2]int{width, height}
	if err := l.Screen.Render(l.View(), width, height); err != nil {
		l.Log.Warn("render failed", zap.Error(err))
	}
}

func (l *Loop) renderMeter(width, height int) {
	if l.Meter == nil {
		return
	}
	if err := l.Screen.RenderMeter(l.Meter(), width, height); err != nil {
		l.Log.Debug("meter render failed", zap.Error(err))
	}
}

func (l *Loop) size() (int, int) {
	if l.Size != nil {
		if w, h, err := l.Size(); err == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return fallbackWidth, fallbackHeight
}

func mediaState(v session.View) media.PlaybackState {
	switch {
	case v.State.Idle():
		return media.StateStopped
	case v.State.Paused:
		return media.StatePaused
	default:
		return media.StatePlaying
	}
}

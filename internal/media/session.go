// Package media connects the player to the desktop's media controls.
//
// A Session publishes what is playing and turns remote-control requests into
// Commands. Sessions never touch the player directly: commands go to a
// CommandHandler, normally a ChannelHandler drained by the run loop.
package media

// PlaybackState is what the desktop shows as the transport status
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// Metadata describes the current track. TrackID is its catalog index.
type Metadata struct {
	TrackID int
	Title   string
	Artist  string
	Album   string
	ArtPath string
}

// LoopStatus mirrors the MPRIS LoopStatus property. The player only loops
// single tracks, so there is no playlist value.
type LoopStatus string

const (
	LoopNone  LoopStatus = "None"
	LoopTrack LoopStatus = "Track"
)

// Session is a desktop media session
type Session interface {
	UpdateMetadata(m Metadata) error
	UpdatePlaybackState(state PlaybackState) error
	UpdateLoopStatus(status LoopStatus) error
	// SetCommandHandler receives commands from the desktop. Handlers are
	// called on the session's own goroutine.
	SetCommandHandler(h CommandHandler)
	Close() error
}

// Command is a remote-control request
type Command int

const (
	CmdPlay Command = iota
	CmdPause
	CmdPlayPause
	CmdStop
	CmdNext
	CmdPrevious
	CmdLoopTrack
	CmdQuit
)

var commandNames = [...]string{
	CmdPlay:      "Play",
	CmdPause:     "Pause",
	CmdPlayPause: "PlayPause",
	CmdStop:      "Stop",
	CmdNext:      "Next",
	CmdPrevious:  "Previous",
	CmdLoopTrack: "LoopTrack",
	CmdQuit:      "Quit",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "Unknown"
	}
	return commandNames[c]
}

// CommandHandler accepts commands from a session
type CommandHandler interface {
	OnCommand(cmd Command) error
}

// ChannelHandler queues commands for the run loop. A full channel drops the
// command.
type ChannelHandler chan Command

func (h ChannelHandler) OnCommand(cmd Command) error {
	select {
	case h <- cmd:
	default:
	}
	return nil
}

// NoOpSession is used when no desktop session is available
type NoOpSession struct{}

func NewNoOpSession() *NoOpSession { return &NoOpSession{} }

func (*NoOpSession) UpdateMetadata(Metadata) error { return nil }
func (*NoOpSession) UpdatePlaybackState(PlaybackState) error { return nil }
func (*NoOpSession) UpdateLoopStatus(LoopStatus) error { return nil }
func (*NoOpSession) SetCommandHandler(CommandHandler) {}
func (*NoOpSession) Close() error { return nil }

// Package playerctl adapts the desktop's media players to the External Media
// Player agent. On Linux it drives MPRIS players through playerctl, on macOS
// it talks to Music and Spotify through osascript.
package playerctl

import (
	"context"
	"errors"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("playerctl")

// ErrNothingPlaying is returned when no player has a current track.
var ErrNothingPlaying = errors.New("no song playing")

// Metadata is one poll of the active player.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Status   string // Playing, Paused or Stopped
	Position time.Duration
	Duration time.Duration
	Shuffle  bool
	Loop     string // None, Track or Playlist
}

// Command is a player action understood by every Controller.
type Command string

const (
	CmdPlay      Command = "play"
	CmdPause     Command = "pause"
	CmdPlayPause Command = "play-pause"
	CmdStop      Command = "stop"
	CmdNext      Command = "next"
	CmdPrevious  Command = "previous"
)

// Controller defines the interface for controlling media playback across platforms
type Controller interface {
	Metadata(ctx context.Context) (Metadata, error)
	Control(ctx context.Context, cmd Command) error
	// SetPosition seeks to an absolute position.
	SetPosition(ctx context.Context, pos time.Duration) error
	SetShuffle(ctx context.Context, on bool) error
	// SetLoop takes None, Track or Playlist.
	SetLoop(ctx context.Context, mode string) error
}

// Loop modes shared by both platforms.
const (
	LoopNone     = "None"
	LoopTrack    = "Track"
	LoopPlaylist = "Playlist"
)

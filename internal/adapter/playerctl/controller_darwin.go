//go:build darwin
// +build darwin

package playerctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AppleScriptController implements Controller using AppleScript for macOS.
// It supports Apple Music and Spotify.
type AppleScriptController struct {
	mu            sync.Mutex
	preferred     string
	currentPlayer string // Cache the current active player
}

// NewController creates a controller for the current platform. player
// pins one application ("Music" or "Spotify"); empty means whichever plays.
func NewController(player string) Controller {
	return &AppleScriptController{preferred: player}
}

func (a *AppleScriptController) runAppleScript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// findActivePlayer checks the supported applications for one that is not stopped
func (a *AppleScriptController) findActivePlayer(ctx context.Context) (string, error) {
	players := []string{"Music", "Spotify"}
	if a.preferred != "" {
		players = []string{a.preferred}
	}

	for _, player := range players {
		checkScript := fmt.Sprintf(`
			tell application "System Events"
				if exists (process "%s") then
					tell application "%s"
						if player state is not stopped then
							return "true"
						end if
					end tell
				end if
				return "false"
			end tell`, player, player)

		result, err := a.runAppleScript(ctx, checkScript)
		if err == nil && result == "true" {
			return player, nil
		}
	}

	return "", errors.New("no active music player found")
}

// player returns the cached active player, looking it up when unknown.
func (a *AppleScriptController) player(ctx context.Context) (string, error) {
	a.mu.Lock()
	cached := a.currentPlayer
	a.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	return a.findActivePlayer(ctx)
}

func (a *AppleScriptController) Metadata(ctx context.Context) (Metadata, error) {
	player, err := a.findActivePlayer(ctx)
	if err != nil {
		a.mu.Lock()
		a.currentPlayer = ""
		a.mu.Unlock()
		return Metadata{}, ErrNothingPlaying
	}
	a.mu.Lock()
	a.currentPlayer = player
	a.mu.Unlock()

	// Spotify reports duration in milliseconds, Music in seconds.
	script := fmt.Sprintf(`tell application "%s"
		if player state is stopped then
			error "no song playing"
		end if
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set playerState to player state as string
		set trackDuration to duration of current track
		set playerPosition to player position
		set shuffleState to shuffling as string
		set repeatState to repeating as string
		return trackName & "|" & trackArtist & "|" & trackAlbum & "|" & playerState & "|" & playerPosition & "|" & trackDuration & "|" & shuffleState & "|" & repeatState
	end tell`, player)

	output, err := a.runAppleScript(ctx, script)
	if err != nil || output == "" {
		return Metadata{}, ErrNothingPlaying
	}

	parts := strings.Split(output, "|")
	if len(parts) != 8 {
		return Metadata{}, errors.New("unexpected metadata format")
	}

	md := Metadata{
		Title:   strings.TrimSpace(parts[0]),
		Artist:  strings.TrimSpace(parts[1]),
		Album:   strings.TrimSpace(parts[2]),
		Status:  capitalize(strings.TrimSpace(parts[3])),
		Shuffle: strings.TrimSpace(parts[6]) == "true",
		Loop:    LoopNone,
	}
	if strings.TrimSpace(parts[7]) == "true" {
		md.Loop = LoopPlaylist
	}
	if pos, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64); err == nil {
		md.Position = time.Duration(pos * float64(time.Second))
	}
	if d, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64); err == nil {
		if player == "Spotify" {
			md.Duration = time.Duration(d) * time.Millisecond
		} else {
			md.Duration = time.Duration(d * float64(time.Second))
		}
	}
	return md, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a *AppleScriptController) tell(ctx context.Context, verb string) error {
	player, err := a.player(ctx)
	if err != nil {
		return err
	}
	_, err = a.runAppleScript(ctx, fmt.Sprintf(`tell application "%s" to %s`, player, verb))
	return err
}

func (a *AppleScriptController) Control(ctx context.Context, cmd Command) error {
	verbs := map[Command]string{
		CmdPlay:      "play",
		CmdPause:     "pause",
		CmdPlayPause: "playpause",
		CmdStop:      "pause",
		CmdNext:      "next track",
		CmdPrevious:  "previous track",
	}
	verb, ok := verbs[cmd]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return a.tell(ctx, verb)
}

func (a *AppleScriptController) SetPosition(ctx context.Context, pos time.Duration) error {
	return a.tell(ctx, fmt.Sprintf("set player position to %.3f", pos.Seconds()))
}

func (a *AppleScriptController) SetShuffle(ctx context.Context, on bool) error {
	return a.tell(ctx, fmt.Sprintf("set shuffling to %t", on))
}

func (a *AppleScriptController) SetLoop(ctx context.Context, mode string) error {
	return a.tell(ctx, fmt.Sprintf("set repeating to %t", mode != LoopNone))
}

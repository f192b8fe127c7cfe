//go:build linux
// +build linux

package playerctl

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// PlayerctlController implements Controller using playerctl for Linux
type PlayerctlController struct {
	player string // passed as --player when set
}

// NewController creates a controller for the current platform. player
// narrows playerctl to one MPRIS player; empty means whichever is active.
func NewController(player string) Controller {
	return &PlayerctlController{player: player}
}

func (p *PlayerctlController) run(ctx context.Context, args ...string) (string, error) {
	if p.player != "" {
		args = append([]string{"--player", p.player}, args...)
	}
	cmd := exec.CommandContext(ctx, "playerctl", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func (p *PlayerctlController) Metadata(ctx context.Context) (Metadata, error) {
	// Tab separated so album names like "Artist | Sessions" survive
	output, err := p.run(ctx, "metadata", "--format",
		"{{title}}\t{{artist}}\t{{album}}\t{{status}}\t{{position}}\t{{mpris:length}}")
	if err != nil || output == "" {
		return Metadata{}, ErrNothingPlaying
	}
	md, err := parseMetadata(output)
	if err != nil {
		return Metadata{}, err
	}

	// Shuffle and loop are best effort; many players do not expose them.
	if s, err := p.run(ctx, "shuffle"); err == nil {
		md.Shuffle = s == "On"
	}
	if l, err := p.run(ctx, "loop"); err == nil {
		md.Loop = l
	}
	return md, nil
}

// parseMetadata splits playerctl's formatted output. Position and length
// are in microseconds.
func parseMetadata(output string) (Metadata, error) {
	parts := strings.Split(output, "\t")
	if len(parts) != 6 {
		return Metadata{}, fmt.Errorf("unexpected metadata format: got %d parts, expected 6", len(parts))
	}
	md := Metadata{
		Title:  strings.TrimSpace(parts[0]),
		Artist: strings.TrimSpace(parts[1]),
		Album:  strings.TrimSpace(parts[2]),
		Status: strings.TrimSpace(parts[3]),
		Loop:   LoopNone,
	}
	if us, err := strconv.ParseInt(strings.TrimSpace(parts[4]), 10, 64); err == nil {
		md.Position = time.Duration(us) * time.Microsecond
	}
	if us, err := strconv.ParseInt(strings.TrimSpace(parts[5]), 10, 64); err == nil {
		md.Duration = time.Duration(us) * time.Microsecond
	}
	return md, nil
}

func (p *PlayerctlController) Control(ctx context.Context, cmd Command) error {
	if _, err := p.run(ctx, string(cmd)); err != nil {
		return fmt.Errorf("playerctl %s failed: %w", cmd, err)
	}
	return nil
}

func (p *PlayerctlController) SetPosition(ctx context.Context, pos time.Duration) error {
	secs := strconv.FormatFloat(pos.Seconds(), 'f', 3, 64)
	if _, err := p.run(ctx, "position", secs); err != nil {
		return fmt.Errorf("playerctl position %s failed: %w", secs, err)
	}
	return nil
}

func (p *PlayerctlController) SetShuffle(ctx context.Context, on bool) error {
	arg := "Off"
	if on {
		arg = "On"
	}
	if _, err := p.run(ctx, "shuffle", arg); err != nil {
		return fmt.Errorf("playerctl shuffle %s failed: %w", arg, err)
	}
	return nil
}

func (p *PlayerctlController) SetLoop(ctx context.Context, mode string) error {
	if _, err := p.run(ctx, "loop", mode); err != nil {
		return fmt.Errorf("playerctl loop %s failed: %w", mode, err)
	}
	return nil
}

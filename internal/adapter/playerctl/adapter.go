package playerctl

import (
	"context"
	"fmt"
	"time"

	"extmedia/internal/emp"
)

// skipStep is how far FastForward and Rewind move.
const skipStep = 10 * time.Second

// Adapter exposes a Controller as an emp.Adapter.
type Adapter struct {
	id  string
	ctl Controller
}

// NewAdapter wraps ctl for the local player localID.
func NewAdapter(localID string, ctl Controller) *Adapter {
	return &Adapter{id: localID, ctl: ctl}
}

// ID returns the local player id.
func (a *Adapter) ID() string { return a.id }

// Login is a no-op; desktop players carry their own session.
func (a *Adapter) Login(_ context.Context, req emp.LoginRequest) error {
	log.Debugw("login ignored", "player", a.id, "username", req.Username)
	return nil
}

func (a *Adapter) Logout(context.Context) error {
	log.Debugw("logout ignored", "player", a.id)
	return nil
}

// Play starts playback. The playback context cannot be honored by a desktop
// player, only the offset.
func (a *Adapter) Play(ctx context.Context, req emp.PlayRequest) error {
	if err := a.ctl.Control(ctx, CmdPlay); err != nil {
		return a.failed("PLAY_FAILED", err)
	}
	if req.Offset > 0 {
		if err := a.ctl.SetPosition(ctx, req.Offset); err != nil {
			return a.failed("SEEK_FAILED", err)
		}
	}
	return nil
}

func (a *Adapter) PlayControl(ctx context.Context, req emp.RequestType) error {
	var err error
	switch req {
	case emp.RequestPlay, emp.RequestResume:
		err = a.ctl.Control(ctx, CmdPlay)
	case emp.RequestPause:
		err = a.ctl.Control(ctx, CmdPause)
	case emp.RequestStop:
		err = a.ctl.Control(ctx, CmdStop)
	case emp.RequestNext:
		err = a.ctl.Control(ctx, CmdNext)
	case emp.RequestPrevious:
		err = a.ctl.Control(ctx, CmdPrevious)
	case emp.RequestStartOver:
		err = a.ctl.SetPosition(ctx, 0)
	case emp.RequestFastForward:
		return a.AdjustSeek(ctx, skipStep)
	case emp.RequestRewind:
		return a.AdjustSeek(ctx, -skipStep)
	case emp.RequestEnableShuffle, emp.RequestDisableShuffle:
		err = a.ctl.SetShuffle(ctx, req == emp.RequestEnableShuffle)
	case emp.RequestEnableRepeat:
		err = a.ctl.SetLoop(ctx, LoopPlaylist)
	case emp.RequestEnableRepeatOne:
		err = a.ctl.SetLoop(ctx, LoopTrack)
	case emp.RequestDisableRepeat:
		err = a.ctl.SetLoop(ctx, LoopNone)
	default:
		return &emp.AdapterError{
			PlayerID:    a.id,
			Name:        "UNSUPPORTED_OPERATION",
			Description: fmt.Sprintf("%s is not supported by desktop players", req),
		}
	}
	if err != nil {
		return a.failed(req.String()+"_FAILED", err)
	}
	return nil
}

func (a *Adapter) Seek(ctx context.Context, pos time.Duration) error {
	if err := a.ctl.SetPosition(ctx, pos); err != nil {
		return a.failed("SEEK_FAILED", err)
	}
	return nil
}

// AdjustSeek moves relative to the current position, clamped to the track.
func (a *Adapter) AdjustSeek(ctx context.Context, delta time.Duration) error {
	md, err := a.ctl.Metadata(ctx)
	if err != nil {
		return a.failed("SEEK_FAILED", err)
	}
	pos := md.Position + delta
	if pos < 0 {
		pos = 0
	}
	if md.Duration > 0 && pos > md.Duration {
		pos = md.Duration
	}
	return a.Seek(ctx, pos)
}

// SupportedOperations lists what desktop players can do.
func (a *Adapter) SupportedOperations() []string {
	return []string{
		"Play", "Pause", "Stop", "Next", "Previous", "StartOver", "FastForward", "Rewind",
		"EnableRepeat", "EnableRepeatOne", "DisableRepeat", "EnableShuffle", "DisableShuffle",
		"SetSeekPosition", "AdjustSeekPosition",
	}
}

func (a *Adapter) failed(name string, err error) error {
	return &emp.AdapterError{PlayerID: a.id, Name: name, Description: err.Error()}
}

package playerctl

import (
	"context"
	"errors"
	"time"

	"extmedia/internal/emp"
)

// Reporter receives what the poller observes. *emp.Agent implements it.
type Reporter interface {
	ReportSessionProperties(playerID string, props emp.SessionProperties) error
	ReportPlaybackProperties(playerID string, props emp.PlaybackProperties) error
	ReportPlayerEvent(playerID, eventName string) error
}

// Player event names reported upstream.
const (
	EventTrackChanged    = "TrackChanged"
	EventPlaybackStarted = "PlaybackStarted"
	EventPlaybackStopped = "PlaybackStopped"
)

// Poller turns the controller's pull-only view into push reports.
type Poller struct {
	id       string
	ctl      Controller
	reporter Reporter
	interval time.Duration

	session bool
	last    *emp.PlaybackProperties
}

// NewPoller creates a poller for localID that polls every interval.
func NewPoller(localID string, ctl Controller, reporter Reporter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{id: localID, ctl: ctl, reporter: reporter, interval: interval}
}

// Run polls until ctx is done or the reporter shuts down.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			if errors.Is(err, emp.ErrShutdown) {
				return nil
			}
			log.Warnw("report failed", "player", p.id, "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the player's state once and reports what changed.
func (p *Poller) Poll(ctx context.Context) error {
	md, err := p.ctl.Metadata(ctx)
	if err != nil && !errors.Is(err, ErrNothingPlaying) {
		log.Debugw("metadata unavailable", "player", p.id, "err", err)
		return nil
	}

	if !p.session {
		if err := p.reporter.ReportSessionProperties(p.id, emp.SessionProperties{LoggedIn: true}); err != nil {
			return err
		}
		p.session = true
	}

	props := emp.PlaybackProperties{State: emp.ActivityIdle, Repeat: emp.RepeatNone, Favorite: emp.FavoriteNotRated}
	if err == nil {
		props = toProperties(md)
	}
	if p.last != nil && *p.last == props {
		return nil
	}

	previous := p.last
	p.last = &props
	if err := p.reporter.ReportPlaybackProperties(p.id, props); err != nil {
		return err
	}
	for _, name := range events(previous, props) {
		if err := p.reporter.ReportPlayerEvent(p.id, name); err != nil {
			return err
		}
	}
	return nil
}

// toProperties converts a poll. Positions are truncated to whole seconds
// so a playing track reports once a second, not on every poll.
func toProperties(md Metadata) emp.PlaybackProperties {
	props := emp.PlaybackProperties{
		State:     emp.ParseActivity(md.Status),
		TrackName: md.Title,
		Artist:    md.Artist,
		Album:     md.Album,
		Position:  md.Position.Truncate(time.Second),
		Duration:  md.Duration.Truncate(time.Second),
		Shuffle:   md.Shuffle,
		Repeat:    emp.RepeatNone,
		Favorite:  emp.FavoriteNotRated,
	}
	switch md.Loop {
	case LoopTrack:
		props.Repeat = emp.RepeatOne
	case LoopPlaylist:
		props.Repeat = emp.RepeatAll
	}
	return props
}

func events(previous *emp.PlaybackProperties, now emp.PlaybackProperties) []string {
	var out []string
	if previous == nil {
		if now.State == emp.ActivityPlaying {
			out = append(out, EventPlaybackStarted)
		}
		return out
	}
	if now.TrackName != "" && (now.TrackName != previous.TrackName || now.Artist != previous.Artist) {
		out = append(out, EventTrackChanged)
	}
	if now.State != previous.State {
		switch now.State {
		case emp.ActivityPlaying:
			out = append(out, EventPlaybackStarted)
		case emp.ActivityStopped, emp.ActivityIdle:
			out = append(out, EventPlaybackStopped)
		}
	}
	return out
}

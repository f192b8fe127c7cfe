package emp

import (
	"context"
	"encoding/json"
	"fmt"
)

// unknownState is reported for players that have not reported yet.
const unknownState = "UNKNOWN"

// SessionState is the session state document.
type SessionState struct {
	Agent         string          `json:"agent"`
	SPIVersion    string          `json:"spiVersion"`
	PlayerInFocus string          `json:"playerInFocus"`
	Players       []PlayerSession `json:"players"`
}

// PlayerSession is one player's entry in SessionState.
type PlayerSession struct {
	PlayerID      string `json:"playerId"`
	LocalPlayerID string `json:"localPlayerId"`
	EndpointID    string `json:"endpointId"`
	LoggedIn      bool   `json:"loggedIn"`
	Username      string `json:"username"`
	IsGuest       bool   `json:"isGuest"`
	Launched      bool   `json:"launched"`
	Active        bool   `json:"active"`
	Authorized    bool   `json:"authorized"`
	SPIVersion    string `json:"spiVersion"`
	SkillToken    string `json:"skillToken,omitempty"`
	Unknown       bool   `json:"unknown,omitempty"`
}

// PlaybackReport is the playback state of one player.
type PlaybackReport struct {
	State                string   `json:"state"`
	SupportedOperations  []string `json:"supportedOperations"`
	PositionMilliseconds int64    `json:"positionMilliseconds"`
	Shuffle              string   `json:"shuffle"`
	Repeat               string   `json:"repeat"`
	Favorite             string   `json:"favorite"`
	Media                Media    `json:"media"`
}

// Media describes the item a player is on.
type Media struct {
	Type  string     `json:"type"`
	Value MediaValue `json:"value"`
}

// MediaValue is the track metadata inside Media.
type MediaValue struct {
	TrackName              string `json:"trackName"`
	Artist                 string `json:"artist"`
	Album                  string `json:"album"`
	DurationInMilliseconds int64  `json:"durationInMilliseconds"`
}

// PlayerPlayback is one player's entry in PlaybackState.
type PlayerPlayback struct {
	PlayerID string `json:"playerId"`
	Unknown  bool   `json:"unknown,omitempty"`
	PlaybackReport
}

// PlaybackState is the playback state document. The top-level report is
// the one of the player in focus.
type PlaybackState struct {
	PlaybackReport
	Players []PlayerPlayback `json:"players"`
}

// OperationSupporter is implemented by adapters that support only a subset
// of the playback operations.
type OperationSupporter interface {
	SupportedOperations() []string
}

var defaultOperations = []string{
	"Play", "Pause", "Stop", "Next", "Previous", "StartOver", "FastForward", "Rewind",
	"EnableRepeat", "EnableRepeatOne", "DisableRepeat", "EnableShuffle", "DisableShuffle",
	"Favorite", "Unfavorite", "SetSeekPosition", "AdjustSeekPosition",
}

// SessionState builds the session document on the worker.
func (a *Agent) SessionState(ctx context.Context) (SessionState, error) {
	var doc SessionState
	err := a.exec.call(ctx, func() { doc = a.buildSessionState() })
	return doc, err
}

// PlaybackState builds the playback document on the worker.
func (a *Agent) PlaybackState(ctx context.Context) (PlaybackState, error) {
	var doc PlaybackState
	err := a.exec.call(ctx, func() { doc = a.buildPlaybackState() })
	return doc, err
}

// ProvideState answers a context manager pull. The token is echoed back
// unmodified.
func (a *Agent) ProvideState(name NamespaceAndName, token StateToken) error {
	return a.exec.submit(func() {
		if err := a.provideState(name, token); err != nil {
			log.Errorw("provide state", "name", name, "err", err)
		}
	})
}

func (a *Agent) provideState(name NamespaceAndName, token StateToken) error {
	if a.cfg.ContextManager == nil {
		return nil
	}
	var doc any
	switch name {
	case SessionStateName:
		doc = a.buildSessionState()
	case PlaybackStateName:
		doc = a.buildPlaybackState()
	default:
		return fmt.Errorf("unknown state provider %s", name)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return a.cfg.ContextManager.SetState(name, string(b), token)
}

// pushState publishes both documents unsolicited after a change.
func (a *Agent) pushState() {
	for _, name := range []NamespaceAndName{SessionStateName, PlaybackStateName} {
		if err := a.provideState(name, NoToken); err != nil {
			log.Errorw("push state", "name", name, "err", err)
		}
	}
}

func (a *Agent) buildSessionState() SessionState {
	focus := a.registry.focusID()
	doc := SessionState{
		Agent:         a.cfg.AgentID,
		SPIVersion:    SPIVersion,
		PlayerInFocus: "",
		Players:       []PlayerSession{},
	}
	for _, h := range a.registry.snapshot() {
		entry := PlayerSession{
			PlayerID:      h.id(),
			LocalPlayerID: h.localID,
			EndpointID:    a.cfg.AgentID,
			Active:        h.localID == focus,
			Authorized:    h.authorized,
			SPIVersion:    SPIVersion,
			SkillToken:    h.skillToken,
		}
		if h.discovery != nil && h.discovery.SPIVersion != "" {
			entry.SPIVersion = h.discovery.SPIVersion
		}
		if h.localID == focus {
			doc.PlayerInFocus = h.id()
		}
		if h.session == nil {
			entry.Unknown = true
		} else {
			entry.Launched = true
			entry.LoggedIn = h.session.LoggedIn
			entry.Username = h.session.Username
			entry.IsGuest = h.session.LoggedIn && h.session.Username == ""
		}
		doc.Players = append(doc.Players, entry)
	}
	return doc
}

func (a *Agent) buildPlaybackState() PlaybackState {
	focus := a.registry.focusID()
	doc := PlaybackState{
		PlaybackReport: idleReport(),
		Players:        []PlayerPlayback{},
	}
	for _, h := range a.registry.snapshot() {
		entry := PlayerPlayback{PlayerID: h.id()}
		if h.playback == nil {
			entry.Unknown = true
			entry.PlaybackReport = idleReport()
			entry.State = unknownState
		} else {
			entry.PlaybackReport = report(*h.playback, operations(h.adapter))
		}
		if h.localID == focus && h.playback != nil {
			doc.PlaybackReport = entry.PlaybackReport
		}
		doc.Players = append(doc.Players, entry)
	}
	return doc
}

func idleReport() PlaybackReport {
	return PlaybackReport{
		State:               ActivityIdle.String(),
		SupportedOperations: []string{},
		Shuffle:             "NOT_SHUFFLED",
		Repeat:              string(RepeatNone),
		Favorite:            string(FavoriteNotRated),
		Media:               Media{Type: "ExternalMediaPlayerMusicItem"},
	}
}

func report(p PlaybackProperties, ops []string) PlaybackReport {
	r := idleReport()
	r.State = p.State.String()
	r.SupportedOperations = ops
	r.PositionMilliseconds = p.Position.Milliseconds()
	if p.Shuffle {
		r.Shuffle = "SHUFFLED"
	}
	if p.Repeat != "" {
		r.Repeat = string(p.Repeat)
	}
	if p.Favorite != "" {
		r.Favorite = string(p.Favorite)
	}
	r.Media.Value = MediaValue{
		TrackName:              p.TrackName,
		Artist:                 p.Artist,
		Album:                  p.Album,
		DurationInMilliseconds: p.Duration.Milliseconds(),
	}
	return r
}

func operations(adapter Adapter) []string {
	if s, ok := adapter.(OperationSupporter); ok {
		return append([]string{}, s.SupportedOperations()...)
	}
	return append([]string{}, defaultOperations...)
}

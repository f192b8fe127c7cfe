package emp

import (
	"errors"
	"fmt"
)

// ReportSessionProperties records a new session snapshot for a player and
// fans it out.
func (a *Agent) ReportSessionProperties(playerID string, props SessionProperties) error {
	return a.exec.submit(func() {
		if !a.registry.update(playerID, func(h *handle) {
			s := props
			h.session = &s
		}) {
			log.Warnw("session report for unknown player", "player", playerID)
			return
		}
		a.changed(playerID)
	})
}

// ReportPlaybackProperties records a new playback snapshot for a player.
// When the player is in focus its state becomes the current activity.
func (a *Agent) ReportPlaybackProperties(playerID string, props PlaybackProperties) error {
	return a.exec.submit(func() {
		var localID string
		if !a.registry.update(playerID, func(h *handle) {
			p := props
			h.playback = &p
			h.activity = props.State
			localID = h.localID
		}) {
			log.Warnw("playback report for unknown player", "player", playerID)
			return
		}
		if localID == a.registry.focusID() {
			a.activity.set(props.State)
		}
		a.changed(playerID)
	})
}

// changed notifies observers about one player and pushes fresh context.
func (a *Agent) changed(playerID string) {
	var (
		id       string
		session  SessionProperties
		playback PlaybackProperties
	)
	if !a.registry.update(playerID, func(h *handle) {
		id = h.id()
		if h.session != nil {
			session = *h.session
		}
		if h.playback != nil {
			playback = *h.playback
		} else {
			playback.State = h.activity
		}
	}) {
		return
	}
	a.observers.notify(id, session, playback)
	a.pushState()
}

// ReportPlayerEvent forwards a named player event upstream.
func (a *Agent) ReportPlayerEvent(playerID, eventName string) error {
	return a.exec.submit(func() {
		t, ok := a.registry.resolve(playerID)
		if !ok {
			log.Warnw("event from unknown player", "player", playerID, "event", eventName)
			return
		}
		a.send(newEvent(EventPlayerEvent, PlayerEventPayload{PlayerID: t.playerID, EventName: eventName}))
	})
}

// ReportPlayerError forwards an adapter failure upstream. A fatal error
// stops the player.
func (a *Agent) ReportPlayerError(aerr *AdapterError) error {
	if aerr == nil {
		return errors.New("report player error: nil error")
	}
	return a.exec.submit(func() {
		t, ok := a.registry.resolve(aerr.PlayerID)
		if !ok {
			log.Warnw("error from unknown player", "player", aerr.PlayerID, "err", aerr)
			return
		}
		if aerr.Fatal {
			log.Errorw("player failed", "player", t.localID, "err", aerr)
			a.applyFatal(t.localID)
		} else {
			log.Warnw("player error", "player", t.localID, "err", aerr)
		}
		a.send(newEvent(EventPlayerError, PlayerErrorPayload{
			PlayerID:    t.playerID,
			ErrorName:   aerr.Name,
			Code:        aerr.Code,
			Description: aerr.Description,
			Fatal:       aerr.Fatal,
		}))
	})
}

// applyFatal forces a failed player to STOPPED. Worker only.
func (a *Agent) applyFatal(localID string) {
	if !a.registry.update(localID, func(h *handle) {
		h.activity = ActivityStopped
		if h.playback != nil {
			p := *h.playback
			p.State = ActivityStopped
			h.playback = &p
		}
	}) {
		return
	}
	if localID == a.registry.focusID() {
		a.activity.set(ActivityStopped)
	}
	a.changed(localID)
}

// RequestToken asks the cloud for a fresh access token for a player.
func (a *Agent) RequestToken(playerID string) error {
	return a.playerIDEvent(EventRequestToken, playerID, nil)
}

// LoginComplete tells the cloud a player finished logging in.
func (a *Agent) LoginComplete(playerID string) error {
	return a.playerIDEvent(EventLogin, playerID, func(h *handle) {
		s := SessionProperties{LoggedIn: true}
		if h.session != nil {
			s.Username = h.session.Username
		}
		h.session = &s
	})
}

// LogoutComplete tells the cloud a player logged out.
func (a *Agent) LogoutComplete(playerID string) error {
	return a.playerIDEvent(EventLogout, playerID, func(h *handle) {
		h.session = &SessionProperties{}
	})
}

func (a *Agent) playerIDEvent(name, playerID string, update func(h *handle)) error {
	if _, ok := a.registry.resolve(playerID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return a.exec.submit(func() {
		t, ok := a.registry.resolve(playerID)
		if !ok {
			return
		}
		a.send(newEvent(name, PlayerIDPayload{PlayerID: t.playerID}))
		if update != nil {
			a.registry.update(t.localID, update)
			a.changed(t.localID)
		}
	})
}

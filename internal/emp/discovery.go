package emp

import (
	"encoding/json"
	"fmt"
)

// ReportDiscoveredPlayers records the players found on the device and
// reports them upstream for authorization.
func (a *Agent) ReportDiscoveredPlayers(players []DiscoveredPlayer) error {
	cp := make([]DiscoveredPlayer, 0, len(players))
	for _, p := range players {
		if p.LocalPlayerID == "" {
			return fmt.Errorf("report discovered players: empty local player id")
		}
		if p.SPIVersion == "" {
			p.SPIVersion = SPIVersion
		}
		p.ValidationData = append([]string{}, p.ValidationData...)
		cp = append(cp, p)
	}

	return a.exec.submit(func() {
		for _, p := range cp {
			if !a.registry.discovered(p) {
				log.Debugw("discovered player has no adapter yet", "player", p.LocalPlayerID)
			}
		}
		if a.cfg.Store != nil {
			if err := a.cfg.Store.SaveDiscovered(a.ctx, cp); err != nil {
				log.Errorw("save discovered players", "err", err)
			}
		}
		a.send(newEvent(EventReportDiscoveredPlayers, DiscoveredPlayersPayload{
			Agent:   a.cfg.AgentID,
			Players: cp,
		}))
	})
}

// RemoveDiscoveredPlayer forgets a player that left the device, together
// with its adapter and authorization.
func (a *Agent) RemoveDiscoveredPlayer(localPlayerID string) error {
	return a.exec.submit(func() {
		a.arbiter.forget(localPlayerID)
		if a.registry.unregister(localPlayerID) {
			log.Infow("discovered player removed", "player", localPlayerID)
		}
		if a.cfg.Store != nil {
			if err := a.cfg.Store.RemovePlayer(a.ctx, localPlayerID); err != nil {
				log.Errorw("remove player", "player", localPlayerID, "err", err)
			}
		}
		a.pushState()
	})
}

// Authorize applies a stored authorization without involving the cloud,
// e.g. when restoring state at startup.
func (a *Agent) Authorize(auth Authorization) error {
	return a.exec.submit(func() {
		if !a.registry.authorize(auth) {
			log.Debugw("authorization for unregistered player", "player", auth.LocalPlayerID)
			return
		}
		a.pushState()
	})
}

type authorizePayload struct {
	Players []struct {
		LocalPlayerID string `json:"localPlayerId"`
		Authorized    bool   `json:"authorized"`
		Metadata      struct {
			PlayerID   string `json:"playerId"`
			SkillToken string `json:"skillToken"`
		} `json:"metadata"`
	} `json:"players"`
}

func (a *Agent) handleAuthorizeDiscoveredPlayers(_ target, _ RequestType, payload json.RawMessage) error {
	var p authorizePayload
	if err := decode(payload, &p); err != nil {
		return err
	}

	auths := make([]Authorization, 0, len(p.Players))
	for _, entry := range p.Players {
		if entry.LocalPlayerID == "" {
			return fmt.Errorf("%w: missing localPlayerId", ErrMalformedDirective)
		}
		auth := Authorization{
			LocalPlayerID: entry.LocalPlayerID,
			Authorized:    entry.Authorized,
			PlayerID:      entry.Metadata.PlayerID,
			SkillToken:    entry.Metadata.SkillToken,
		}
		if auth.Authorized && auth.PlayerID == "" {
			return fmt.Errorf("%w: authorized player %s has no playerId", ErrMalformedDirective, auth.LocalPlayerID)
		}
		auths = append(auths, auth)
	}

	done := AuthorizationCompletePayload{
		Authorized:   []AuthorizedPlayer{},
		Deauthorized: []DeauthorizedPlayer{},
	}
	for _, auth := range auths {
		if !a.registry.authorize(auth) {
			log.Infow("authorization for unregistered player", "player", auth.LocalPlayerID)
		}
		if a.cfg.Store != nil {
			if err := a.cfg.Store.SaveAuthorization(a.ctx, auth); err != nil {
				log.Errorw("save authorization", "player", auth.LocalPlayerID, "err", err)
			}
		}
		if t, ok := a.registry.resolve(auth.LocalPlayerID); ok {
			if authz, ok := t.adapter.(Authorizer); ok {
				if err := authz.Authorize(a.ctx, auth); err != nil {
					log.Warnw("adapter rejected authorization", "player", auth.LocalPlayerID, "err", err)
				}
			}
		}

		if auth.Authorized {
			done.Authorized = append(done.Authorized, AuthorizedPlayer{PlayerID: auth.PlayerID, SkillToken: auth.SkillToken})
		} else {
			done.Deauthorized = append(done.Deauthorized, DeauthorizedPlayer{LocalPlayerID: auth.LocalPlayerID})
		}
	}

	a.send(newEvent(EventAuthorizationComplete, done))
	a.pushState()
	return nil
}

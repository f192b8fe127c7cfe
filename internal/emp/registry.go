package emp

import (
	"sort"
	"sync"
)

// handle is the registry's record of one local player.
type handle struct {
	localID    string
	adapter    Adapter
	playerID   string // cloud id, set on authorization
	skillToken string
	authorized bool
	discovery  *DiscoveredPlayer

	activity PlayerActivity
	session  *SessionProperties
	playback *PlaybackProperties
}

// id returns the identifier the cloud knows the player by.
func (h *handle) id() string {
	if h.playerID != "" {
		return h.playerID
	}
	return h.localID
}

// registry maps player ids to adapters. Writes come from arbitrary
// goroutines; reads mostly from the agent's worker.
type registry struct {
	mu      sync.RWMutex
	players map[string]*handle // localID -> handle
	aliases map[string]string  // cloud playerID -> localID
	focus   string             // localID of the player in focus
}

func newRegistry() *registry {
	return &registry{
		players: make(map[string]*handle),
		aliases: make(map[string]string),
	}
}

// register adds or replaces the adapter for localID. Replacing keeps the
// authorization binding and the last reported state.
func (r *registry) register(localID string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.players[localID]; ok {
		h.adapter = a
		return
	}
	r.players[localID] = &handle{localID: localID, adapter: a}
}

// unregister removes localID. It reports whether anything was removed.
func (r *registry) unregister(localID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.players[localID]
	if !ok {
		return false
	}
	if h.playerID != "" {
		delete(r.aliases, h.playerID)
	}
	delete(r.players, localID)
	if r.focus == localID {
		r.focus = ""
	}
	return true
}

// target is what the router needs to invoke a player, copied out of the
// registry so no lock is held while the adapter runs.
type target struct {
	localID  string
	playerID string
	adapter  Adapter
}

func (h *handle) target() target {
	return target{localID: h.localID, playerID: h.id(), adapter: h.adapter}
}

// resolve finds a player by local id or by cloud player id.
func (r *registry) resolve(id string) (target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.resolveLocked(id)
	if !ok {
		return target{}, false
	}
	return h.target(), true
}

func (r *registry) resolveLocked(id string) (*handle, bool) {
	if id == "" {
		return nil, false
	}
	if h, ok := r.players[id]; ok {
		return h, true
	}
	if local, ok := r.aliases[id]; ok {
		h, ok := r.players[local]
		return h, ok
	}
	return nil, false
}

// all returns a target for every player ordered by local id.
func (r *registry) all() []target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]target, 0, len(r.players))
	for _, h := range r.players {
		out = append(out, h.target())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].localID < out[j].localID })
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// authorize binds the cloud player id to a registered local player.
func (r *registry) authorize(auth Authorization) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.players[auth.LocalPlayerID]
	if !ok {
		return false
	}
	if h.playerID != "" {
		delete(r.aliases, h.playerID)
	}
	h.authorized = auth.Authorized
	if auth.Authorized {
		h.playerID = auth.PlayerID
		h.skillToken = auth.SkillToken
		if auth.PlayerID != "" {
			r.aliases[auth.PlayerID] = auth.LocalPlayerID
		}
	} else {
		h.playerID = ""
		h.skillToken = ""
	}
	return true
}

// discovered attaches discovery metadata to a registered player.
func (r *registry) discovered(p DiscoveredPlayer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.players[p.LocalPlayerID]
	if !ok {
		return false
	}
	cp := p
	cp.ValidationData = append([]string(nil), p.ValidationData...)
	h.discovery = &cp
	return true
}

func (r *registry) setFocus(localID string) {
	r.mu.Lock()
	r.focus = localID
	r.mu.Unlock()
}

// inFocus returns the player in focus, if any.
func (r *registry) inFocus() (target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.focus == "" {
		return target{}, false
	}
	h, ok := r.players[r.focus]
	if !ok {
		return target{}, false
	}
	return h.target(), true
}

func (r *registry) focusID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focus
}

// update runs fn on the handle resolved from id under the write lock.
func (r *registry) update(id string, fn func(h *handle)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.resolveLocked(id)
	if !ok {
		return false
	}
	fn(h)
	return true
}

// snapshot copies the fields the aggregator reads, under the read lock.
func (r *registry) snapshot() []handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]handle, 0, len(r.players))
	for _, h := range r.players {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].localID < out[j].localID })
	return out
}

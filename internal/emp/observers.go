package emp

import (
	"sync"
	"sync/atomic"
)

type observerEntry struct {
	name    string
	obs     Observer
	removed atomic.Bool
}

// observerSet is an unordered set of named observers. Notifications walk a
// snapshot taken when they start, and skip entries removed since.
type observerSet struct {
	mu      sync.RWMutex
	entries map[string]*observerEntry
}

func newObserverSet() *observerSet {
	return &observerSet{entries: make(map[string]*observerEntry)}
}

// add registers obs under name, replacing any observer with the same name.
func (s *observerSet) add(name string, obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[name]; ok {
		old.removed.Store(true)
	}
	s.entries[name] = &observerEntry{name: name, obs: obs}
}

// remove unregisters name. It is safe to call from inside a callback.
func (s *observerSet) remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.removed.Store(true)
	delete(s.entries, name)
	return true
}

// clear detaches every observer.
func (s *observerSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range s.entries {
		e.removed.Store(true)
		delete(s.entries, name)
	}
}

func (s *observerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// notify calls every observer registered when the notification starts.
func (s *observerSet) notify(playerID string, session SessionProperties, playback PlaybackProperties) {
	s.mu.RLock()
	snapshot := make([]*observerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot = append(snapshot, e)
	}
	s.mu.RUnlock()

	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		e.call(playerID, session, playback)
	}
}

func (e *observerEntry) call(playerID string, session SessionProperties, playback PlaybackProperties) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("observer panicked", "observer", e.name, "panic", r)
		}
	}()
	e.obs.OnStateChanged(playerID, session, playback)
}

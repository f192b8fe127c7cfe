package main

import (
	"github.com/charmbracelet/bubbletea"

	"extmedia/internal/emp"
)

// State changed notification
type stateChangedMsg struct{}

// stateWatcher is the console's agent observer. Bursts of reports collapse
// into one pending notification; the model re-reads the documents anyway.
type stateWatcher struct {
	ch chan struct{}
}

var _ emp.Observer = (*stateWatcher)(nil)

func newStateWatcher() *stateWatcher {
	return &stateWatcher{ch: make(chan struct{}, 1)}
}

// OnStateChanged runs on the agent's worker and must not block.
func (w *stateWatcher) OnStateChanged(playerID string, _ emp.SessionProperties, playback emp.PlaybackProperties) {
	log.Debugw("state changed", "player", playerID, "state", playback.State, "track", playback.TrackName)
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Wait for the next state change
func (w *stateWatcher) wait() tea.Cmd {
	return func() tea.Msg {
		<-w.ch
		return stateChangedMsg{}
	}
}

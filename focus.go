package main

import (
	"sync"

	"extmedia/internal/emp"
)

// focusListener receives focus decisions. *emp.Agent implements it.
type focusListener interface {
	OnFocusChanged(state emp.FocusState) error
}

// desktopFocus is the focus manager of a desktop with no other audio
// consumers: the content channel is always available, so a request waiting
// for it is granted as soon as it is made.
type desktopFocus struct {
	mu       sync.Mutex
	listener focusListener
	held     bool
}

func (f *desktopFocus) setListener(l focusListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *desktopFocus) AcquireChannel(channel, interfaceName string) error {
	f.mu.Lock()
	wasHeld := f.held
	f.held = true
	l := f.listener
	f.mu.Unlock()

	log.Debugw("channel acquired", "channel", channel, "interface", interfaceName)
	// A second acquire while held is a handover request; answer it later,
	// the agent is waiting on its own worker.
	if wasHeld && l != nil {
		go func() {
			if err := l.OnFocusChanged(emp.FocusForeground); err != nil {
				log.Debugw("focus answer dropped", "err", err)
			}
		}()
	}
	return nil
}

func (f *desktopFocus) ReleaseChannel(channel string) error {
	f.mu.Lock()
	f.held = false
	f.mu.Unlock()
	log.Debugw("channel released", "channel", channel)
	return nil
}

// duck simulates another application taking the channel and giving it back.
func (f *desktopFocus) duck(ducked bool) error {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	if l == nil {
		return nil
	}
	if ducked {
		return l.OnFocusChanged(emp.FocusBackground)
	}
	return l.OnFocusChanged(emp.FocusForeground)
}

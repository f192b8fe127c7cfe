package emp

import (
	"errors"
	"fmt"
)

const (
	// ContentChannel is the shared audio channel external players compete for.
	ContentChannel = "Content"
	// focusInterface is the name the agent acquires the channel under.
	focusInterface = "ExternalMediaPlayer"
)

// FocusResult is the synchronous answer to a focus request.
type FocusResult int

const (
	// FocusGranted means the requester holds the channel now.
	FocusGranted FocusResult = iota
	// FocusPending means the answer arrives later.
	FocusPending
)

func (r FocusResult) String() string {
	if r == FocusGranted {
		return "GRANTED"
	}
	return "PENDING"
}

var errNotHolder = errors.New("player does not hold focus")

// arbiter owns the shared content channel. It is not safe for concurrent
// use; the agent only touches it from its worker.
type arbiter struct {
	fm       FocusManager
	activity *activityTracker

	focus   FocusState
	holder  string // local id of the focus holder
	pending string // local id waiting for the channel
	halt    HaltInitiator

	// control instructs a player to pause, stop or resume.
	control func(localID string, req RequestType)
	// decided reports the outcome of a pending request; nil means granted.
	decided func(localID string, err error)
}

func newArbiter(fm FocusManager, activity *activityTracker) *arbiter {
	return &arbiter{
		fm:       fm,
		activity: activity,
		control:  func(string, RequestType) {},
		decided:  func(string, error) {},
	}
}

// request asks for the channel on behalf of id. A grant whose channel
// acquisition fails still returns FocusGranted together with ErrFocusDenied;
// the player keeps going in the background.
func (a *arbiter) request(id string) (FocusResult, error) {
	switch {
	case a.holder == id && a.focus != FocusNone:
		if a.pending != "" {
			a.decided(a.pending, fmt.Errorf("%w: superseded by %s", ErrFocusDenied, id))
			a.pending = ""
		}
		return FocusGranted, nil
	case a.holder == "" || a.focus == FocusNone:
		return FocusGranted, a.grant(id)
	}

	if a.pending != "" && a.pending != id {
		a.decided(a.pending, fmt.Errorf("%w: superseded by %s", ErrFocusDenied, id))
	}
	a.pending = id
	if a.fm != nil {
		if err := a.fm.AcquireChannel(ContentChannel, focusInterface); err != nil {
			a.pending = ""
			return FocusPending, fmt.Errorf("%w: %v", ErrFocusDenied, err)
		}
	}
	return FocusPending, nil
}

// grant hands the channel to id without consulting anybody else.
func (a *arbiter) grant(id string) error {
	a.holder = id
	a.focus = FocusForeground
	a.halt = HaltNone
	if a.fm == nil {
		return nil
	}
	if err := a.fm.AcquireChannel(ContentChannel, focusInterface); err != nil {
		a.focus = FocusBackground
		return fmt.Errorf("%w: %v", ErrFocusDenied, err)
	}
	return nil
}

// changed applies a focus transition decided outside the agent.
func (a *arbiter) changed(state FocusState) {
	if a.pending != "" {
		switch state {
		case FocusForeground:
			a.handOver()
			return
		case FocusNone:
			denied := a.pending
			a.pending = ""
			a.decided(denied, ErrFocusDenied)
		}
	}

	if a.focus == state {
		return
	}
	previous := a.halt
	a.focus = state
	a.halt = HaltNone
	if a.holder == "" {
		return
	}

	active := a.activity.get() == ActivityPlaying || a.activity.get() == ActivityBufferUnderrun
	switch state {
	case FocusForeground:
		if previous == HaltFocusChangePause && a.activity.get() == ActivityPaused {
			a.control(a.holder, RequestResume)
			a.activity.set(ActivityPlaying)
		}
	case FocusBackground:
		if active {
			a.halt = HaltFocusChangePause
			a.control(a.holder, RequestPause)
			a.activity.set(ActivityPaused)
		}
	case FocusNone:
		if active {
			a.halt = HaltFocusChangeStop
			a.control(a.holder, RequestStop)
			a.activity.set(ActivityStopped)
		}
	}
}

// handOver gives the channel to the pending player once the focus manager
// has granted it.
func (a *arbiter) handOver() {
	next := a.pending
	a.pending = ""
	if a.holder != "" && a.holder != next && a.activity.get() == ActivityPlaying {
		a.control(a.holder, RequestPause)
	}
	a.holder = next
	a.focus = FocusForeground
	a.halt = HaltNone
	a.decided(next, nil)
}

// release gives up the channel. Only the holder may release. A pending
// request is granted right after.
func (a *arbiter) release(id string) error {
	if id == "" || id != a.holder {
		return errNotHolder
	}
	a.holder = ""
	a.focus = FocusNone
	a.halt = HaltNone

	var err error
	if a.fm != nil {
		err = a.fm.ReleaseChannel(ContentChannel)
	}
	if next := a.pending; next != "" {
		a.pending = ""
		a.decided(next, a.grant(next))
	}
	return err
}

// forget drops every reference to id, used when its adapter goes away.
func (a *arbiter) forget(id string) {
	if a.pending == id {
		a.pending = ""
	}
	if a.holder == id {
		_ = a.release(id)
	}
}

// setHalt records the initiator implied by a directive or button press.
func (a *arbiter) setHalt(req RequestType) {
	switch req {
	case RequestPlay, RequestResume:
		a.halt = HaltNone
	case RequestPause, RequestStop:
		a.halt = HaltExternalPause
	}
}

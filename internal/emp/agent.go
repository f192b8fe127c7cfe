// Package emp implements the External Media Player capability agent. It
// routes cloud directives to registered local player adapters, arbitrates
// the shared content channel between them and publishes their aggregated
// session and playback state.
package emp

import (
	"context"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("emp")

const (
	// Namespace is the directive and event namespace of the agent.
	Namespace = "ExternalMediaPlayer"
	// SPIVersion is the only adapter SPI version in existence.
	SPIVersion = "1.0"
)

var (
	// SessionStateName names the session state document.
	SessionStateName = NamespaceAndName{Namespace: Namespace, Name: "ExternalMediaPlayerState"}
	// PlaybackStateName names the playback state document.
	PlaybackStateName = NamespaceAndName{Namespace: "Alexa.PlaybackStateReporter", Name: "playbackState"}
)

// Config wires the agent to its collaborators. Nil collaborators are
// replaced with no-ops.
type Config struct {
	AgentID         string
	MessageSender   MessageSender
	ExceptionSender ExceptionSender
	ContextManager  ContextManager
	FocusManager    FocusManager
	PlaybackRouter  PlaybackRouter
	Store           PlayerStore
}

// Agent is the capability agent. All of its state changes happen on one
// worker goroutine; public methods may be called from anywhere.
type Agent struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	exec      *executor
	registry  *registry
	activity  *activityTracker
	arbiter   *arbiter
	observers *observerSet
	routes    map[NamespaceAndName]route
	caps      []CapabilityConfiguration

	inflightMu sync.Mutex
	inflight   map[string]*directiveInfo
}

// New creates an agent and starts its worker.
func New(cfg Config) *Agent {
	if cfg.MessageSender == nil {
		cfg.MessageSender = nopSender{}
	}
	if cfg.ExceptionSender == nil {
		cfg.ExceptionSender = nopSender{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		exec:      newExecutor(),
		registry:  newRegistry(),
		activity:  newActivityTracker(),
		observers: newObserverSet(),
		routes:    newRoutes(),
		caps:      newCapabilityConfigurations(),
		inflight:  make(map[string]*directiveInfo),
	}
	a.arbiter = newArbiter(cfg.FocusManager, a.activity)
	a.arbiter.control = a.haltOrResume
	a.arbiter.decided = a.focusDecided
	return a
}

// RegisterAdapter adds or replaces the adapter for a local player id.
func (a *Agent) RegisterAdapter(localPlayerID string, adapter Adapter) error {
	if localPlayerID == "" || adapter == nil {
		return fmt.Errorf("register adapter: empty player id or nil adapter")
	}
	if a.closed() {
		return ErrShutdown
	}
	a.registry.register(localPlayerID, adapter)
	log.Infow("adapter registered", "player", localPlayerID)
	return nil
}

// UnregisterAdapter removes a player. Removing an unknown player is a no-op.
func (a *Agent) UnregisterAdapter(localPlayerID string) error {
	if a.closed() {
		return ErrShutdown
	}
	if !a.registry.unregister(localPlayerID) {
		return nil
	}
	log.Infow("adapter unregistered", "player", localPlayerID)
	return a.exec.submit(func() {
		a.arbiter.forget(localPlayerID)
	})
}

// SetPlayerInFocus makes a player the default target of global directives
// and button presses, once focus has been granted to it.
func (a *Agent) SetPlayerInFocus(playerID string) error {
	return a.exec.submit(func() {
		a.setPlayerInFocus(playerID)
	})
}

// PlayerInFocus returns the local id of the player in focus.
func (a *Agent) PlayerInFocus() string {
	return a.registry.focusID()
}

// RequestFocus asks the arbiter for the content channel on behalf of a
// player. Runs on the worker and waits for the synchronous answer.
func (a *Agent) RequestFocus(ctx context.Context, playerID string) (FocusResult, error) {
	var (
		res FocusResult
		err error
	)
	if cerr := a.exec.call(ctx, func() {
		res, err = a.requestFocus(playerID)
	}); cerr != nil {
		return FocusPending, cerr
	}
	return res, err
}

// ReleaseFocus gives up the channel. Only the current holder may release.
func (a *Agent) ReleaseFocus(ctx context.Context, playerID string) error {
	var err error
	if cerr := a.exec.call(ctx, func() {
		t, ok := a.registry.resolve(playerID)
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
			return
		}
		err = a.arbiter.release(t.localID)
	}); cerr != nil {
		return cerr
	}
	return err
}

// OnFocusChanged is called by the focus manager when the channel state
// changes for reasons the agent did not ask for.
func (a *Agent) OnFocusChanged(state FocusState) error {
	return a.exec.submit(func() {
		log.Debugw("focus changed", "state", state, "holder", a.arbiter.holder)
		a.arbiter.changed(state)
	})
}

// FocusSnapshot describes the arbiter's state.
type FocusSnapshot struct {
	State   FocusState
	Holder  string
	Pending string
	Halt    HaltInitiator
}

// Focus returns the arbiter's state as seen by the worker.
func (a *Agent) Focus(ctx context.Context) (FocusSnapshot, error) {
	var snap FocusSnapshot
	err := a.exec.call(ctx, func() {
		snap = FocusSnapshot{
			State:   a.arbiter.focus,
			Holder:  a.arbiter.holder,
			Pending: a.arbiter.pending,
			Halt:    a.arbiter.halt,
		}
	})
	return snap, err
}

// SetCurrentActivity records the activity of the player in focus.
func (a *Agent) SetCurrentActivity(activity PlayerActivity) {
	a.activity.set(activity)
}

// CurrentActivity returns the activity of the player in focus.
func (a *Agent) CurrentActivity() PlayerActivity {
	return a.activity.get()
}

// WaitForActivity blocks until the current activity equals want or the
// timeout expires, and reports which happened.
func (a *Agent) WaitForActivity(timeout time.Duration, want PlayerActivity) bool {
	return a.activity.wait(timeout, want)
}

// AddObserver registers an observer under name. A second observer with
// the same name replaces the first.
func (a *Agent) AddObserver(name string, obs Observer) error {
	if a.closed() {
		return ErrShutdown
	}
	a.observers.add(name, obs)
	return nil
}

// RemoveObserver unregisters the observer called name. It may be called
// from inside the observer's own callback. When another goroutine removes an
// observer, a notification already past its removed check still delivers
// that one call; later notifications skip it.
func (a *Agent) RemoveObserver(name string) {
	a.observers.remove(name)
}

// Shutdown drains queued work, detaches observers and releases focus.
// Afterwards every entry point is rejected.
func (a *Agent) Shutdown(ctx context.Context) error {
	err := a.exec.close(ctx, func() {
		a.observers.clear()
		if pending := a.arbiter.pending; pending != "" {
			a.arbiter.pending = ""
			a.arbiter.decided(pending, fmt.Errorf("%w: agent shutting down", ErrFocusDenied))
		}
		if holder := a.arbiter.holder; holder != "" {
			if err := a.arbiter.release(holder); err != nil {
				log.Warnw("release focus on shutdown", "player", holder, "err", err)
			}
		}
	})
	a.cancel()

	a.inflightMu.Lock()
	for id, info := range a.inflight {
		info.cancel()
		delete(a.inflight, id)
	}
	a.inflightMu.Unlock()

	log.Info("agent shut down")
	return err
}

func (a *Agent) closed() bool {
	return a.exec.isClosed()
}

// requestFocus resolves id and asks the arbiter. Worker only.
func (a *Agent) requestFocus(playerID string) (FocusResult, error) {
	t, ok := a.registry.resolve(playerID)
	if !ok {
		return FocusPending, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	res, err := a.arbiter.request(t.localID)
	if res == FocusGranted {
		a.focusGranted(t.localID)
	}
	return res, err
}

func (a *Agent) setPlayerInFocus(playerID string) {
	res, err := a.requestFocus(playerID)
	if err != nil {
		log.Warnw("set player in focus", "player", playerID, "result", res, "err", err)
		return
	}
	log.Infow("player in focus requested", "player", playerID, "result", res)
}

// focusDecided receives the late answer to a pending focus request.
func (a *Agent) focusDecided(localID string, err error) {
	if err != nil {
		// Denial is not fatal: the player keeps playing unfocused.
		log.Warnw("focus not granted", "player", localID, "err", err)
	}
	if a.arbiter.holder == localID {
		a.focusGranted(localID)
	}
}

func (a *Agent) focusGranted(localID string) {
	previous := a.registry.focusID()
	a.registry.setFocus(localID)
	if previous == localID {
		return
	}

	activity := ActivityIdle
	a.registry.update(localID, func(h *handle) {
		activity = h.activity
	})
	a.activity.set(activity)

	if a.cfg.PlaybackRouter != nil {
		a.cfg.PlaybackRouter.SetHandler(a)
	}
	log.Infow("player in focus", "player", localID, "previous", previous)
	a.pushState()
}

// haltOrResume carries out a focus-driven control request.
func (a *Agent) haltOrResume(localID string, req RequestType) {
	t, ok := a.registry.resolve(localID)
	if !ok {
		return
	}
	if err := t.adapter.PlayControl(a.ctx, req); err != nil {
		log.Warnw("focus-driven control failed", "player", localID, "request", req, "err", err)
	}
	state := ActivityPaused
	switch req {
	case RequestResume:
		state = ActivityPlaying
	case RequestStop:
		state = ActivityStopped
	}
	a.registry.update(localID, func(h *handle) { h.activity = state })
}

type nopSender struct{}

func (nopSender) SendEvent(Event) error { return nil }

func (nopSender) SendExceptionEncountered(string, ExceptionErrorType, string) error { return nil }

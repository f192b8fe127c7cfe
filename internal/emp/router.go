package emp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	playbackController  = "Alexa.PlaybackController"
	playlistController  = "Alexa.PlaylistController"
	seekController      = "Alexa.SeekController"
	favoritesController = "Alexa.FavoritesController"

	// maxSeekDelta bounds AdjustSeekPosition to one day either way.
	maxSeekDelta = 24 * time.Hour
)

// millis converts a millisecond count from a payload, rejecting values a
// time.Duration cannot hold.
func millis(ms int64, field string) (time.Duration, error) {
	const limit = math.MaxInt64 / int64(time.Millisecond)
	if ms > limit || ms < -limit {
		return 0, fmt.Errorf("%w: %s out of range", ErrMalformedDirective, field)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// handlerFunc executes one directive against its target. Worker only.
type handlerFunc func(a *Agent, t target, req RequestType, payload json.RawMessage) error

type route struct {
	request RequestType
	handler handlerFunc
	// global routes do not target a player.
	global bool
}

// newRoutes builds the dispatch table. It is never modified afterwards.
func newRoutes() map[NamespaceAndName]route {
	routes := map[NamespaceAndName]route{
		{Namespace, "Login"}:                      {request: RequestLogin, handler: (*Agent).handleLogin},
		{Namespace, "Logout"}:                     {request: RequestLogout, handler: (*Agent).handleLogout},
		{Namespace, "Play"}:                       {request: RequestPlay, handler: (*Agent).handlePlay},
		{Namespace, "AuthorizeDiscoveredPlayers"}: {request: RequestAuthorizeDiscoveredPlayers, handler: (*Agent).handleAuthorizeDiscoveredPlayers, global: true},

		{seekController, "SetSeekPosition"}:    {request: RequestSeek, handler: (*Agent).handleSeek},
		{seekController, "AdjustSeekPosition"}: {request: RequestAdjustSeek, handler: (*Agent).handleAdjustSeek},
	}

	controls := []struct {
		namespace string
		name      string
		request   RequestType
	}{
		{playbackController, "Play", RequestResume},
		{playbackController, "Pause", RequestPause},
		{playbackController, "Stop", RequestStop},
		{playbackController, "Next", RequestNext},
		{playbackController, "Previous", RequestPrevious},
		{playbackController, "StartOver", RequestStartOver},
		{playbackController, "FastForward", RequestFastForward},
		{playbackController, "Rewind", RequestRewind},
		{playlistController, "EnableRepeatOne", RequestEnableRepeatOne},
		{playlistController, "EnableRepeat", RequestEnableRepeat},
		{playlistController, "DisableRepeat", RequestDisableRepeat},
		{playlistController, "EnableShuffle", RequestEnableShuffle},
		{playlistController, "DisableShuffle", RequestDisableShuffle},
		{favoritesController, "Favorite", RequestFavorite},
		{favoritesController, "Unfavorite", RequestUnfavorite},
	}
	for _, c := range controls {
		routes[NamespaceAndName{c.namespace, c.name}] = route{request: c.request, handler: (*Agent).handlePlayControl}
	}
	return routes
}

// BlockingPolicy tells the directive sequencer how a directive uses the
// device's mediums.
type BlockingPolicy struct {
	Medium   string
	Blocking bool
}

// Configuration returns the blocking policy for every routed directive.
func (a *Agent) Configuration() map[NamespaceAndName]BlockingPolicy {
	out := make(map[NamespaceAndName]BlockingPolicy, len(a.routes))
	for id := range a.routes {
		out[id] = BlockingPolicy{Medium: "AUDIO", Blocking: false}
	}
	return out
}

// directiveInfo tracks one outstanding directive. Cancellation can race
// with the worker, hence the mutex.
type directiveInfo struct {
	directive *Directive
	result    Result

	mu       sync.Mutex
	started  bool
	canceled bool
	done     bool
}

// start reports whether the handler may run.
func (d *directiveInfo) start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.canceled {
		return false
	}
	d.started = true
	return true
}

func (d *directiveInfo) cancel() {
	d.mu.Lock()
	d.canceled = true
	d.mu.Unlock()
}

// finish reports whether the completion callback should fire.
func (d *directiveInfo) finish() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.canceled || d.done {
		return false
	}
	d.done = true
	return true
}

// HandleDirective accepts a directive for asynchronous handling. The
// outcome is reported to result, which may be nil.
func (a *Agent) HandleDirective(d *Directive, result Result) error {
	if d == nil {
		return fmt.Errorf("%w: nil directive", ErrMalformedDirective)
	}
	info := &directiveInfo{directive: d, result: result}

	if d.MessageID != "" {
		a.inflightMu.Lock()
		if _, dup := a.inflight[d.MessageID]; dup {
			a.inflightMu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateDirective, d.MessageID)
		}
		a.inflight[d.MessageID] = info
		a.inflightMu.Unlock()
	}

	if err := a.exec.submit(func() { a.process(info) }); err != nil {
		a.forgetDirective(info)
		return err
	}
	return nil
}

// HandleDirectiveImmediately handles a directive nobody waits on.
func (a *Agent) HandleDirectiveImmediately(d *Directive) error {
	return a.HandleDirective(d, nil)
}

// CancelDirective drops a directive that has not started, or suppresses
// the completion of one that has. Adapters are not interrupted.
func (a *Agent) CancelDirective(messageID string) {
	a.inflightMu.Lock()
	info, ok := a.inflight[messageID]
	delete(a.inflight, messageID)
	a.inflightMu.Unlock()

	if ok {
		info.cancel()
		log.Debugw("directive canceled", "messageId", messageID)
	}
}

func (a *Agent) forgetDirective(info *directiveInfo) {
	id := info.directive.MessageID
	if id == "" {
		return
	}
	a.inflightMu.Lock()
	if a.inflight[id] == info {
		delete(a.inflight, id)
	}
	a.inflightMu.Unlock()
}

// process runs on the worker.
func (a *Agent) process(info *directiveInfo) {
	if !info.start() {
		log.Debugw("directive dropped before handling", "messageId", info.directive.MessageID)
		return
	}
	err := a.dispatch(info.directive)
	a.forgetDirective(info)

	if err != nil {
		d := info.directive
		log.Warnw("directive failed", "directive", d.Identity(), "messageId", d.MessageID, "err", err)
		if serr := a.cfg.ExceptionSender.SendExceptionEncountered(unparsed(d), exceptionType(err), err.Error()); serr != nil {
			log.Errorw("send exception", "err", serr)
		}
	}
	if !info.finish() || info.result == nil {
		return
	}
	if err != nil {
		info.result.SetFailed(err.Error())
		return
	}
	info.result.SetCompleted()
}

// basePayload holds the fields every targeted directive may carry.
type basePayload struct {
	PlayerID *string `json:"playerId"`
}

// dispatch validates d, resolves its target and runs its handler.
func (a *Agent) dispatch(d *Directive) error {
	r, ok := a.routes[d.Identity()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDirective, d.Identity())
	}

	payload := bytes.TrimSpace(d.Payload)
	if len(payload) == 0 || payload[0] != '{' {
		return fmt.Errorf("%w: payload is not an object", ErrMalformedDirective)
	}
	var base basePayload
	if err := json.Unmarshal(payload, &base); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDirective, err)
	}

	if r.global {
		return r.handler(a, target{}, r.request, payload)
	}

	var (
		t     target
		found bool
	)
	if base.PlayerID != nil && *base.PlayerID != "" {
		t, found = a.registry.resolve(*base.PlayerID)
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, *base.PlayerID)
		}
	} else {
		t, found = a.registry.inFocus()
		if !found {
			return fmt.Errorf("%w: no player id and no player in focus", ErrUnknownPlayer)
		}
	}

	err := r.handler(a, t, r.request, payload)
	var aerr *AdapterError
	if errors.As(err, &aerr) && aerr.Fatal {
		a.applyFatal(t.localID)
	}
	return err
}

func unparsed(d *Directive) string {
	b, err := json.Marshal(d)
	if err != nil {
		return d.Identity().String()
	}
	return string(b)
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDirective, err)
	}
	return nil
}

func (a *Agent) handleLogin(t target, _ RequestType, payload json.RawMessage) error {
	var p struct {
		AccessToken          string `json:"accessToken"`
		Username             string `json:"username"`
		TokenRefreshInterval int64  `json:"tokenRefreshIntervalInMilliseconds"`
		ForceLogin           bool   `json:"forceLogin"`
	}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.AccessToken == "" {
		return fmt.Errorf("%w: missing accessToken", ErrMalformedDirective)
	}
	return t.adapter.Login(a.ctx, LoginRequest{
		AccessToken:          p.AccessToken,
		Username:             p.Username,
		TokenRefreshInterval: time.Duration(p.TokenRefreshInterval) * time.Millisecond,
		ForceLogin:           p.ForceLogin,
	})
}

func (a *Agent) handleLogout(t target, _ RequestType, _ json.RawMessage) error {
	return t.adapter.Logout(a.ctx)
}

func (a *Agent) handlePlay(t target, req RequestType, payload json.RawMessage) error {
	var p struct {
		PlaybackContextToken string `json:"playbackContextToken"`
		Index                int64  `json:"index"`
		Offset               int64  `json:"offsetInMilliseconds"`
		SkillToken           string `json:"skillToken"`
		PlaybackSessionID    string `json:"playbackSessionId"`
		Navigation           string `json:"navigation"`
		Preload              bool   `json:"preload"`
	}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.PlaybackContextToken == "" {
		return fmt.Errorf("%w: missing playbackContextToken", ErrMalformedDirective)
	}
	offset, err := millis(p.Offset, "offsetInMilliseconds")
	if err != nil {
		return err
	}

	a.arbiter.setHalt(req)
	a.acquireFor(t)
	return t.adapter.Play(a.ctx, PlayRequest{
		PlaybackContextToken: p.PlaybackContextToken,
		Index:                p.Index,
		Offset:               offset,
		SkillToken:           p.SkillToken,
		PlaybackSessionID:    p.PlaybackSessionID,
		Navigation:           p.Navigation,
		Preload:              p.Preload,
	})
}

func (a *Agent) handlePlayControl(t target, req RequestType, _ json.RawMessage) error {
	a.arbiter.setHalt(req)
	if req == RequestResume {
		a.acquireFor(t)
	}
	return t.adapter.PlayControl(a.ctx, req)
}

func (a *Agent) handleSeek(t target, _ RequestType, payload json.RawMessage) error {
	var p struct {
		Position *int64 `json:"positionMilliseconds"`
	}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.Position == nil || *p.Position < 0 {
		return fmt.Errorf("%w: invalid positionMilliseconds", ErrMalformedDirective)
	}
	pos, err := millis(*p.Position, "positionMilliseconds")
	if err != nil {
		return err
	}
	return t.adapter.Seek(a.ctx, pos)
}

func (a *Agent) handleAdjustSeek(t target, _ RequestType, payload json.RawMessage) error {
	var p struct {
		Delta *int64 `json:"deltaPositionMilliseconds"`
	}
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.Delta == nil {
		return fmt.Errorf("%w: missing deltaPositionMilliseconds", ErrMalformedDirective)
	}
	delta, err := millis(*p.Delta, "deltaPositionMilliseconds")
	if err != nil {
		return err
	}
	if delta > maxSeekDelta || delta < -maxSeekDelta {
		return fmt.Errorf("%w: deltaPositionMilliseconds out of range", ErrMalformedDirective)
	}
	return t.adapter.AdjustSeek(a.ctx, delta)
}

// acquireFor requests focus before playback starts. A denial only degrades
// the directive to background playback.
func (a *Agent) acquireFor(t target) {
	res, err := a.arbiter.request(t.localID)
	if res == FocusGranted {
		a.focusGranted(t.localID)
	}
	if err != nil {
		log.Warnw("playing without foreground focus", "player", t.localID, "err", err)
	}
}

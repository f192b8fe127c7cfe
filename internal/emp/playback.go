package emp

var buttonRequests = map[PlaybackButton]RequestType{
	ButtonPlay:         RequestResume,
	ButtonPause:        RequestPause,
	ButtonNext:         RequestNext,
	ButtonPrevious:     RequestPrevious,
	ButtonSkipForward:  RequestFastForward,
	ButtonSkipBackward: RequestRewind,
}

// toggleRequests maps a toggle to its (on, off) requests.
var toggleRequests = map[PlaybackToggle][2]RequestType{
	ToggleShuffle:    {RequestEnableShuffle, RequestDisableShuffle},
	ToggleLoop:       {RequestEnableRepeat, RequestDisableRepeat},
	ToggleRepeat:     {RequestEnableRepeatOne, RequestDisableRepeat},
	ToggleThumbsUp:   {RequestFavorite, RequestDeselectFavorite},
	ToggleThumbsDown: {RequestUnfavorite, RequestDeselectUnfavorite},
}

// OnButtonPressed sends a button press to the player in focus.
func (a *Agent) OnButtonPressed(button PlaybackButton) {
	req, ok := buttonRequests[button]
	if !ok {
		log.Warnw("unknown playback button", "button", int(button))
		return
	}
	a.pressed(req)
}

// OnTogglePressed sends a toggle change to the player in focus.
func (a *Agent) OnTogglePressed(toggle PlaybackToggle, action bool) {
	reqs, ok := toggleRequests[toggle]
	if !ok {
		log.Warnw("unknown playback toggle", "toggle", int(toggle))
		return
	}
	req := reqs[1]
	if action {
		req = reqs[0]
	}
	a.pressed(req)
}

func (a *Agent) pressed(req RequestType) {
	err := a.exec.submit(func() {
		t, ok := a.registry.inFocus()
		if !ok {
			log.Infow("playback control with no player in focus", "request", req)
			return
		}
		a.arbiter.setHalt(req)
		if req == RequestResume {
			a.acquireFor(t)
		}
		if err := t.adapter.PlayControl(a.ctx, req); err != nil {
			log.Warnw("playback control failed", "player", t.localID, "request", req, "err", err)
		}
	})
	if err != nil {
		log.Debugw("playback control dropped", "request", req, "err", err)
	}
}

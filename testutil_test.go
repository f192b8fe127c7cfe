package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"extmedia/internal/emp"
)

// fakeAgent records what the console asks of the agent
type fakeAgent struct {
	mu       sync.Mutex
	buttons  []emp.PlaybackButton
	toggles  []toggleCall
	playback emp.PlaybackState
	session  emp.SessionState
	err      error
	reached  bool
}

type toggleCall struct {
	toggle emp.PlaybackToggle
	action bool
}

func (f *fakeAgent) OnButtonPressed(button emp.PlaybackButton) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttons = append(f.buttons, button)
}

func (f *fakeAgent) OnTogglePressed(toggle emp.PlaybackToggle, action bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles = append(f.toggles, toggleCall{toggle, action})
}

func (f *fakeAgent) PlaybackState(context.Context) (emp.PlaybackState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playback, f.err
}

func (f *fakeAgent) SessionState(context.Context) (emp.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *fakeAgent) WaitForActivity(time.Duration, emp.PlayerActivity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reached
}

// playingState builds the documents of one authorized player playing a track
func playingState(title string, positionMs, durationMs int64) (emp.PlaybackState, emp.SessionState) {
	report := emp.PlaybackReport{
		State:                "PLAYING",
		PositionMilliseconds: positionMs,
		Shuffle:              "NOT_SHUFFLED",
		Repeat:               string(emp.RepeatNone),
		Favorite:             string(emp.FavoriteNotRated),
		Media: emp.Media{
			Type: "ExternalMediaPlayerMusicItem",
			Value: emp.MediaValue{
				TrackName:              title,
				Artist:                 "Artist",
				Album:                  "Album",
				DurationInMilliseconds: durationMs,
			},
		},
	}
	playback := emp.PlaybackState{
		PlaybackReport: report,
		Players:        []emp.PlayerPlayback{{PlayerID: "cloud-1", PlaybackReport: report}},
	}
	session := emp.SessionState{
		Agent:         "extmedia",
		PlayerInFocus: "cloud-1",
		Players:       []emp.PlayerSession{{PlayerID: "cloud-1", LocalPlayerID: "desktop", Authorized: true}},
	}
	return playback, session
}

// withConfig installs cfg for the duration of the test
func withConfig(t *testing.T, cfg Config) {
	t.Helper()
	previous := config.Get()
	config.Set(cfg)
	t.Cleanup(func() { config.Set(previous) })
}

// validConfig returns a configuration that passes validateConfig
func validConfig() Config {
	cfg := Config{}
	cfg.UI.Color = defaultColor
	cfg.UI.MaxWidth = defaultMaxWidth
	cfg.Timing.UIRefreshMs = defaultUIRefreshMs
	cfg.Timing.DataFetchMs = defaultDataFetchMs
	cfg.Agent.ID = defaultAgentID
	cfg.Agent.ActivityWaitMs = defaultActivityWaitMs
	cfg.Player.ID = defaultPlayerID
	cfg.Player.Enabled = true
	cfg.Bridge.Addr = defaultBridgeAddr
	cfg.Log.Level = defaultLogLevel
	return cfg
}

// assertNoError is a test helper that fails the test if an error occurred
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// assertEqual is a generic test helper for comparing values
func assertEqual(t *testing.T, got, want interface{}, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbletea"

	"extmedia/internal/emp"
)

// consoleAgent is the part of the agent the console drives
type consoleAgent interface {
	emp.PlaybackHandler
	PlaybackState(ctx context.Context) (emp.PlaybackState, error)
	SessionState(ctx context.Context) (emp.SessionState, error)
	WaitForActivity(timeout time.Duration, want emp.PlayerActivity) bool
}

// TrackData holds the metadata of the player in focus
type TrackData struct {
	Status    string
	Title     string
	Artist    string
	Album     string
	TotalTime string
	Shuffle   string
	Repeat    string
}

// playerLine is one registered player in the players list
type playerLine struct {
	ID         string
	State      string
	Authorized bool
	InFocus    bool
}

// model is the Bubble Tea model for the now-playing console
type model struct {
	agent   consoleAgent
	watcher *stateWatcher
	ducker  func(ducked bool) error
	clients func() int

	track         TrackData
	playerInFocus string
	players       []playerLine
	color         string
	width         int
	height        int
	lastError     error
	notice        string

	// For smooth position interpolation
	lastPosition     float64   // Last known position in seconds
	lastPositionTime time.Time // When we fetched that position
	duration         int64     // Track duration in seconds
	isPlaying        bool
	lastTrackID      string

	// Text scrolling state
	scrollOffset int
	scrollPause  int
	scrollTick   int

	showHelp bool
	ducked   bool
}

func newModel(agent consoleAgent, watcher *stateWatcher) model {
	return model{
		agent:   agent,
		watcher: watcher,
		color:   config.Get().UI.Color,
	}
}

// UI refresh tick
type tickMsg time.Time

// Data fetch tick, a fallback for changes nobody reported
type fetchMsg time.Time

// Agent state snapshot
type stateMsg struct {
	playback emp.PlaybackState
	session  emp.SessionState
	err      error
}

// A control request either reached the wanted activity or timed out
type activityMsg struct {
	want    emp.PlayerActivity
	reached bool
}

// Schedule next UI refresh tick
func tickCmd() tea.Cmd {
	cfg := config.Get()
	return tea.Tick(time.Duration(cfg.Timing.UIRefreshMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Schedule next data fetch
func fetchCmd() tea.Cmd {
	cfg := config.Get()
	return tea.Tick(time.Duration(cfg.Timing.DataFetchMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return fetchMsg(t)
	})
}

// Fetch both state documents in background (doesn't block UI)
func (m model) fetchState() tea.Cmd {
	agent := m.agent
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		playback, err := agent.PlaybackState(ctx)
		if err != nil {
			return stateMsg{err: err}
		}
		session, err := agent.SessionState(ctx)
		if err != nil {
			return stateMsg{err: err}
		}
		return stateMsg{playback: playback, session: session}
	}
}

// Wait until the player in focus reaches want
func (m model) waitActivityCmd(want emp.PlayerActivity) tea.Cmd {
	agent := m.agent
	timeout := time.Duration(config.Get().Agent.ActivityWaitMs) * time.Millisecond
	return func() tea.Msg {
		return activityMsg{want: want, reached: agent.WaitForActivity(timeout, want)}
	}
}

// Calculate current position with smooth interpolation
func (m model) getCurrentPosition() float64 {
	if !m.isPlaying {
		return m.lastPosition
	}

	currentPos := m.lastPosition + time.Since(m.lastPositionTime).Seconds()
	if m.duration > 0 && currentPos > float64(m.duration) {
		currentPos = float64(m.duration)
	}
	return currentPos
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), fetchCmd(), watchConfigCmd(), m.fetchState()}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.wait())
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case configReloadMsg:
		m.color = config.Get().UI.Color
		return m, watchConfigCmd()

	case stateChangedMsg:
		if m.watcher == nil {
			return m, m.fetchState()
		}
		return m, tea.Batch(m.watcher.wait(), m.fetchState())

	case tickMsg:
		m.advanceScroll()
		return m, tickCmd()

	case fetchMsg:
		return m, tea.Batch(fetchCmd(), m.fetchState())

	case activityMsg:
		if !msg.reached {
			m.notice = fmt.Sprintf("player did not reach %s", msg.want)
		} else {
			m.notice = ""
		}
		return m, m.fetchState()

	case stateMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.applyState(msg.playback, msg.session)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p":
		if m.isPlaying {
			m.agent.OnButtonPressed(emp.ButtonPause)
			return m, m.waitActivityCmd(emp.ActivityPaused)
		}
		m.agent.OnButtonPressed(emp.ButtonPlay)
		return m, m.waitActivityCmd(emp.ActivityPlaying)
	case "n":
		m.agent.OnButtonPressed(emp.ButtonNext)
		return m, m.fetchState()
	case "b":
		m.agent.OnButtonPressed(emp.ButtonPrevious)
		return m, m.fetchState()
	case "right":
		m.agent.OnButtonPressed(emp.ButtonSkipForward)
		return m, m.fetchState()
	case "left":
		m.agent.OnButtonPressed(emp.ButtonSkipBackward)
		return m, m.fetchState()
	case "s":
		m.agent.OnTogglePressed(emp.ToggleShuffle, m.track.Shuffle != "SHUFFLED")
		return m, m.fetchState()
	case "l":
		m.agent.OnTogglePressed(emp.ToggleLoop, m.track.Repeat == string(emp.RepeatNone) || m.track.Repeat == "")
		return m, m.fetchState()
	case "d":
		if m.ducker == nil {
			return m, nil
		}
		m.ducked = !m.ducked
		if err := m.ducker(m.ducked); err != nil {
			m.lastError = err
		}
		return m, m.fetchState()
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// applyState copies the agent's documents into the view model
func (m *model) applyState(playback emp.PlaybackState, session emp.SessionState) {
	media := playback.Media.Value
	trackID := media.TrackName + "|" + media.Artist
	if trackID != m.lastTrackID {
		m.lastTrackID = trackID
		m.scrollOffset = 0
		m.scrollPause = 30
		m.scrollTick = 0
	}

	m.track = TrackData{
		Status:    playback.State,
		Title:     media.TrackName,
		Artist:    media.Artist,
		Album:     media.Album,
		TotalTime: formatTime(media.DurationInMilliseconds / 1000),
		Shuffle:   playback.Shuffle,
		Repeat:    playback.Repeat,
	}
	m.lastPosition = float64(playback.PositionMilliseconds) / 1000
	m.lastPositionTime = time.Now()
	m.duration = media.DurationInMilliseconds / 1000
	m.isPlaying = emp.ParseActivity(playback.State) == emp.ActivityPlaying
	m.lastError = nil

	states := make(map[string]string, len(playback.Players))
	for _, p := range playback.Players {
		states[p.PlayerID] = p.State
	}
	m.playerInFocus = session.PlayerInFocus
	m.players = nil
	for _, p := range session.Players {
		m.players = append(m.players, playerLine{
			ID:         p.PlayerID,
			State:      states[p.PlayerID],
			Authorized: p.Authorized,
			InFocus:    p.PlayerID == session.PlayerInFocus,
		})
	}
}

// advanceScroll moves the scrolling text one step every third tick and
// pauses when the longest line loops back to its start
func (m *model) advanceScroll() {
	m.scrollTick++
	if m.scrollPause > 0 {
		m.scrollPause--
		return
	}
	if m.scrollTick%3 != 0 {
		return
	}
	m.scrollOffset++

	longestLen := len([]rune(m.track.Title))
	if l := len([]rune(m.track.Artist)); l > longestLen {
		longestLen = l
	}
	if l := len([]rune(m.track.Album)); l > longestLen {
		longestLen = l
	}
	if longestLen > textWidth(config.Get()) && m.scrollOffset >= longestLen+len([]rune(scrollSeparator)) {
		m.scrollOffset = 0
		m.scrollPause = 30
	}
}

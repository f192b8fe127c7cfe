package emp

import (
	"encoding/json"
	"time"
)

// NamespaceAndName identifies a directive or a state document.
type NamespaceAndName struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (n NamespaceAndName) String() string {
	return n.Namespace + "." + n.Name
}

// Directive is an inbound instruction from the cloud session.
type Directive struct {
	Namespace string          `json:"namespace"`
	Name      string          `json:"name"`
	MessageID string          `json:"messageId"`
	Payload   json.RawMessage `json:"payload"`
}

// Identity returns the dispatch key of the directive.
func (d *Directive) Identity() NamespaceAndName {
	return NamespaceAndName{Namespace: d.Namespace, Name: d.Name}
}

// RequestType classifies what a directive or button press asks an adapter to do.
type RequestType int

const (
	RequestNone RequestType = iota
	RequestInit
	RequestDeinit
	RequestLogin
	RequestLogout
	RequestRegister
	RequestPlay
	RequestResume
	RequestPause
	RequestStop
	RequestNext
	RequestPrevious
	RequestStartOver
	RequestFastForward
	RequestRewind
	RequestEnableRepeatOne
	RequestEnableRepeat
	RequestDisableRepeat
	RequestEnableShuffle
	RequestDisableShuffle
	RequestFavorite
	RequestDeselectFavorite
	RequestUnfavorite
	RequestDeselectUnfavorite
	RequestSeek
	RequestAdjustSeek
	RequestAuthorizeDiscoveredPlayers
)

var requestNames = map[RequestType]string{
	RequestNone:                       "NONE",
	RequestInit:                       "INIT",
	RequestDeinit:                     "DEINIT",
	RequestLogin:                      "LOGIN",
	RequestLogout:                     "LOGOUT",
	RequestRegister:                   "REGISTER",
	RequestPlay:                       "PLAY",
	RequestResume:                     "RESUME",
	RequestPause:                      "PAUSE",
	RequestStop:                       "STOP",
	RequestNext:                       "NEXT",
	RequestPrevious:                   "PREVIOUS",
	RequestStartOver:                  "START_OVER",
	RequestFastForward:                "FAST_FORWARD",
	RequestRewind:                     "REWIND",
	RequestEnableRepeatOne:            "ENABLE_REPEAT_ONE",
	RequestEnableRepeat:               "ENABLE_REPEAT",
	RequestDisableRepeat:              "DISABLE_REPEAT",
	RequestEnableShuffle:              "ENABLE_SHUFFLE",
	RequestDisableShuffle:             "DISABLE_SHUFFLE",
	RequestFavorite:                   "FAVORITE",
	RequestDeselectFavorite:           "DESELECT_FAVORITE",
	RequestUnfavorite:                 "UNFAVORITE",
	RequestDeselectUnfavorite:         "DESELECT_UNFAVORITE",
	RequestSeek:                       "SEEK",
	RequestAdjustSeek:                 "ADJUST_SEEK",
	RequestAuthorizeDiscoveredPlayers: "AUTHORIZE_DISCOVERED_PLAYERS",
}

func (r RequestType) String() string {
	if s, ok := requestNames[r]; ok {
		return s
	}
	return "UNKNOWN"
}

// FocusState is the ownership state of the shared content channel.
type FocusState int

const (
	FocusNone FocusState = iota
	FocusForeground
	FocusBackground
)

func (f FocusState) String() string {
	switch f {
	case FocusForeground:
		return "FOREGROUND"
	case FocusBackground:
		return "BACKGROUND"
	default:
		return "NONE"
	}
}

// HaltInitiator records why playback was last halted.
type HaltInitiator int

const (
	// HaltNone means the system is not halted.
	HaltNone HaltInitiator = iota
	// HaltExternalPause is a voice or user initiated pause.
	HaltExternalPause
	// HaltFocusChangePause is a pause forced by losing foreground focus.
	HaltFocusChangePause
	// HaltFocusChangeStop is a stop forced by losing focus entirely.
	HaltFocusChangeStop
)

func (h HaltInitiator) String() string {
	switch h {
	case HaltExternalPause:
		return "EXTERNAL_PAUSE"
	case HaltFocusChangePause:
		return "FOCUS_CHANGE_PAUSE"
	case HaltFocusChangeStop:
		return "FOCUS_CHANGE_STOP"
	default:
		return "NONE"
	}
}

// PlayerActivity is the playback state of a player.
type PlayerActivity int

const (
	ActivityIdle PlayerActivity = iota
	ActivityPlaying
	ActivityPaused
	ActivityStopped
	ActivityBufferUnderrun
	ActivityFinished
)

var activityNames = []string{"IDLE", "PLAYING", "PAUSED", "STOPPED", "BUFFER_UNDERRUN", "FINISHED"}

func (a PlayerActivity) String() string {
	if int(a) >= 0 && int(a) < len(activityNames) {
		return activityNames[a]
	}
	return "UNKNOWN"
}

// MarshalText encodes the activity with its AVS name.
func (a PlayerActivity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseActivity maps an AVS or MPRIS status string to an activity.
// Unrecognized values map to ActivityIdle.
func ParseActivity(s string) PlayerActivity {
	switch s {
	case "PLAYING", "Playing", "playing":
		return ActivityPlaying
	case "PAUSED", "Paused", "paused":
		return ActivityPaused
	case "STOPPED", "Stopped", "stopped":
		return ActivityStopped
	case "BUFFER_UNDERRUN":
		return ActivityBufferUnderrun
	case "FINISHED":
		return ActivityFinished
	default:
		return ActivityIdle
	}
}

// SessionProperties is the observable login state of one player.
type SessionProperties struct {
	LoggedIn bool
	Username string
}

// PlaybackProperties is the observable playback state of one player.
type PlaybackProperties struct {
	State     PlayerActivity
	TrackName string
	Artist    string
	Album     string
	Position  time.Duration
	Duration  time.Duration
	Shuffle   bool
	Repeat    RepeatMode
	Favorite  FavoriteState
}

// RepeatMode mirrors the PlaybackStateReporter repeat values.
type RepeatMode string

const (
	RepeatNone RepeatMode = "NOT_REPEATED"
	RepeatAll  RepeatMode = "REPEATED"
	RepeatOne  RepeatMode = "ONE_REPEATED"
)

// FavoriteState mirrors the PlaybackStateReporter favorite values.
type FavoriteState string

const (
	FavoriteNotRated    FavoriteState = "NOT_RATED"
	FavoriteFavorited   FavoriteState = "FAVORITED"
	FavoriteUnfavorited FavoriteState = "UNFAVORITED"
)

// DiscoveredPlayer describes a local player app found on the device.
type DiscoveredPlayer struct {
	LocalPlayerID    string   `json:"localPlayerId"`
	SPIVersion       string   `json:"spiVersion"`
	ValidationMethod string   `json:"validationMethod"`
	ValidationData   []string `json:"validationData"`
}

// Authorization is the cloud's verdict on one discovered player.
type Authorization struct {
	LocalPlayerID string
	Authorized    bool
	PlayerID      string
	SkillToken    string
}

// PlaybackButton is a physical or on-screen playback button.
type PlaybackButton int

const (
	ButtonPlay PlaybackButton = iota
	ButtonPause
	ButtonNext
	ButtonPrevious
	ButtonSkipForward
	ButtonSkipBackward
)

// PlaybackToggle is a two-state playback control.
type PlaybackToggle int

const (
	ToggleShuffle PlaybackToggle = iota
	ToggleLoop
	ToggleRepeat
	ToggleThumbsUp
	ToggleThumbsDown
)

// StateToken is the optional request token echoed back to the context manager.
type StateToken struct {
	ID    uint32
	Valid bool
}

// NoToken marks a state update nobody asked for.
var NoToken = StateToken{}

// Token wraps a token handed over by the context manager.
func Token(id uint32) StateToken {
	return StateToken{ID: id, Valid: true}
}

package emp

import (
	"context"
	"time"
)

// Adapter is a local player integration (Spotify, Bluetooth, a local media
// source). The agent calls it from its worker goroutine only.
type Adapter interface {
	Login(ctx context.Context, req LoginRequest) error
	Logout(ctx context.Context) error
	Play(ctx context.Context, req PlayRequest) error
	PlayControl(ctx context.Context, req RequestType) error
	Seek(ctx context.Context, position time.Duration) error
	AdjustSeek(ctx context.Context, delta time.Duration) error
}

// Authorizer is implemented by adapters that want to hear about the cloud's
// authorization decision for their player.
type Authorizer interface {
	Authorize(ctx context.Context, auth Authorization) error
}

// LoginRequest is the decoded Login directive payload.
type LoginRequest struct {
	AccessToken          string
	Username             string
	TokenRefreshInterval time.Duration
	ForceLogin           bool
}

// PlayRequest is the decoded Play directive payload.
type PlayRequest struct {
	PlaybackContextToken string
	Index                int64
	Offset               time.Duration
	SkillToken           string
	PlaybackSessionID    string
	Navigation           string
	Preload              bool
}

// MessageSender delivers outbound events to the cloud. Framing is the
// sender's business.
type MessageSender interface {
	SendEvent(ev Event) error
}

// ExceptionSender reports a directive that could not be handled.
type ExceptionSender interface {
	SendExceptionEncountered(unparsedDirective string, errType ExceptionErrorType, message string) error
}

// ContextManager receives state documents, either on request (with the
// caller's token) or unsolicited after a change.
type ContextManager interface {
	SetState(name NamespaceAndName, jsonState string, token StateToken) error
}

// FocusManager is the system-wide channel arbiter. The answer to
// AcquireChannel may arrive later through Agent.OnFocusChanged.
type FocusManager interface {
	AcquireChannel(channel, interfaceName string) error
	ReleaseChannel(channel string) error
}

// PlaybackHandler receives button and toggle presses.
type PlaybackHandler interface {
	OnButtonPressed(button PlaybackButton)
	OnTogglePressed(toggle PlaybackToggle, action bool)
}

// PlaybackRouter routes hardware playback buttons to the active handler.
type PlaybackRouter interface {
	SetHandler(h PlaybackHandler)
}

// Observer is notified whenever a player's session or playback state changes.
type Observer interface {
	OnStateChanged(playerID string, session SessionProperties, playback PlaybackProperties)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(playerID string, session SessionProperties, playback PlaybackProperties)

func (f ObserverFunc) OnStateChanged(playerID string, session SessionProperties, playback PlaybackProperties) {
	f(playerID, session, playback)
}

// PlayerStore persists discovered players and authorization results.
type PlayerStore interface {
	SaveDiscovered(ctx context.Context, players []DiscoveredPlayer) error
	SaveAuthorization(ctx context.Context, auth Authorization) error
	RemovePlayer(ctx context.Context, localPlayerID string) error
}

// Result is how the directive sequencer learns a directive's outcome.
type Result interface {
	SetCompleted()
	SetFailed(description string)
}

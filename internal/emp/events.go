package emp

import "github.com/google/uuid"

// Outbound event names.
const (
	EventPlayerEvent             = "PlayerEvent"
	EventPlayerError             = "PlayerError"
	EventReportDiscoveredPlayers = "ReportDiscoveredPlayers"
	EventRequestToken            = "RequestToken"
	EventLogin                   = "Login"
	EventLogout                  = "Logout"
	EventAuthorizationComplete   = "AuthorizationComplete"
)

// Event is the content of an outbound message. Framing belongs to the
// MessageSender.
type Event struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	MessageID string `json:"messageId"`
	Payload   any    `json:"payload"`
}

func newEvent(name string, payload any) Event {
	return Event{
		Namespace: Namespace,
		Name:      name,
		MessageID: uuid.NewString(),
		Payload:   payload,
	}
}

// PlayerEventPayload carries a named player event.
type PlayerEventPayload struct {
	PlayerID  string `json:"playerId"`
	EventName string `json:"eventName"`
}

// PlayerErrorPayload carries an adapter failure.
type PlayerErrorPayload struct {
	PlayerID    string `json:"playerId"`
	ErrorName   string `json:"errorName"`
	Code        int64  `json:"code"`
	Description string `json:"description"`
	Fatal       bool   `json:"fatal"`
}

// PlayerIDPayload is used by RequestToken, Login and Logout.
type PlayerIDPayload struct {
	PlayerID string `json:"playerId"`
}

// DiscoveredPlayersPayload reports the players found on the device.
type DiscoveredPlayersPayload struct {
	Agent   string             `json:"agent"`
	Players []DiscoveredPlayer `json:"players"`
}

// AuthorizedPlayer is one entry of AuthorizationComplete.authorized.
type AuthorizedPlayer struct {
	PlayerID   string `json:"playerId"`
	SkillToken string `json:"skillToken"`
}

// DeauthorizedPlayer is one entry of AuthorizationComplete.deauthorized.
type DeauthorizedPlayer struct {
	LocalPlayerID string `json:"localPlayerId"`
}

// AuthorizationCompletePayload acknowledges AuthorizeDiscoveredPlayers.
type AuthorizationCompletePayload struct {
	Authorized   []AuthorizedPlayer   `json:"authorized"`
	Deauthorized []DeauthorizedPlayer `json:"deauthorized"`
}

func (a *Agent) send(ev Event) {
	if err := a.cfg.MessageSender.SendEvent(ev); err != nil {
		log.Errorw("send event", "event", ev.Name, "err", err)
	}
}

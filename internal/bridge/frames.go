package bridge

import (
	"encoding/json"

	"extmedia/internal/emp"
)

// Frame types.
const (
	TypeDirective = "directive"
	TypeCancel    = "cancel"
	TypeGetState  = "getState"
	TypeResult    = "result"
	TypeEvent     = "event"
	TypeException = "exception"
	TypeContext   = "context"
	TypeError     = "error"
)

// Frame is the envelope of every websocket message in either direction.
type Frame struct {
	Type string `json:"type"`

	// directive
	Directive *emp.Directive `json:"directive,omitempty"`
	// cancel, result
	MessageID string `json:"messageId,omitempty"`
	// result
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	// getState, context
	Name  *emp.NamespaceAndName `json:"name,omitempty"`
	Token *uint32               `json:"token,omitempty"`
	State json.RawMessage       `json:"state,omitempty"`
	// event
	Event *emp.Event `json:"event,omitempty"`
	// exception
	Exception *Exception `json:"exception,omitempty"`
}

// Exception is the content of an ExceptionEncountered report.
type Exception struct {
	UnparsedDirective string                 `json:"unparsedDirective"`
	ErrorType         emp.ExceptionErrorType `json:"errorType"`
	Message           string                 `json:"message"`
}

// Result statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

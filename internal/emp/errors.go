package emp

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDirective means the payload could not be parsed.
	ErrMalformedDirective = errors.New("malformed directive")
	// ErrUnsupportedDirective means no handler is registered for the identity.
	ErrUnsupportedDirective = errors.New("unsupported directive")
	// ErrUnknownPlayer means no adapter resolves for the directive.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrFocusDenied means the content channel was not granted. Playback
	// continues in the background.
	ErrFocusDenied = errors.New("focus denied")
	// ErrShutdown is returned by entry points after Shutdown.
	ErrShutdown = errors.New("agent is shut down")
	// ErrDuplicateDirective means a directive with the same message id is
	// still outstanding.
	ErrDuplicateDirective = errors.New("directive already in flight")
)

// ExceptionErrorType tags an ExceptionEncountered report.
type ExceptionErrorType string

const (
	ExceptionUnexpectedInformation ExceptionErrorType = "UNEXPECTED_INFORMATION_RECEIVED"
	ExceptionUnsupportedOperation  ExceptionErrorType = "UNSUPPORTED_OPERATION"
	ExceptionInternalError         ExceptionErrorType = "INTERNAL_ERROR"
)

// exceptionType picks the upstream tag for a directive failure.
func exceptionType(err error) ExceptionErrorType {
	switch {
	case errors.Is(err, ErrMalformedDirective):
		return ExceptionUnexpectedInformation
	case errors.Is(err, ErrUnsupportedDirective):
		return ExceptionUnsupportedOperation
	default:
		return ExceptionInternalError
	}
}

// AdapterError is a runtime failure reported by an adapter.
type AdapterError struct {
	PlayerID    string
	Name        string
	Code        int64
	Description string
	Fatal       bool
}

func (e *AdapterError) Error() string {
	kind := "error"
	if e.Fatal {
		kind = "fatal error"
	}
	return fmt.Sprintf("player %s: %s %s (%d): %s", e.PlayerID, kind, e.Name, e.Code, e.Description)
}

package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnsupportedValue is returned when a context holds a value that is not a JSON kind.
var ErrUnsupportedValue = errors.New("unsupported context value")

var (
	// ErrTransport wraps network failures, non-success statuses and malformed bodies.
	ErrTransport = errors.New("transport error")

	// ErrProtocol marks an instruction without a recognizable type.
	ErrProtocol = errors.New("protocol error")

	// ErrActionNotFound is returned when an instruction names an unregistered action.
	ErrActionNotFound = errors.New("action not found")

	// ErrSayCallbackArgs is returned when the say completion is called with arguments.
	ErrSayCallbackArgs = errors.New("the say action callback does not take any arguments")

	// ErrMissingAction is returned when a registry lacks say, merge or error.
	ErrMissingAction = errors.New("missing required action")

	// ErrInvalidHandler is returned for nil or wrongly shaped handlers.
	ErrInvalidHandler = errors.New("invalid action handler")
)

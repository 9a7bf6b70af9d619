package websocket

import (
	"errors"
	"fmt"
)

// Kind classifies failures that happen while handling a request on an
// established connection.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindInternal   Kind = "internal"
)

const (
	reasonRackNotFound = "Rack not found or access denied"
	reasonInternal     = "Internal server error"
	reasonUnknown      = "Unknown error"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTransportNotReady  = errors.New("push transport not initialized")
	ErrHubStopped         = errors.New("hub stopped")
)

// Error is a request failure carrying a reason that is safe to show the client.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// Internal hides err from the client behind a generic reason.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Reason: reasonInternal, Err: err}
}

// KindOf returns the kind of err, or "" if it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the client-facing reason for err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return reasonUnknown
}

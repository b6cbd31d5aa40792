package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotIdentified     = "not_identified"
	ErrCodeAlreadyIdentified = "already_identified"
	ErrCodeNotInRoom         = "not_in_room"
	ErrCodeConnClosed        = "connection_closed"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotIdentified     = errors.New("not identified")
	ErrAlreadyIdentified = errors.New("already identified")
	ErrNotInRoom         = errors.New("not in room")
	ErrConnClosed        = errors.New("connection closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	cause   error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so callers can match with errors.Is.
func (e *CoreError) Unwrap() error {
	return e.cause
}

func coreError(cause error, code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg, cause: cause}
}

package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies orchestration failures so the transport layer can map
// them to an external status without parsing free-text messages.
type ErrorCode string

const (
	// ErrSessionLoad means the conversation store was unreachable or returned
	// corrupt state while loading a session. Fatal, no partial mutation.
	ErrSessionLoad ErrorCode = "SESSION_LOAD"

	// ErrUnknownPersona means the requested persona is not registered.
	// Caller error, no retry.
	ErrUnknownPersona ErrorCode = "UNKNOWN_PERSONA"

	// ErrGenerationUnavailable means the generation gateway failed after the
	// retry budget was exhausted. The caller may retry the whole call.
	ErrGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"

	// ErrPersistence means the store rejected the atomic append. No state
	// became visible; retrying the whole advance call is safe.
	ErrPersistence ErrorCode = "PERSISTENCE"

	// ErrInvalidMessage means the user message failed validation.
	ErrInvalidMessage ErrorCode = "INVALID_MESSAGE"

	// ErrRateLimited means the per-session rate limit rejected the call.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
)

// Error is the structured error carried by every fatal orchestration failure.
// It records the failing state-machine step and session so callers can map it
// without string matching.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	SessionID string    `json:"session_id,omitempty"`
	Step      string    `json:"step,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithSession records the session the error occurred in.
func (e *Error) WithSession(sessionID string) *Error {
	e.SessionID = sessionID
	return e
}

// WithStep records the orchestrator state the error occurred in.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks whether the caller may safely retry the whole call.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable reports whether the caller may retry the failed call.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code, or "" for foreign errors.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

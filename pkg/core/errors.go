package core

import (
	"errors"
	"fmt"
)

// Error is the typed error surfaced by every foodtrack component.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`

	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConnection means the remote voice session could not be opened or was
	// rejected. The orchestrator reacts by falling back to local recognition.
	ErrConnection ErrorType = "connection_error"
	// ErrUnsupported means the host has no on-device speech recognition.
	ErrUnsupported ErrorType = "unsupported_error"
	// ErrSynthesis covers TTS fetch and playback failures.
	ErrSynthesis ErrorType = "synthesis_error"
	// ErrSubmission covers food-log submission failures.
	ErrSubmission ErrorType = "submission_error"

	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrAPI            ErrorType = "api_error"
)

// NewConnectionError creates a connection error.
func NewConnectionError(message string, cause error) *Error {
	return &Error{Type: ErrConnection, Message: message, Cause: cause}
}

// NewUnsupportedError creates an unsupported-capability error.
func NewUnsupportedError(message string) *Error {
	return &Error{Type: ErrUnsupported, Message: message}
}

// NewSynthesisError creates a synthesis error.
func NewSynthesisError(message string, cause error) *Error {
	return &Error{Type: ErrSynthesis, Message: message, Cause: cause}
}

// NewSubmissionError creates a submission error.
func NewSubmissionError(message string, cause error) *Error {
	return &Error{Type: ErrSubmission, Message: message, Cause: cause}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{Type: ErrAuthentication, Message: message}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{Type: ErrAPI, Message: message}
}

// IsType reports whether err (or anything it wraps) is a *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// Fatal reports whether err should end the process. Nothing in the voice
// subsystem is fatal: every error either degrades or waits for the user.
func (e *Error) Fatal() bool {
	return false
}

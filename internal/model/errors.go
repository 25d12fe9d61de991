package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeValidation indicates malformed input (duplicate slot, inverted
	// interval, missing field). The request never reached the remote store.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeConflict indicates the requested slot or subject state is
	// unavailable. Raised both by the client-side pre-check and by the
	// authoritative store rejecting a request that passed the pre-check.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeStaleState indicates a transition attempted from a state that no
	// longer applies: the race-loser case. Whoever committed first won; the
	// caller must refresh and re-decide.
	CodeStaleState ErrorCode = "STALE_STATE"

	// CodeNotFound indicates the subject or engagement vanished.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeNetwork indicates a transient transport failure. Eligible for
	// bounded automatic retry before being surfaced.
	CodeNetwork ErrorCode = "NETWORK"
)

// Error is the coded error type shared by every engine layer.
//
// SubjectID and EngagementID are populated when known so callers can log
// and render failures without re-parsing the message.
type Error struct {
	Code         ErrorCode
	Message      string
	SubjectID    string
	EngagementID string

	// Cause holds the underlying error for network failures.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.SubjectID != "" && e.EngagementID != "":
		return fmt.Sprintf("%s: %s (subject=%s, engagement=%s)", e.Code, e.Message, e.SubjectID, e.EngagementID)
	case e.SubjectID != "":
		return fmt.Sprintf("%s: %s (subject=%s)", e.Code, e.Message, e.SubjectID)
	case e.EngagementID != "":
		return fmt.Sprintf("%s: %s (engagement=%s)", e.Code, e.Message, e.EngagementID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap exposes the underlying cause (nil for domain errors).
func (e *Error) Unwrap() error { return e.Cause }

// NewValidationError creates a validation error.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError creates a conflict error for a subject.
func NewConflictError(subjectID, format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...), SubjectID: subjectID}
}

// NewStaleStateError creates a stale-state error.
func NewStaleStateError(subjectID, engagementID, format string, args ...any) *Error {
	return &Error{
		Code:         CodeStaleState,
		Message:      fmt.Sprintf(format, args...),
		SubjectID:    subjectID,
		EngagementID: engagementID,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(cause error) *Error {
	return &Error{Code: CodeNetwork, Message: "remote store unreachable", Cause: cause}
}

// CodeOf extracts the error code from err, or "" if err is not an engine
// error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsStaleState reports whether err is a stale-state error.
func IsStaleState(err error) bool { return CodeOf(err) == CodeStaleState }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsNetwork reports whether err is a network error.
func IsNetwork(err error) bool { return CodeOf(err) == CodeNetwork }

// Retryable reports whether err may be retried automatically. Only network
// errors qualify; domain rejections must surface to the user unchanged.
func Retryable(err error) bool { return IsNetwork(err) }

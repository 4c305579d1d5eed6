package store

import (
	"errors"
	"fmt"
)

// Stable validation codes surfaced through the HTTP gateway.
const (
	CodeInvalidTopic           = "INVALID_TOPIC"
	CodeTopicRejected          = "TOPIC_REJECTED"
	CodeInvalidPhase           = "INVALID_PHASE"
	CodeInvalidPhaseTransition = "INVALID_PHASE_TRANSITION"
	CodeInvalidVoteType        = "INVALID_VOTE_TYPE"
	CodeMissingVoteChoice      = "MISSING_VOTE_CHOICE"
	CodeVoteRejected           = "VOTE_REJECTED"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// ErrTerminalConflict is returned when completeSession and failSession are
// both attempted on one session; the two terminal states are mutually
// exclusive (repeating the one already applied is a no-op).
var ErrTerminalConflict = errors.New("session already in a conflicting terminal state")

// ValidationError is a user-facing, recoverable rejection with a stable
// code. Reasons carries moderation tags when the code is TOPIC_REJECTED.
type ValidationError struct {
	Code    string
	Message string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError builds a validation error with a formatted message.
func NewValidationError(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps err into a *ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned for operations on a completed or
	// abandoned session.
	ErrSessionClosed = errors.New("session closed")

	// ErrQueueExhausted is returned when no problem is left to answer.
	ErrQueueExhausted = errors.New("problem queue exhausted")

	// ErrAnswerPending is returned when an answer is submitted while the
	// previous result is still showing.
	ErrAnswerPending = errors.New("answer already submitted; advance first")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
)

// SessionCreationError means a session could not be started. The caller
// may retry.
type SessionCreationError struct {
	Type Type
	Err  error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("create %s session: %v", e.Type, e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// AttemptRecordError means a raw answer event was not stored. It is logged,
// never returned to the answering caller.
type AttemptRecordError struct {
	SessionID string
	Ordinal   int
	Err       error
}

func (e *AttemptRecordError) Error() string {
	return fmt.Sprintf("record attempt %d of session %s: %v", e.Ordinal, e.SessionID, e.Err)
}

func (e *AttemptRecordError) Unwrap() error { return e.Err }

// SessionUpdateError means an autosave or completion write failed. It is
// logged and the session carries on with in-memory state.
type SessionUpdateError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *SessionUpdateError) Error() string {
	return fmt.Sprintf("%s session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *SessionUpdateError) Unwrap() error { return e.Err }

// NotAuthenticatedError means an answer arrived without an identified
// student, or for someone other than the session's student.
type NotAuthenticatedError struct {
	SessionID string
	Reason    string
}

func (e *NotAuthenticatedError) Error() string {
	return fmt.Sprintf("session %s: not authenticated: %s", e.SessionID, e.Reason)
}

package session

import (
	"time"

	sess "github.com/abhisek/timesgrid/internal/session"
)

// sessionInitMsg is sent once the session has been started or resumed.
type sessionInitMsg struct {
	Session *sess.Session
	Err     error
}

// answerResultMsg carries the outcome of a submitted answer.
type answerResultMsg struct {
	Result sess.Result
	Err    error
}

// sessionCompleteMsg is sent after the session has been closed.
type sessionCompleteMsg struct {
	Summary *sess.Summary
	Err     error
}

// timerTickMsg is sent every second to refresh the answer clock.
type timerTickMsg time.Time

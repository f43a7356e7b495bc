package session

import (
	"fmt"
	"time"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

// Type is the kind of session.
type Type string

const (
	// TypePlacement is a diagnostic test. It never changes the stored grid.
	TypePlacement Type = store.SessionPlacement

	// TypePractice is an adaptive run over unmastered facts. Its grid
	// updates are merged on completion.
	TypePractice Type = store.SessionPractice
)

// ParseType validates a session type name.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypePlacement, TypePractice:
		return t, nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// Phase is the position of a session in its lifecycle.
type Phase string

const (
	PhaseNotStarted     Phase = "not_started"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseShowingResult  Phase = "showing_result"
	PhaseCompleted      Phase = "completed"
)

// Student identifies who a session is started for.
type Student struct {
	Email      string
	GradeLevel string
}

// Result is returned by SubmitAnswer.
type Result struct {
	Correct       bool         `json:"correct"`
	CorrectAnswer int          `json:"correct_answer"`
	Cell          mastery.Cell `json:"cell"`
}

// Status is a point-in-time view of a live session.
type Status struct {
	ID        string                `json:"id"`
	Type      Type                  `json:"type"`
	Phase     Phase                 `json:"phase"`
	Index     int                   `json:"index"`
	Total     int                   `json:"total"`
	Current   *problemgen.Problem   `json:"current,omitempty"`
	Incorrect int                   `json:"incorrect"`
	StartedAt time.Time             `json:"started_at"`
	Counters  store.SessionCounters `json:"counters"`
}

// Summary is the outcome of a completed session.
type Summary struct {
	SessionID  string                `json:"session_id"`
	Type       Type                  `json:"type"`
	TotalItems int                   `json:"total_items"`
	Counters   store.SessionCounters `json:"counters"`
	Duration   time.Duration         `json:"duration"`

	// NewlyMastered lists facts whose streak reached mastery for the first
	// time during this session.
	NewlyMastered []facts.Fact `json:"newly_mastered,omitempty"`

	// Persisted is false when any final storage call failed.
	Persisted bool `json:"persisted"`
}

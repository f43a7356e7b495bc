// Package journey derives which stage of the learning journey a student is
// in and which session types that stage allows.
package journey

import (
	"errors"

	"github.com/abhisek/timesgrid/internal/store"
)

// State is a student's journey stage.
type State string

const (
	NeedsPlacement      State = "needs_placement"
	PlacementInProgress State = "placement_in_progress"
	PlacementCompleted  State = "placement_completed"
	PracticeReady       State = "practice_ready"
)

// Label returns a human-readable description.
func (s State) Label() string {
	switch s {
	case NeedsPlacement:
		return "Placement test needed"
	case PlacementInProgress:
		return "Placement test in progress"
	case PlacementCompleted:
		return "Placement complete"
	case PracticeReady:
		return "Practicing"
	default:
		return "Unknown"
	}
}

var (
	// ErrPlacementRequired is returned when practice is requested before
	// placement is finished.
	ErrPlacementRequired = errors.New("placement test must be completed first")

	// ErrPlacementDone is returned when a placement test is requested
	// after it has been completed.
	ErrPlacementDone = errors.New("placement test already completed")
)

// Derive maps persisted facts to a stage. Any completed practice session
// wins, then a completed placement, then one still in progress.
func Derive(f store.JourneyFacts) State {
	switch {
	case f.CompletedPracticeSessions > 0:
		return PracticeReady
	case f.PlacementCompleted:
		return PlacementCompleted
	case f.PlacementInProgress:
		return PlacementInProgress
	default:
		return NeedsPlacement
	}
}

// ShouldShowPlacement reports whether the placement test should be offered.
func ShouldShowPlacement(s State) bool {
	return s == NeedsPlacement || s == PlacementInProgress
}

// CanStartPractice reports whether practice sessions are open.
func CanStartPractice(s State) bool {
	return s == PlacementCompleted || s == PracticeReady
}

// Gate checks that sessionType may be started in state s.
func Gate(s State, sessionType string) error {
	switch sessionType {
	case store.SessionPractice:
		if !CanStartPractice(s) {
			return ErrPlacementRequired
		}
	case store.SessionPlacement:
		if !ShouldShowPlacement(s) {
			return ErrPlacementDone
		}
	}
	return nil
}

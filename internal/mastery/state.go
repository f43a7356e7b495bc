package mastery

// CellState is the student-facing state of a grid cell.
type CellState string

const (
	StateMastered       CellState = "mastered"
	StateRecentlyFailed CellState = "recently-failed"
	StateNotMastered    CellState = "not-mastered"
)

// DeriveState classifies a cell by priority: locked is not-mastered, then a
// streak at Threshold is mastered, then a wrong last answer is recently
// failed. It departs from that rule in one case. A cell with no attempts
// has LastAttemptCorrect false only as the zero value, so it is reported
// not-mastered rather than recently failed.
func DeriveState(c Cell) CellState {
	switch {
	case c.IsLocked:
		return StateNotMastered
	case c.Mastered():
		return StateMastered
	case c.Attempts > 0 && !c.LastAttemptCorrect:
		return StateRecentlyFailed
	default:
		return StateNotMastered
	}
}

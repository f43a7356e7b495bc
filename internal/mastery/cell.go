package mastery

import (
	"time"

	"github.com/abhisek/timesgrid/internal/facts"
)

// Threshold is the consecutive-correct streak that counts as mastered.
const Threshold = 3

// Cell is the mastery record for one fact.
type Cell struct {
	Fact               facts.Fact  `json:"fact"`
	ConsecutiveCorrect int         `json:"consecutive_correct"`
	LastAttemptCorrect bool        `json:"last_attempt_correct"`
	Attempts           int         `json:"attempts"`
	IsLocked           bool        `json:"is_locked"`
	AverageTimeSeconds float64     `json:"average_time_seconds"`
	TotalTimeSpent     float64     `json:"total_time_spent"`
	LastAttemptSpeed   facts.Speed `json:"last_attempt_speed,omitempty"`
	MasteryAchievedAt  *time.Time  `json:"mastery_achieved_at,omitempty"`
	LastAttemptAt      *time.Time  `json:"last_attempt_at,omitempty"`
}

// NewCell returns the zero cell for f.
func NewCell(f facts.Fact) Cell {
	return Cell{Fact: f}
}

// Mastered reports whether the current streak has reached Threshold. It does
// not look at MasteryAchievedAt.
func (c Cell) Mastered() bool {
	return c.ConsecutiveCorrect >= Threshold
}

// ApplyAnswer returns prior updated with one answer. The streak resets on a
// wrong answer; the running average is recomputed from the attempt count.
// MasteryAchievedAt is set on the answer that takes the streak to exactly
// Threshold and is never cleared afterwards.
func ApplyAnswer(prior Cell, correct bool, elapsedSeconds float64, th facts.Thresholds, now time.Time) Cell {
	c := prior

	if correct {
		c.ConsecutiveCorrect++
	} else {
		c.ConsecutiveCorrect = 0
	}

	n := float64(prior.Attempts)
	c.AverageTimeSeconds = (prior.AverageTimeSeconds*n + elapsedSeconds) / (n + 1)
	c.TotalTimeSpent = prior.TotalTimeSpent + elapsedSeconds
	c.Attempts = prior.Attempts + 1
	c.LastAttemptCorrect = correct
	c.LastAttemptSpeed = facts.Classify(elapsedSeconds, th)

	at := now
	c.LastAttemptAt = &at
	if c.ConsecutiveCorrect == Threshold && prior.MasteryAchievedAt == nil {
		c.MasteryAchievedAt = &at
	}
	return c
}

// RecentlyFailed reports whether the last answer was wrong and happened
// within window of now.
func RecentlyFailed(c Cell, now time.Time, window time.Duration) bool {
	if c.Attempts == 0 || c.LastAttemptCorrect || c.LastAttemptAt == nil {
		return false
	}
	return now.Sub(*c.LastAttemptAt) <= window
}

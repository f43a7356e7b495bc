package server

import (
	"time"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
)

// problemView is a problem as shown before it is answered. The answer is
// never sent.
type problemView struct {
	ID           string     `json:"id"`
	Multiplicand int        `json:"multiplicand"`
	Multiplier   int        `json:"multiplier"`
	Text         string     `json:"text"`
	Difficulty   facts.Band `json:"difficulty"`
}

func newProblemView(p *problemgen.Problem) *problemView {
	if p == nil {
		return nil
	}
	return &problemView{
		ID:           p.ID,
		Multiplicand: p.Multiplicand,
		Multiplier:   p.Multiplier,
		Text:         p.Text(),
		Difficulty:   p.Difficulty,
	}
}

type sessionView struct {
	ID        string                `json:"id"`
	Type      session.Type          `json:"type"`
	Phase     session.Phase         `json:"phase"`
	Index     int                   `json:"index"`
	Total     int                   `json:"total"`
	Current   *problemView          `json:"current,omitempty"`
	Incorrect int                   `json:"incorrect"`
	StartedAt time.Time             `json:"started_at"`
	Counters  store.SessionCounters `json:"counters"`
}

func newSessionView(st session.Status) sessionView {
	return sessionView{
		ID:        st.ID,
		Type:      st.Type,
		Phase:     st.Phase,
		Index:     st.Index,
		Total:     st.Total,
		Current:   newProblemView(st.Current),
		Incorrect: st.Incorrect,
		StartedAt: st.StartedAt,
		Counters:  st.Counters,
	}
}

type cellView struct {
	Multiplicand       int               `json:"multiplicand"`
	Multiplier         int               `json:"multiplier"`
	State              mastery.CellState `json:"state"`
	Locked             bool              `json:"locked"`
	ConsecutiveCorrect int               `json:"consecutive_correct"`
	Attempts           int               `json:"attempts"`
	AverageTimeSeconds float64           `json:"average_time_seconds"`
	LastAttemptSpeed   facts.Speed       `json:"last_attempt_speed,omitempty"`
}

type progressView struct {
	StudentID        string            `json:"student_id"`
	GradeLevel       string            `json:"grade_level"`
	Guardrail        mastery.Guardrail `json:"guardrail"`
	GuardrailMastery int               `json:"guardrail_mastery"`
	OverallMastery   int               `json:"overall_mastery"`
	Counts           mastery.Counts    `json:"counts"`
	TotalAttempts    int               `json:"total_attempts"`
	TotalCorrect     int               `json:"total_correct"`
	Cells            []cellView        `json:"cells"`
}

func newProgressView(p *mastery.Progress) progressView {
	cells := p.Grid.Cells()
	out := make([]cellView, 0, len(cells))
	for _, c := range cells {
		out = append(out, cellView{
			Multiplicand:       c.Fact.Multiplicand,
			Multiplier:         c.Fact.Multiplier,
			State:              mastery.DeriveState(c),
			Locked:             c.IsLocked,
			ConsecutiveCorrect: c.ConsecutiveCorrect,
			Attempts:           c.Attempts,
			AverageTimeSeconds: c.AverageTimeSeconds,
			LastAttemptSpeed:   c.LastAttemptSpeed,
		})
	}
	return progressView{
		StudentID:        p.StudentID,
		GradeLevel:       p.GradeLevel,
		Guardrail:        p.Guardrail,
		GuardrailMastery: mastery.GuardrailMastery(p.Grid, p.Guardrail),
		OverallMastery:   mastery.OverallMastery(p.Grid),
		Counts:           mastery.Count(p.Grid),
		TotalAttempts:    p.TotalAttempts,
		TotalCorrect:     p.TotalCorrectAnswers,
		Cells:            out,
	}
}

type summaryView struct {
	SessionID       string                `json:"session_id"`
	Type            session.Type          `json:"type"`
	TotalItems      int                   `json:"total_items"`
	Counters        store.SessionCounters `json:"counters"`
	DurationSeconds int                   `json:"duration_seconds"`
	NewlyMastered   []string              `json:"newly_mastered"`
	Persisted       bool                  `json:"persisted"`
}

func newSummaryView(sum *session.Summary) summaryView {
	mastered := make([]string, 0, len(sum.NewlyMastered))
	for _, f := range sum.NewlyMastered {
		mastered = append(mastered, f.String())
	}
	return summaryView{
		SessionID:       sum.SessionID,
		Type:            sum.Type,
		TotalItems:      sum.TotalItems,
		Counters:        sum.Counters,
		DurationSeconds: int(sum.Duration.Seconds()),
		NewlyMastered:   mastered,
		Persisted:       sum.Persisted,
	}
}

package mastery

import (
	"fmt"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/store"
)

// Progress is a student's grid together with the guardrail that locks it.
type Progress struct {
	StudentID           string
	Email               string
	GradeLevel          string
	Guardrail           Guardrail
	Grid                *Grid
	TotalCorrectAnswers int
	TotalAttempts       int
}

// FromProgressData builds a fully populated grid from stored cells and
// applies the guardrail's locks. Facts with no stored cell get zero cells.
func FromProgressData(p *store.ProgressData) (*Progress, error) {
	gr, err := ParseGuardrail(p.Guardrail)
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", p.StudentID, err)
	}

	g := NewGrid()
	for _, d := range p.Cells {
		c, err := CellFromData(d)
		if err != nil {
			return nil, err
		}
		g.Set(c)
	}
	g.ApplyGuardrail(gr)

	return &Progress{
		StudentID:           p.StudentID,
		Email:               p.Email,
		GradeLevel:          p.GradeLevel,
		Guardrail:           gr,
		Grid:                g,
		TotalCorrectAnswers: p.TotalCorrectAnswers,
		TotalAttempts:       p.TotalAttempts,
	}, nil
}

// CellFromData decodes a stored cell.
func CellFromData(d store.CellData) (Cell, error) {
	speed, err := facts.ParseSpeed(d.LastAttemptSpeed)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %d×%d: %w", d.Multiplicand, d.Multiplier, err)
	}
	return Cell{
		Fact:               facts.New(d.Multiplicand, d.Multiplier),
		ConsecutiveCorrect: d.ConsecutiveCorrect,
		LastAttemptCorrect: d.LastAttemptCorrect,
		Attempts:           d.Attempts,
		AverageTimeSeconds: d.AverageTimeSeconds,
		TotalTimeSpent:     d.TotalTimeSpent,
		LastAttemptSpeed:   speed,
		MasteryAchievedAt:  d.MasteryAchievedAt,
		LastAttemptAt:      d.LastAttemptAt,
	}, nil
}

// Data encodes the cell for storage. The lock flag is derived from the
// guardrail and is not stored.
func (c Cell) Data() store.CellData {
	return store.CellData{
		Multiplicand:       c.Fact.Multiplicand,
		Multiplier:         c.Fact.Multiplier,
		ConsecutiveCorrect: c.ConsecutiveCorrect,
		LastAttemptCorrect: c.LastAttemptCorrect,
		Attempts:           c.Attempts,
		AverageTimeSeconds: c.AverageTimeSeconds,
		TotalTimeSpent:     c.TotalTimeSpent,
		LastAttemptSpeed:   string(c.LastAttemptSpeed),
		MasteryAchievedAt:  c.MasteryAchievedAt,
		LastAttemptAt:      c.LastAttemptAt,
	}
}

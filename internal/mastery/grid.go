package mastery

import (
	"math"
	"time"

	"github.com/abhisek/timesgrid/internal/facts"
)

// Grid is the fully populated 12×12 matrix of cells. Row index is
// multiplicand-1 and column index is multiplier-1.
type Grid struct {
	cells [facts.MaxFactor][facts.MaxFactor]Cell
}

// NewGrid returns a grid of zero cells.
func NewGrid() *Grid {
	g := &Grid{}
	for _, f := range facts.All() {
		g.cells[f.Multiplicand-1][f.Multiplier-1] = NewCell(f)
	}
	return g
}

// Cell returns the cell for f. Out-of-range facts yield a zero cell.
func (g *Grid) Cell(f facts.Fact) Cell {
	if !f.Valid() {
		return NewCell(f)
	}
	return g.cells[f.Multiplicand-1][f.Multiplier-1]
}

// Set replaces the cell for c.Fact. Out-of-range facts are ignored.
func (g *Grid) Set(c Cell) {
	if !c.Fact.Valid() {
		return
	}
	g.cells[c.Fact.Multiplicand-1][c.Fact.Multiplier-1] = c
}

// Cells returns every cell, row-major.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, 0, facts.MaxFactor*facts.MaxFactor)
	for r := range g.cells {
		out = append(out, g.cells[r][:]...)
	}
	return out
}

// ApplyAnswer updates the stored cell for f and returns it.
func (g *Grid) ApplyAnswer(f facts.Fact, correct bool, elapsedSeconds float64, th facts.Thresholds, now time.Time) Cell {
	c := ApplyAnswer(g.Cell(f), correct, elapsedSeconds, th, now)
	g.Set(c)
	return c
}

// ApplyGuardrail recomputes every cell's lock flag.
func (g *Grid) ApplyGuardrail(gr Guardrail) {
	for r := range g.cells {
		for c := range g.cells[r] {
			cell := &g.cells[r][c]
			cell.IsLocked = gr.Locks(cell.Fact)
		}
	}
}

// Merge writes session updates into the grid. Lock flags and an earlier
// mastery timestamp are kept.
func (g *Grid) Merge(updates []Cell) {
	for _, u := range updates {
		existing := g.Cell(u.Fact)
		u.IsLocked = existing.IsLocked
		if existing.MasteryAchievedAt != nil {
			u.MasteryAchievedAt = existing.MasteryAchievedAt
		}
		g.Set(u)
	}
}

// MasteryPercentage returns the rounded share of mastered cells in the
// top-left rangeLimit×rangeLimit region. An empty region yields 0.
func MasteryPercentage(g *Grid, rangeLimit int) int {
	rangeLimit = min(max(rangeLimit, 0), facts.MaxFactor)
	total := rangeLimit * rangeLimit
	if total == 0 {
		return 0
	}
	mastered := 0
	for r := 0; r < rangeLimit; r++ {
		for c := 0; c < rangeLimit; c++ {
			if g.cells[r][c].Mastered() {
				mastered++
			}
		}
	}
	return int(math.Round(100 * float64(mastered) / float64(total)))
}

// OverallMastery is MasteryPercentage over the full grid.
func OverallMastery(g *Grid) int {
	return MasteryPercentage(g, facts.MaxFactor)
}

// GuardrailMastery is MasteryPercentage over the guardrail's region.
func GuardrailMastery(g *Grid, gr Guardrail) int {
	return MasteryPercentage(g, gr.Range())
}

// Counts tallies cell states for display.
type Counts struct {
	Mastered       int `json:"mastered"`
	RecentlyFailed int `json:"recently_failed"`
	NotMastered    int `json:"not_mastered"`
	Locked         int `json:"locked"`
}

// Count tallies the derived state of every cell.
func Count(g *Grid) Counts {
	var out Counts
	for _, c := range g.Cells() {
		if c.IsLocked {
			out.Locked++
		}
		switch DeriveState(c) {
		case StateMastered:
			out.Mastered++
		case StateRecentlyFailed:
			out.RecentlyFailed++
		default:
			out.NotMastered++
		}
	}
	return out
}

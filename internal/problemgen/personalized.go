package problemgen

import (
	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
)

// Personalized returns problems for the given facts in order, dropping
// repeats. With no facts it returns up to n random facts inside the
// guardrail.
func (g *Generator) Personalized(focus []facts.Fact, gr mastery.Guardrail, n int) []Problem {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(focus) > 0 {
		seen := make(map[facts.Fact]bool, len(focus))
		var picked []facts.Fact
		for _, f := range focus {
			if !f.Valid() || seen[f] {
				continue
			}
			seen[f] = true
			picked = append(picked, f)
		}
		return toProblems(picked)
	}

	pool := region(1, gr.Range())
	g.shuffle(pool)
	return toProblems(pool[:min(max(n, 0), len(pool))])
}

package problemgen

import "github.com/abhisek/timesgrid/internal/facts"

// Config controls queue sizes and mixes.
type Config struct {
	// GradeCounts maps a grade level to its placement test length.
	GradeCounts map[string]int

	// DefaultPlacementCount is used for grades missing from GradeCounts.
	DefaultPlacementCount int

	// PlacementCorePercent is the share of placement problems drawn from
	// the 1-9 × 1-9 region. The rest come from 9-12 × 9-12.
	PlacementCorePercent int

	// MaxPracticeProblems caps a practice queue.
	MaxPracticeProblems int

	// PracticeMix is the target percentage per band. Percentages should sum
	// to 100.
	PracticeMix map[facts.Band]int
}

// DefaultConfig returns the standard placement and practice settings.
func DefaultConfig() Config {
	return Config{
		GradeCounts: map[string]int{
			"1": 20,
			"2": 20,
			"3": 20,
			"4": 20,
			"5": 20,
		},
		DefaultPlacementCount: 20,
		PlacementCorePercent:  90,
		MaxPracticeProblems:   30,
		PracticeMix: map[facts.Band]int{
			facts.BandBasic:        50,
			facts.BandIntermediate: 35,
			facts.BandAdvanced:     15,
		},
	}
}

// PlacementCount returns the placement test length for grade.
func (c Config) PlacementCount(grade string) int {
	if n, ok := c.GradeCounts[grade]; ok && n > 0 {
		return n
	}
	return c.DefaultPlacementCount
}

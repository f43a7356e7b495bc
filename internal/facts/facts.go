// Package facts classifies multiplication facts by difficulty and answer
// timings by speed.
package facts

import "fmt"

// MaxFactor is the largest multiplicand or multiplier tracked.
const MaxFactor = 12

// Fact is one multiplicand × multiplier pair. It is the identity key for
// mastery tracking.
type Fact struct {
	Multiplicand int `json:"multiplicand"`
	Multiplier   int `json:"multiplier"`
}

// New returns the fact m × n.
func New(m, n int) Fact {
	return Fact{Multiplicand: m, Multiplier: n}
}

// Product returns the correct answer for the fact.
func (f Fact) Product() int {
	return f.Multiplicand * f.Multiplier
}

// Valid reports whether both factors lie in [1, MaxFactor].
func (f Fact) Valid() bool {
	return f.Multiplicand >= 1 && f.Multiplicand <= MaxFactor &&
		f.Multiplier >= 1 && f.Multiplier <= MaxFactor
}

// Band returns the difficulty band of the fact.
func (f Fact) Band() Band {
	return DifficultyBand(f.Multiplicand, f.Multiplier)
}

func (f Fact) String() string {
	return fmt.Sprintf("%d × %d", f.Multiplicand, f.Multiplier)
}

// All returns every fact in the grid, row-major.
func All() []Fact {
	out := make([]Fact, 0, MaxFactor*MaxFactor)
	for m := 1; m <= MaxFactor; m++ {
		for n := 1; n <= MaxFactor; n++ {
			out = append(out, New(m, n))
		}
	}
	return out
}

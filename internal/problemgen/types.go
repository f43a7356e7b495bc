package problemgen

import "github.com/abhisek/timesgrid/internal/facts"

// Problem is one queued multiplication question. Problems are ephemeral;
// only the fact they ask about is tracked.
type Problem struct {
	// ID is unique within a queue, e.g. "problem-3".
	ID string `json:"id"`

	Multiplicand int `json:"multiplicand"`
	Multiplier   int `json:"multiplier"`

	// Answer is always Multiplicand × Multiplier.
	Answer int `json:"answer"`

	Difficulty facts.Band `json:"difficulty"`
}

// NewProblem builds the problem for f.
func NewProblem(id string, f facts.Fact) Problem {
	return Problem{
		ID:           id,
		Multiplicand: f.Multiplicand,
		Multiplier:   f.Multiplier,
		Answer:       f.Product(),
		Difficulty:   f.Band(),
	}
}

// Fact returns the fact the problem asks about.
func (p Problem) Fact() facts.Fact {
	return facts.New(p.Multiplicand, p.Multiplier)
}

// Text is the prompt shown to the student.
func (p Problem) Text() string {
	return p.Fact().String() + " = ?"
}

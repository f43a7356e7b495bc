package mastery

import (
	"errors"
	"fmt"

	"github.com/abhisek/timesgrid/internal/facts"
)

// ErrInvalidGuardrail is returned for an unknown guardrail level.
var ErrInvalidGuardrail = errors.New("invalid guardrail")

// Guardrail is the factor range currently unlocked for a student.
type Guardrail string

const (
	Guardrail5  Guardrail = "1-5"
	Guardrail9  Guardrail = "1-9"
	Guardrail12 Guardrail = "1-12"
)

// ParseGuardrail validates a guardrail level.
func ParseGuardrail(s string) (Guardrail, error) {
	switch g := Guardrail(s); g {
	case Guardrail5, Guardrail9, Guardrail12:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGuardrail, s)
}

// Range returns the largest unlocked factor.
func (g Guardrail) Range() int {
	switch g {
	case Guardrail5:
		return 5
	case Guardrail9:
		return 9
	default:
		return facts.MaxFactor
	}
}

// Down returns the next narrower level. The narrowest level has none.
func (g Guardrail) Down() (Guardrail, bool) {
	switch g {
	case Guardrail12:
		return Guardrail9, true
	case Guardrail9:
		return Guardrail5, true
	default:
		return "", false
	}
}

// Locks reports whether f lies outside the guardrail.
func (g Guardrail) Locks(f facts.Fact) bool {
	r := g.Range()
	return f.Multiplicand > r || f.Multiplier > r
}

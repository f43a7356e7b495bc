package problemgen

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAnswer reads a typed answer as a whole number. Whitespace and leading
// zeros are ignored; anything else is rejected so a typo never counts as a
// numeric answer.
func ParseAnswer(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("empty answer")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("answer %q is not a whole number", s)
	}
	return n, nil
}

// Check reports whether answer is exactly the problem's product.
func Check(p Problem, answer int) bool {
	return answer == p.Answer
}

package facts

import "fmt"

// Band is the difficulty band of a fact.
type Band string

const (
	BandBasic        Band = "basic"
	BandIntermediate Band = "intermediate"
	BandAdvanced     Band = "advanced"
)

// Bands lists the bands from easiest to hardest.
var Bands = []Band{BandBasic, BandIntermediate, BandAdvanced}

// DifficultyBand maps a fact to its band using the larger of its factors.
func DifficultyBand(multiplicand, multiplier int) Band {
	hi := max(multiplicand, multiplier)
	switch {
	case hi <= 5:
		return BandBasic
	case hi <= 9:
		return BandIntermediate
	default:
		return BandAdvanced
	}
}

// ParseBand decodes a stored band name.
func ParseBand(s string) (Band, error) {
	switch b := Band(s); b {
	case BandBasic, BandIntermediate, BandAdvanced:
		return b, nil
	}
	return "", fmt.Errorf("unknown difficulty band %q", s)
}

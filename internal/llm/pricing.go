package llm

import "strings"

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Cost is the USD cost of u at this price.
func (p Price) Cost(u Usage) float64 {
	return (float64(u.InputTokens)*p.Input + float64(u.OutputTokens)*p.Output) / 1e6
}

// LookupPrice finds the price for a model id. OpenRouter ids such as
// "openai/gpt-4o-mini" are looked up without the vendor prefix, and dated
// snapshots such as "claude-haiku-4-5-20251001" fall back to their family.
func LookupPrice(model string) (Price, bool) {
	if _, name, ok := strings.Cut(model, "/"); ok {
		model = name
	}
	for id := model; id != ""; {
		if p, ok := prices[id]; ok {
			return p, true
		}
		i := strings.LastIndexByte(id, '-')
		if i < 0 {
			break
		}
		id = id[:i]
	}
	return Price{}, false
}

// prices covers the vendor defaults and aliases plus their common
// neighbours. Rates as published in February 2026.
var prices = map[string]Price{
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4-5": {3, 15},
	"claude-3-5-haiku":  {0.8, 4},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},
	"gpt-5-mini":   {0.25, 2},

	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.0-flash-lite": {0.075, 0.3},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},
}

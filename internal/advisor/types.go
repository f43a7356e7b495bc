// Package advisor reviews a student's grid and recent sessions and
// suggests difficulty changes. It never changes stored state by itself.
package advisor

import (
	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
)

// Confidence is how strongly the analysis backs its suggestions.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// SessionSummary is the part of a completed session the rules look at.
type SessionSummary struct {
	AverageTimeSeconds float64 `json:"average_time_seconds"`
	Accuracy           int     `json:"accuracy"`
	FastAnswers        int     `json:"fast_answers"`
	SlowAnswers        int     `json:"slow_answers"`
}

// Input is everything an analysis is computed from.
type Input struct {
	Grid      *mastery.Grid
	Guardrail mastery.Guardrail

	// Sessions are recent completed sessions, oldest first.
	Sessions []SessionSummary
}

// Analysis is the advisory output.
type Analysis struct {
	StrugglingAreas        []string          `json:"struggling_areas"`
	RecommendedAdjustments []string          `json:"recommended_adjustments"`
	Confidence             Confidence        `json:"confidence"`
	SuggestedGuardrail     mastery.Guardrail `json:"suggested_guardrail,omitempty"`

	// StrugglingFacts are the individually flagged facts, in grid order.
	StrugglingFacts []facts.Fact `json:"struggling_facts,omitempty"`

	// MasteryRate is the mastered share of the guardrail region, 0 to 1.
	MasteryRate float64 `json:"mastery_rate"`
}

func (a *Analysis) flag(label string) {
	a.StrugglingAreas = append(a.StrugglingAreas, label)
}

func (a *Analysis) recommend(text string) {
	for _, r := range a.RecommendedAdjustments {
		if r == text {
			return
		}
	}
	a.RecommendedAdjustments = append(a.RecommendedAdjustments, text)
}

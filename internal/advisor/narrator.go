package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/timesgrid/internal/llm"
)

// NarratorConfig holds generation settings for coach notes.
type NarratorConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultNarratorConfig returns the standard settings.
func DefaultNarratorConfig() NarratorConfig {
	return NarratorConfig{
		MaxTokens:   400,
		Temperature: 0.4,
	}
}

// CoachNote is a short plain-language summary of an analysis for a coach.
type CoachNote struct {
	Headline   string   `json:"headline"`
	Note       string   `json:"note"`
	FocusFacts []string `json:"focus_facts"`
}

// Narrator turns an analysis into a coach note using an LLM.
type Narrator struct {
	provider llm.Provider
	cfg      NarratorConfig
}

// NewNarrator returns a Narrator backed by provider.
func NewNarrator(provider llm.Provider, cfg NarratorConfig) *Narrator {
	return &Narrator{provider: provider, cfg: cfg}
}

// NarrateRequest is the context given to the LLM.
type NarrateRequest struct {
	GradeLevel     string
	Guardrail      string
	MasteryPercent int
	Analysis       Analysis
	Sessions       []SessionSummary
}

// Narrate asks the LLM for a coach note.
func (n *Narrator) Narrate(ctx context.Context, req NarrateRequest) (*CoachNote, error) {
	msg, err := buildNarrateMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build coach note prompt: %w", err)
	}

	resp, err := n.provider.Generate(ctx, llm.Request{
		Purpose:     "coach-note",
		System:      narratorSystemPrompt,
		Prompt:      msg,
		Schema:      CoachNoteSchema,
		MaxTokens:   n.cfg.MaxTokens,
		Temperature: n.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM coach note failed: %w", err)
	}

	var note CoachNote
	if err := json.Unmarshal(resp.Content, &note); err != nil {
		return nil, fmt.Errorf("parse coach note: %w", err)
	}
	return &note, nil
}

// CoachNoteSchema is the JSON schema coach notes must match.
var CoachNoteSchema = &llm.Schema{
	Name:        "coach-note",
	Description: "A short note for a teacher summarizing a student's multiplication practice",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"headline": map[string]any{
				"type":        "string",
				"minLength":   1,
				"maxLength":   120,
				"description": "One-line summary of where the student is",
			},
			"note": map[string]any{
				"type":        "string",
				"minLength":   1,
				"maxLength":   800,
				"description": "Two to four sentences of practical advice for the teacher",
			},
			"focus_facts": map[string]any{
				"type":        "array",
				"maxItems":    10,
				"items":       map[string]any{"type": "string"},
				"description": "Facts to focus on next, written like \"7 × 8\"",
			},
		},
		"required":             []any{"headline", "note", "focus_facts"},
		"additionalProperties": false,
	},
}

const narratorSystemPrompt = `You help elementary school teachers understand how a student is doing with multiplication facts.

Instructions:
- Use only the data provided. Do not invent numbers.
- Write for a teacher, not the student. Be brief and concrete.
- Echo the listed recommendations in plain words; do not add new difficulty changes.
- Focus facts must come from the struggling facts when any are listed.`

var narrateUserTemplate = template.Must(template.New("narrate").Parse(`Grade: {{.GradeLevel}}
Guardrail: {{.Guardrail}}
Mastery within guardrail: {{.MasteryPercent}}%
Confidence: {{.Analysis.Confidence}}
{{if .Analysis.SuggestedGuardrail}}Suggested guardrail: {{.Analysis.SuggestedGuardrail}}
{{end}}
Struggling areas:
{{range .Analysis.StrugglingAreas}}- {{.}}
{{else}}- none
{{end}}
Recommendations:
{{range .Analysis.RecommendedAdjustments}}- {{.}}
{{else}}- none
{{end}}
Recent sessions (oldest first):
{{range .Sessions}}- accuracy {{.Accuracy}}%, average {{printf "%.1f" .AverageTimeSeconds}}s, fast {{.FastAnswers}}, slow {{.SlowAnswers}}
{{else}}- none
{{end}}`))

func buildNarrateMessage(req NarrateRequest) (string, error) {
	var buf bytes.Buffer
	if err := narrateUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

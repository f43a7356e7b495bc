package llm

import (
	"context"
	"encoding/json"
)

// Provider produces one reply per request. Implementations are safe for
// concurrent use.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model requests are sent to.
	ModelID() string
}

// Request is a single-turn prompt.
type Request struct {
	// Purpose labels the request in logs, metrics and the request ledger,
	// e.g. "coach-note".
	Purpose string

	System string
	Prompt string

	// Schema, when set, asks the vendor for JSON output and the reply is
	// validated against it. Without a schema Content is the raw text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Schema is a named JSON Schema.
type Schema struct {
	// Name is kebab-case; vendors use it as the format or tool name.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a checked reply.
type Response struct {
	Content json.RawMessage
	Usage   Usage

	// Model is the model that served the request, which may be more
	// specific than the configured one.
	Model string

	// Truncated is set when generation hit MaxTokens. Client never returns
	// such a response; it reports KindTruncated instead.
	Truncated bool
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

const defaultMaxTokens = 1024

func purposeOf(req Request) string {
	if req.Purpose == "" {
		return "unknown"
	}
	return req.Purpose
}

package llm

import (
	"context"
	"fmt"
)

// backend sends one request through a vendor SDK. It reports truncation
// on the response and leaves output checks to Client.
type backend interface {
	send(ctx context.Context, model string, req Request) (*Response, error)
}

// Client is the Provider for one vendor and model.
type Client struct {
	vendor  string
	model   string
	backend backend
	schemas *schemaCache
}

var _ Provider = (*Client)(nil)

// New builds a Client for cfg without decorators.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Provider == "mock" {
		return nil, fmt.Errorf("the mock provider has no client; use NewStub")
	}

	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case "anthropic":
		b = newAnthropicBackend(cfg.APIKey, cfg.endpoint())
	case "openai", "openrouter":
		b = newOpenAIBackend(cfg.Provider, cfg.APIKey, cfg.endpoint())
	case "gemini":
		b, err = newGeminiBackend(ctx, cfg.APIKey, cfg.endpoint())
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s: %w", cfg.Provider, err)
	}
	return &Client{
		vendor:  cfg.Provider,
		model:   cfg.ResolvedModel(),
		backend: b,
		schemas: newSchemaCache(),
	}, nil
}

// Generate sends req and checks the reply against req.Schema.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	resp, err := c.backend.send(ctx, c.model, req)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = c.model
	}
	if err := c.schemas.check(c.vendor, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ModelID() string { return c.model }

// Vendor is the provider name the client was built for.
func (c *Client) Vendor() string { return c.vendor }

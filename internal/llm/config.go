package llm

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config selects a vendor and model for coach notes.
type Config struct {
	// Provider is anthropic, openai, openrouter, gemini or mock.
	Provider string

	// Model is a vendor model id or one of the vendor's aliases. Empty
	// picks the vendor default.
	Model  string
	APIKey string

	// BaseURL overrides the vendor endpoint.
	BaseURL string

	Retry RetryConfig

	// Timeout bounds one Generate call including retries. Zero disables it.
	Timeout time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

type vendor struct {
	defaultModel string
	aliases      map[string]string
	baseURL      string
}

var vendors = map[string]vendor{
	"anthropic": {
		defaultModel: "claude-haiku",
		aliases: map[string]string{
			"claude-haiku":  "claude-haiku-4-5",
			"claude-sonnet": "claude-sonnet-4-5",
		},
	},
	"openai": {
		defaultModel: "gpt-4o-mini",
	},
	"openrouter": {
		defaultModel: "google/gemini-2.0-flash-001",
		baseURL:      "https://openrouter.ai/api/v1",
	},
	"gemini": {
		defaultModel: "gemini-flash",
		aliases: map[string]string{
			"gemini-flash": "gemini-2.5-flash",
			"gemini-pro":   "gemini-2.5-pro",
		},
	},
}

func DefaultConfig() Config {
	return Config{
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// Validate checks the provider is known and has a key.
func (c Config) Validate() error {
	if c.Provider == "mock" {
		return nil
	}
	if _, ok := vendors[c.Provider]; !ok {
		return fmt.Errorf("unknown LLM provider %q (want one of %s)", c.Provider, strings.Join(Vendors(), ", "))
	}
	if c.APIKey == "" {
		return fmt.Errorf("an API key is required for the %s provider", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// ResolvedModel returns the vendor model id the config sends requests to.
func (c Config) ResolvedModel() string {
	v := vendors[c.Provider]
	name := c.Model
	if name == "" {
		name = v.defaultModel
	}
	if id, ok := v.aliases[name]; ok {
		return id
	}
	return name
}

func (c Config) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return vendors[c.Provider].baseURL
}

// Vendors lists the supported providers in name order.
func Vendors() []string {
	names := make([]string, 0, len(vendors))
	for name := range vendors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

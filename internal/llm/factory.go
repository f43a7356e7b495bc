package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/store"
)

// NewProvider builds the configured provider wrapped as
// timeout -> retry -> logging -> client, so every attempt is logged and the
// deadline covers all of them. events and logger may be nil.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, logger *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Provider == "mock" {
		return NewStub(), nil
	}

	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := WithRetry(WithLogging(client, events, logger), cfg.Retry, logger)
	if cfg.Timeout > 0 {
		p = withTimeout(p, cfg.Timeout)
	}
	return p, nil
}

type timeout struct {
	inner Provider
	d     time.Duration
}

func withTimeout(p Provider, d time.Duration) Provider {
	return &timeout{inner: p, d: d}
}

func (t *timeout) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeout) ModelID() string { return t.inner.ModelID() }

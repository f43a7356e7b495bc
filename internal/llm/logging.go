package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/store"
)

var (
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM requests by model, purpose and result (ok, error).",
	}, []string{"model", "purpose", "result"})

	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "Tokens consumed by model and direction (input, output).",
	}, []string{"model", "direction"})

	llmCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "llm",
		Name:      "cost_usd_total",
		Help:      "Estimated LLM spend in USD by model.",
	}, []string{"model"})
)

type logging struct {
	inner  Provider
	vendor string
	events store.EventRepo
	logger *zap.Logger
	now    func() time.Time
}

// WithLogging records each request in the request ledger, the log and the
// LLM metrics. A ledger write failure is logged and never fails the
// request. events and logger may be nil.
func WithLogging(p Provider, events store.EventRepo, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	vendor := "unknown"
	if v, ok := p.(interface{ Vendor() string }); ok {
		vendor = v.Vendor()
	}
	return &logging{inner: p, vendor: vendor, events: events, logger: logger, now: time.Now}
}

func (l *logging) Generate(ctx context.Context, req Request) (*Response, error) {
	start := l.now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    l.vendor,
		Model:       l.inner.ModelID(),
		Purpose:     purposeOf(req),
		LatencyMs:   l.now().Sub(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
		if p, ok := LookupPrice(ev.Model); ok {
			ev.CostUSD = p.Cost(resp.Usage)
		}
	}
	result := "ok"
	if err != nil {
		result = "error"
		ev.ErrorMessage = err.Error()
	}

	llmRequests.WithLabelValues(ev.Model, ev.Purpose, result).Inc()
	llmTokens.WithLabelValues(ev.Model, "input").Add(float64(ev.InputTokens))
	llmTokens.WithLabelValues(ev.Model, "output").Add(float64(ev.OutputTokens))
	llmCost.WithLabelValues(ev.Model).Add(ev.CostUSD)

	fields := []zap.Field{
		zap.String("vendor", ev.Provider),
		zap.String("model", ev.Model),
		zap.String("purpose", ev.Purpose),
		zap.Int64("latency_ms", ev.LatencyMs),
		zap.Int("input_tokens", ev.InputTokens),
		zap.Int("output_tokens", ev.OutputTokens),
	}
	if err != nil {
		l.logger.Warn("LLM request failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Debug("LLM request", append(fields, zap.Float64("cost_usd", ev.CostUSD))...)
	}

	if l.events != nil {
		if lerr := l.events.AppendLLMRequest(ctx, ev); lerr != nil {
			l.logger.Warn("failed to record LLM request", zap.String("purpose", ev.Purpose), zap.Error(lerr))
		}
	}
	return resp, err
}

func (l *logging) ModelID() string { return l.inner.ModelID() }

// transcript renders a request for the ledger.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	fmt.Fprintf(&b, "[user]\n%s\n", req.Prompt)
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "\n[schema %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/timesgrid/internal/store"
)

type recordingEvents struct {
	store.EventRepo
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEvents) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.events = append(r.events, data)
	return r.err
}

func TestLogging_RecordsPricedEvent(t *testing.T) {
	events := &recordingEvents{}
	stub := NewStub(Reply{
		Content: json.RawMessage(`{"headline":"ok"}`),
		Usage:   Usage{InputTokens: 1000, OutputTokens: 500},
	})
	p := WithLogging(stub, events, nil).(*logging)
	tick := time.Unix(0, 0)
	p.now = func() time.Time {
		tick = tick.Add(150 * time.Millisecond)
		return tick
	}

	if _, err := p.Generate(context.Background(), noteRequest()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(events.events))
	}
	ev := events.events[0]
	if ev.Provider != "mock" || ev.Model != "mock" || ev.Purpose != "coach-note" || !ev.Success {
		t.Errorf("event = %+v", ev)
	}
	if ev.LatencyMs != 150 {
		t.Errorf("LatencyMs = %d, want 150", ev.LatencyMs)
	}
	if ev.InputTokens != 1000 || ev.OutputTokens != 500 {
		t.Errorf("tokens = %d/%d", ev.InputTokens, ev.OutputTokens)
	}
	// "mock" has no price.
	if ev.CostUSD != 0 {
		t.Errorf("CostUSD = %v, want 0", ev.CostUSD)
	}
	for _, part := range []string{"[system]", "[user]\nSummarize this student.", "[schema test-note]"} {
		if !strings.Contains(ev.RequestBody, part) {
			t.Errorf("RequestBody missing %q:\n%s", part, ev.RequestBody)
		}
	}
}

func TestLogging_FailureIsRecordedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	events := &recordingEvents{}
	stub := NewStub(Reply{Err: &Error{Kind: KindUnavailable, Vendor: "mock"}})

	_, err := WithLogging(stub, events, zap.New(core)).Generate(context.Background(), noteRequest())
	if !IsKind(err, KindUnavailable) {
		t.Fatalf("Generate() error = %v, want unavailable", err)
	}
	if len(events.events) != 1 || events.events[0].Success || events.events[0].ErrorMessage == "" {
		t.Errorf("events = %+v, want one failed event", events.events)
	}
	if logs.FilterMessage("LLM request failed").Len() != 1 {
		t.Errorf("want one failure log, got %v", logs.All())
	}
}

func TestLogging_LedgerErrorDoesNotFailRequest(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	events := &recordingEvents{err: errors.New("disk full")}
	stub := NewStub(Reply{Content: json.RawMessage(`{"headline":"ok"}`)})

	if _, err := WithLogging(stub, events, zap.New(core)).Generate(context.Background(), noteRequest()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if logs.FilterMessage("failed to record LLM request").Len() != 1 {
		t.Errorf("want ledger failure logged, got %v", logs.All())
	}
}

func TestLogging_NilLedger(t *testing.T) {
	stub := NewStub(Reply{Content: json.RawMessage(`{"headline":"ok"}`)})
	if _, err := WithLogging(stub, nil, nil).Generate(context.Background(), noteRequest()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

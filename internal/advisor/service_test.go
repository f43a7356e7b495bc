package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/abhisek/timesgrid/internal/llm"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

type fakeProgress struct {
	data      store.ProgressData
	guardrail string
}

func (f *fakeProgress) GetMathProgress(context.Context, string, string) (*store.ProgressData, error) {
	d := f.data
	return &d, nil
}

func (f *fakeProgress) UpdateMathGrid(context.Context, string, []store.CellData) error { return nil }

func (f *fakeProgress) SetMathGuardrail(_ context.Context, _ string, g string) error {
	f.guardrail = g
	return nil
}

type fakeSessions struct {
	store.SessionRepo
	recent []store.SessionRecord
	limit  int
}

func (f *fakeSessions) RecentSessions(_ context.Context, _ string, limit int) ([]store.SessionRecord, error) {
	f.limit = limit
	return f.recent, nil
}

func newTestService(narrator *Narrator) (*Service, *fakeProgress, *fakeSessions) {
	progress := &fakeProgress{data: store.ProgressData{
		StudentID:  "s1",
		Email:      "kid@example.com",
		GradeLevel: "3",
		Guardrail:  "1-9",
		Cells: []store.CellData{
			{Multiplicand: 7, Multiplier: 8, Attempts: 7, ConsecutiveCorrect: 0, LastAttemptSpeed: "slow"},
		},
	}}
	sessions := &fakeSessions{recent: []store.SessionRecord{
		{Counters: store.SessionCounters{Accuracy: 65, AverageTimePerQuestion: 9, FastAnswers: 4, SlowAnswers: 2}},
		{Counters: store.SessionCounters{Accuracy: 85, AverageTimePerQuestion: 7, FastAnswers: 6, SlowAnswers: 1}},
	}}
	gen := problemgen.New(rand.New(rand.NewPCG(1, 2)), problemgen.DefaultConfig())
	return NewService(progress, sessions, gen, narrator, nil), progress, sessions
}

func TestReview(t *testing.T) {
	svc, _, sessions := newTestService(nil)

	r, err := svc.Review(context.Background(), "kid@example.com", "3")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if sessions.limit != DefaultHistorySize {
		t.Errorf("history limit = %d, want %d", sessions.limit, DefaultHistorySize)
	}
	if r.Sessions[0].Accuracy != 85 || r.Sessions[1].Accuracy != 65 {
		t.Errorf("Sessions = %+v, want oldest first", r.Sessions)
	}

	want := []string{"7 × 8 multiplication", "Low overall mastery rate", "Low accuracy rate", "Declining accuracy trend"}
	if strings.Join(r.Analysis.StrugglingAreas, "|") != strings.Join(want, "|") {
		t.Errorf("StrugglingAreas = %v, want %v", r.Analysis.StrugglingAreas, want)
	}
	if r.Analysis.SuggestedGuardrail != mastery.Guardrail5 {
		t.Errorf("SuggestedGuardrail = %q, want 1-5", r.Analysis.SuggestedGuardrail)
	}
	if len(r.Problems) != 1 || r.Problems[0].Answer != 56 {
		t.Errorf("Problems = %+v, want one 7 × 8 problem", r.Problems)
	}
	if r.Note != nil {
		t.Errorf("Note = %+v, want nil without narrator", r.Note)
	}
}

func TestReview_Narrated(t *testing.T) {
	note := CoachNote{Headline: "Needs a smaller range", Note: "Work on 7 × 8 and drop to 1-5 for a week.", FocusFacts: []string{"7 × 8"}}
	content, _ := json.Marshal(note)
	stub := llm.NewStub(llm.Reply{Content: content})

	svc, _, _ := newTestService(NewNarrator(stub, DefaultNarratorConfig()))
	r, err := svc.Review(context.Background(), "kid@example.com", "3")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if r.Note == nil || r.Note.Headline != note.Headline {
		t.Fatalf("Note = %+v, want %+v", r.Note, note)
	}
	reqs := stub.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].Purpose != "coach-note" {
		t.Errorf("Purpose = %q, want coach-note", reqs[0].Purpose)
	}
	prompt := reqs[0].Prompt
	for _, s := range []string{"Guardrail: 1-9", "Declining accuracy trend", "Suggested guardrail: 1-5"} {
		if !strings.Contains(prompt, s) {
			t.Errorf("prompt missing %q:\n%s", s, prompt)
		}
	}
	if reqs[0].Schema != CoachNoteSchema {
		t.Error("request did not carry the coach note schema")
	}
}

func TestReview_NarrationFailureIsDropped(t *testing.T) {
	stub := llm.NewStub(llm.Reply{Content: json.RawMessage(`{"headline": "missing fields"}`)})
	svc, _, _ := newTestService(NewNarrator(stub, DefaultNarratorConfig()))

	r, err := svc.Review(context.Background(), "kid@example.com", "3")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if r.Note != nil {
		t.Errorf("Note = %+v, want nil for invalid response", r.Note)
	}
	if len(r.Analysis.StrugglingAreas) == 0 {
		t.Error("analysis should still be returned")
	}
}

func TestApplySuggestion(t *testing.T) {
	svc, progress, _ := newTestService(nil)
	ctx := context.Background()

	gr, err := svc.ApplySuggestion(ctx, "s1", Analysis{SuggestedGuardrail: mastery.Guardrail5})
	if err != nil {
		t.Fatalf("ApplySuggestion() error = %v", err)
	}
	if gr != mastery.Guardrail5 || progress.guardrail != "1-5" {
		t.Errorf("guardrail = %q (stored %q), want 1-5", gr, progress.guardrail)
	}

	if _, err := svc.ApplySuggestion(ctx, "s1", Analysis{}); !errors.Is(err, ErrNoSuggestion) {
		t.Errorf("ApplySuggestion(no suggestion) error = %v, want ErrNoSuggestion", err)
	}
	if _, err := svc.ApplySuggestion(ctx, "s1", Analysis{SuggestedGuardrail: "2-7"}); !errors.Is(err, mastery.ErrInvalidGuardrail) {
		t.Errorf("ApplySuggestion(bad level) error = %v, want ErrInvalidGuardrail", err)
	}
}

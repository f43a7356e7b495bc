package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

const testStudent = "student-1"

// fakeStore is an in-memory implementation of every repo the engine uses.
type fakeStore struct {
	mu sync.Mutex

	progress *store.ProgressData
	buckets  *store.TimeBuckets

	progressErr error
	createErr   error
	updateErr   error
	completeErr error
	gridErr     error
	recordErr   error

	// recordGate, when set, holds every RecordAttempt until it is closed.
	recordGate chan struct{}

	nextID     int
	sessions   map[string]*store.SessionRecord
	updates    []store.SessionCounters
	completed  []string
	gridWrites [][]store.CellData
	attempts   []store.AttemptData
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		progress: &store.ProgressData{
			StudentID:  testStudent,
			Email:      "kid@example.com",
			GradeLevel: "3",
			Guardrail:  "1-12",
		},
		sessions: make(map[string]*store.SessionRecord),
	}
}

func (f *fakeStore) CreateSession(_ context.Context, in store.CreateSessionInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("session-%d", f.nextID)
	f.sessions[id] = &store.SessionRecord{
		ID:          id,
		StudentID:   f.progress.StudentID,
		Subject:     in.Subject,
		SessionType: in.SessionType,
		GradeLevel:  in.GradeLevel,
		Problems:    in.Problems,
		TotalItems:  len(in.Problems),
		StartedAt:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	return id, nil
}

func (f *fakeStore) UpdateSession(_ context.Context, id string, c store.SessionCounters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, c)
	if rec, ok := f.sessions[id]; ok {
		rec.Counters = c
	}
	return nil
}

func (f *fakeStore) CompleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, id)
	if rec, ok := f.sessions[id]; ok {
		now := time.Now()
		rec.CompletedAt = &now
	}
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*store.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) ActiveSessions(_ context.Context, studentID string) ([]store.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.ActiveSession
	for _, rec := range f.sessions {
		if rec.StudentID == studentID && rec.CompletedAt == nil {
			out = append(out, store.ActiveSession{ID: rec.ID, SessionType: rec.SessionType, TotalItems: rec.TotalItems})
		}
	}
	return out, nil
}

func (f *fakeStore) RecentSessions(context.Context, string, int) ([]store.SessionRecord, error) {
	return nil, nil
}

func (f *fakeStore) RecordAttempt(_ context.Context, a store.AttemptData) error {
	if f.recordGate != nil {
		<-f.recordGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeStore) SessionAttempts(_ context.Context, sessionID string) ([]store.AttemptData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.AttemptData
	for _, a := range f.attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetMathProgress(context.Context, string, string) (*store.ProgressData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	cp := *f.progress
	return &cp, nil
}

func (f *fakeStore) UpdateMathGrid(_ context.Context, _ string, cells []store.CellData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gridErr != nil {
		return f.gridErr
	}
	f.gridWrites = append(f.gridWrites, cells)
	return nil
}

func (f *fakeStore) SetMathGuardrail(context.Context, string, string) error { return nil }

func (f *fakeStore) TimeBuckets(context.Context) (*store.TimeBuckets, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets, nil
}

func (f *fakeStore) SetTimeBuckets(_ context.Context, tb store.TimeBuckets) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets = &tb
	return nil
}

func (f *fakeStore) counts() (updates, completed, grids, attempts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates), len(f.completed), len(f.gridWrites), len(f.attempts)
}

// masterAllBut stores a mastered cell for every fact except open.
func (f *fakeStore) masterAllBut(open ...facts.Fact) {
	skip := make(map[facts.Fact]bool, len(open))
	for _, o := range open {
		skip[o] = true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress.Cells = f.progress.Cells[:0]
	for m := 1; m <= facts.MaxFactor; m++ {
		for n := 1; n <= facts.MaxFactor; n++ {
			if skip[facts.New(m, n)] {
				continue
			}
			f.progress.Cells = append(f.progress.Cells, store.CellData{
				Multiplicand: m, Multiplier: n,
				ConsecutiveCorrect: 3, LastAttemptCorrect: true, Attempts: 3,
			})
		}
	}
}

// fixedQueue serves the same problems for every session type.
type fixedQueue []problemgen.Problem

func (q fixedQueue) Placement(string) []problemgen.Problem {
	return append([]problemgen.Problem(nil), q...)
}

func (q fixedQueue) Practice(*mastery.Grid) []problemgen.Problem {
	return append([]problemgen.Problem(nil), q...)
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

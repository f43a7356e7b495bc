package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := Open(context.Background(), DriverSQLite, dsn, Options{})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
	if s.Dialect() != "sqlite3" {
		t.Errorf("dialect = %q, want sqlite3", s.Dialect())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", Options{})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/tmp/a.db", "file:/tmp/a.db?_pragma=foreign_keys(1)"},
		{"file:x?mode=memory", "file:x?mode=memory&_pragma=foreign_keys(1)"},
		{"file:y?_pragma=foreign_keys(1)", "file:y?_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func createSession(t *testing.T, s *Store, email, sessionType string, n int) string {
	t.Helper()
	problems := make([]ProblemData, n)
	for i := range problems {
		problems[i] = ProblemData{ID: fmt.Sprintf("problem-%d", i), Multiplicand: 2, Multiplier: i + 1, Answer: 2 * (i + 1), Difficulty: "basic"}
	}
	id, err := s.SessionRepo().CreateSession(context.Background(), CreateSessionInput{
		Subject:      "math",
		StudentEmail: email,
		GradeLevel:   "3",
		SessionType:  sessionType,
		Problems:     problems,
	})
	require.NoError(t, err)
	return id
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.SessionRepo()

	id := createSession(t, s, "kid@example.com", SessionPractice, 3)
	require.NotEmpty(t, id)

	rec, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, SessionPractice, rec.SessionType)
	assert.Equal(t, 3, rec.TotalItems)
	assert.Len(t, rec.Problems, 3)
	assert.Equal(t, 4, rec.Problems[1].Answer)
	assert.Nil(t, rec.CompletedAt)

	active, err := repo.ActiveSessions(ctx, rec.StudentID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)

	counters := SessionCounters{ItemsAttempted: 2, ItemsCorrect: 1, Accuracy: 50, DurationSeconds: 40, AverageTimePerQuestion: 3.5, FastAnswers: 1, SlowAnswers: 1}
	require.NoError(t, repo.UpdateSession(ctx, id, counters))
	require.NoError(t, repo.CompleteSession(ctx, id))

	rec, err = repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, counters, rec.Counters)
	assert.NotNil(t, rec.CompletedAt)

	active, err = repo.ActiveSessions(ctx, rec.StudentID)
	require.NoError(t, err)
	assert.Empty(t, active)

	recent, err := repo.RecentSessions(ctx, rec.StudentID, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 50, recent[0].Counters.Accuracy)
}

func TestSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SessionRepo().GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.SessionRepo().UpdateSession(ctx, "missing", SessionCounters{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAttempts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createSession(t, s, "kid@example.com", SessionPlacement, 2)

	for i, correct := range []bool{true, false} {
		err := s.AttemptRepo().RecordAttempt(ctx, AttemptData{
			SessionID: id, StudentID: "stu", Multiplicand: 2, Multiplier: i + 1,
			GivenAnswer: 2, CorrectAnswer: 2 * (i + 1), IsCorrect: correct,
			ElapsedSeconds: 3, Ordinal: i + 1, Speed: "fast",
		})
		require.NoError(t, err)
	}

	got, err := s.AttemptRepo().SessionAttempts(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Ordinal)
	assert.True(t, got[0].IsCorrect)
	assert.False(t, got[1].IsCorrect)
}

func TestProgressCreatesStudentOnFirstFetch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.ProgressRepo().GetMathProgress(ctx, "new@example.com", "4")
	require.NoError(t, err)
	assert.NotEmpty(t, p.StudentID)
	assert.Equal(t, DefaultGuardrail, p.Guardrail)
	assert.Equal(t, "4", p.GradeLevel)
	assert.Empty(t, p.Cells)

	again, err := s.ProgressRepo().GetMathProgress(ctx, "new@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, p.StudentID, again.StudentID)
	assert.Equal(t, "4", again.GradeLevel)
}

func TestUpdateMathGridKeepsMasteryTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.ProgressRepo()

	p, err := repo.GetMathProgress(ctx, "kid@example.com", "3")
	require.NoError(t, err)

	mastered := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateMathGrid(ctx, p.StudentID, []CellData{
		{Multiplicand: 3, Multiplier: 4, ConsecutiveCorrect: 3, LastAttemptCorrect: true, Attempts: 3,
			AverageTimeSeconds: 2, TotalTimeSpent: 6, LastAttemptSpeed: "fast", MasteryAchievedAt: &mastered},
	}))

	// A later session breaks the streak and carries no timestamp.
	require.NoError(t, repo.UpdateMathGrid(ctx, p.StudentID, []CellData{
		{Multiplicand: 3, Multiplier: 4, ConsecutiveCorrect: 0, LastAttemptCorrect: false, Attempts: 4,
			AverageTimeSeconds: 3, TotalTimeSpent: 12, LastAttemptSpeed: "medium"},
	}))

	p, err = repo.GetMathProgress(ctx, "kid@example.com", "3")
	require.NoError(t, err)
	require.Len(t, p.Cells, 1)
	c := p.Cells[0]
	assert.Equal(t, 0, c.ConsecutiveCorrect)
	assert.Equal(t, 4, c.Attempts)
	assert.Equal(t, "medium", c.LastAttemptSpeed)
	require.NotNil(t, c.MasteryAchievedAt)
	assert.True(t, mastered.Equal(*c.MasteryAchievedAt))
}

func TestSetMathGuardrail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.ProgressRepo()

	p, err := repo.GetMathProgress(ctx, "kid@example.com", "3")
	require.NoError(t, err)
	require.NoError(t, repo.SetMathGuardrail(ctx, p.StudentID, "1-5"))

	p, err = repo.GetMathProgress(ctx, "kid@example.com", "3")
	require.NoError(t, err)
	assert.Equal(t, "1-5", p.Guardrail)

	err = repo.SetMathGuardrail(ctx, "nobody", "1-5")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTimeBuckets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.SettingsRepo()

	tb, err := repo.TimeBuckets(ctx)
	require.NoError(t, err)
	assert.Nil(t, tb)

	require.NoError(t, repo.SetTimeBuckets(ctx, TimeBuckets{FastSeconds: 4, MediumSeconds: 12}))
	require.NoError(t, repo.SetTimeBuckets(ctx, TimeBuckets{FastSeconds: 6, MediumSeconds: 18}))

	tb, err = repo.TimeBuckets(ctx)
	require.NoError(t, err)
	require.NotNil(t, tb)
	assert.Equal(t, TimeBuckets{FastSeconds: 6, MediumSeconds: 18}, *tb)
}

func TestJourneyFacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	placement := createSession(t, s, "kid@example.com", SessionPlacement, 2)
	rec, err := s.SessionRepo().GetSession(ctx, placement)
	require.NoError(t, err)

	f, err := s.JourneyRepo().JourneyFacts(ctx, rec.StudentID)
	require.NoError(t, err)
	assert.Equal(t, JourneyFacts{PlacementInProgress: true}, f)

	require.NoError(t, s.SessionRepo().CompleteSession(ctx, placement))
	practice := createSession(t, s, "kid@example.com", SessionPractice, 2)
	require.NoError(t, s.SessionRepo().CompleteSession(ctx, practice))

	f, err = s.JourneyRepo().JourneyFacts(ctx, rec.StudentID)
	require.NoError(t, err)
	assert.Equal(t, JourneyFacts{PlacementCompleted: true, CompletedPracticeSessions: 1}, f)
}

func TestCohort(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createSession(t, s, "a@example.com", SessionPractice, 2)
	createSession(t, s, "b@example.com", SessionPlacement, 2)
	require.NoError(t, s.SessionRepo().CompleteSession(ctx, id))
	rec, err := s.SessionRepo().GetSession(ctx, id)
	require.NoError(t, err)

	for i, speed := range []string{"fast", "slow"} {
		require.NoError(t, s.AttemptRepo().RecordAttempt(ctx, AttemptData{
			SessionID: id, StudentID: rec.StudentID, Multiplicand: 2, Multiplier: 2,
			GivenAnswer: 4, CorrectAnswer: 4, IsCorrect: i == 0, ElapsedSeconds: float64(2 + 20*i),
			Ordinal: i + 1, Speed: speed,
		}))
	}

	m, err := s.CohortRepo().CohortMetrics(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, m.SessionsStarted)
	assert.Equal(t, 1, m.SessionsCompleted)
	assert.Equal(t, 1, m.ActiveStudents)
	assert.Equal(t, 2, m.TotalAttempts)
	assert.Equal(t, 50, m.Accuracy)
	assert.Equal(t, 1, m.FastAnswers)
	assert.Equal(t, 1, m.SlowAnswers)
	assert.InDelta(t, 12.0, m.AverageTimeSeconds, 0.001)

	page, err := s.CohortRepo().ListStudents(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Students, 1)
	assert.Equal(t, "a@example.com", page.Students[0].Email)
	assert.Equal(t, 1, page.Students[0].SessionsCompleted)
	assert.NotNil(t, page.Students[0].LastActivityAt)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.EventRepo()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "coach-note", Success: true, InputTokens: 10, RequestBody: `{"q":1}`, ResponseBody: `{"a":2}`}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "other", ErrorMessage: "boom"}))

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "other", all[0].Purpose)

	filtered, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "coach-note", Limit: 5})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 10, filtered[0].InputTokens)

	one, err := repo.GetLLMEvent(ctx, filtered[0].ID)
	require.NoError(t, err)
	assert.Equal(t, `{"q":1}`, one.RequestBody)
	assert.Equal(t, `{"a":2}`, one.ResponseBody)

	_, err = repo.GetLLMEvent(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

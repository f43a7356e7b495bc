package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

var kid = Student{Email: "kid@example.com", GradeLevel: "3"}

func queueOf(fs ...facts.Fact) fixedQueue {
	q := make(fixedQueue, len(fs))
	for i, f := range fs {
		q[i] = problemgen.NewProblem(fmt.Sprintf("problem-%d", i), f)
	}
	return q
}

func newTestEngine(t *testing.T, st *fakeStore, q QueueSource, cfg Config) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	clock := &stepClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), step: time.Second}
	e := NewEngine(Deps{
		Sessions:  st,
		Attempts:  st,
		Progress:  st,
		Settings:  st,
		Generator: q,
		Clock:     clock.Now,
		Logger:    zap.New(core),
	}, cfg)
	t.Cleanup(e.Close)
	return e, logs
}

func authed() context.Context {
	return WithStudent(context.Background(), testStudent)
}

func TestSubmitAnswer_Correct(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(6, 7)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	p := s.CurrentProblem()
	require.NotNil(t, p)
	assert.Equal(t, 12, p.Answer)

	res, err := s.SubmitAnswer(authed(), 12, 2.5)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 12, res.CorrectAnswer)
	assert.Equal(t, 1, res.Cell.ConsecutiveCorrect)
	assert.Equal(t, 1, res.Cell.Attempts)
	assert.Equal(t, facts.SpeedFast, res.Cell.LastAttemptSpeed)
	assert.Equal(t, PhaseShowingResult, s.Phase())
	assert.Empty(t, s.IncorrectProblems())
}

func TestSubmitAnswer_IncorrectStillAdvances(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(6, 7)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	res, err := s.SubmitAnswer(authed(), 11, 20)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.Cell.ConsecutiveCorrect)
	assert.Equal(t, facts.SpeedSlow, res.Cell.LastAttemptSpeed)

	require.Len(t, s.IncorrectProblems(), 1)
	assert.Equal(t, facts.New(3, 4), s.IncorrectProblems()[0].Fact())

	require.NoError(t, s.Advance())
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, PhaseAwaitingAnswer, s.Phase())
	assert.Equal(t, facts.New(6, 7), s.CurrentProblem().Fact())
}

func TestSubmitAnswer_PlacementDoesNotCollectIncorrect(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePlacement, kid)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(authed(), 1, 3)
	require.NoError(t, err)
	assert.Empty(t, s.IncorrectProblems())
}

func TestSubmitAnswer_NotAuthenticated(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(context.Background(), 12, 1)
	var nae *NotAuthenticatedError
	require.ErrorAs(t, err, &nae)

	_, err = s.SubmitAnswer(WithStudent(context.Background(), "someone-else"), 12, 1)
	require.ErrorAs(t, err, &nae)

	assert.Equal(t, PhaseAwaitingAnswer, s.Phase())
	assert.Empty(t, s.GridUpdates())
}

func TestSubmitAnswer_PhaseErrors(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(2, 2)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(authed(), 4, 1)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(authed(), 4, 1)
	assert.ErrorIs(t, err, ErrAnswerPending)

	require.NoError(t, s.Advance())
	assert.Nil(t, s.CurrentProblem())

	_, err = s.SubmitAnswer(authed(), 4, 1)
	assert.ErrorIs(t, err, ErrQueueExhausted)
	assert.ErrorIs(t, s.Advance(), ErrQueueExhausted)
	assert.Equal(t, 1, s.Index(), "cursor stays at the end of the queue")

	sum, err := s.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Counters.ItemsAttempted)

	_, err = s.SubmitAnswer(authed(), 4, 1)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Advance(), ErrSessionClosed)

	_, err = s.Complete(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSubmitAnswer_RepeatedFactBuildsOnSessionUpdate(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(7, 8), facts.New(7, 8), facts.New(7, 8)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := s.SubmitAnswer(authed(), 56, 4)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Cell.ConsecutiveCorrect)
		require.NoError(t, s.Advance())
	}

	cells := s.GridUpdates()
	require.Len(t, cells, 1)
	assert.True(t, cells[0].Mastered())
	assert.NotNil(t, cells[0].MasteryAchievedAt)
}

func TestSubmitAnswer_UsesStoredThresholds(t *testing.T) {
	st := newFakeStore()
	st.buckets = &store.TimeBuckets{FastSeconds: 2, MediumSeconds: 4}
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(5, 5)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	res, err := s.SubmitAnswer(authed(), 12, 3)
	require.NoError(t, err)
	assert.Equal(t, facts.SpeedMedium, res.Cell.LastAttemptSpeed)

	require.NoError(t, st.SetTimeBuckets(context.Background(), store.TimeBuckets{FastSeconds: 9, MediumSeconds: 3}))
	require.NoError(t, s.Advance())
	res, err = s.SubmitAnswer(authed(), 25, 3)
	require.NoError(t, err)
	assert.Equal(t, facts.SpeedFast, res.Cell.LastAttemptSpeed, "invalid stored thresholds fall back to defaults")
}

func TestSubmitAnswer_AttemptFailureIsLoggedOnly(t *testing.T) {
	st := newFakeStore()
	st.recordErr = errors.New("disk full")
	e, logs := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	res, err := s.SubmitAnswer(authed(), 12, 1)
	require.NoError(t, err)
	assert.True(t, res.Correct)

	e.Close()
	assert.Equal(t, 1, logs.FilterMessage("attempt not recorded").Len())
}

func TestSubmitAnswer_RecordsAttempt(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(6, 7)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(authed(), 12, 1)
	require.NoError(t, err)
	require.NoError(t, s.Advance())
	_, err = s.SubmitAnswer(authed(), 40, 6)
	require.NoError(t, err)

	e.Close()
	require.Len(t, st.attempts, 2)
	assert.Equal(t, 1, st.attempts[0].Ordinal)
	assert.True(t, st.attempts[0].IsCorrect)
	assert.Equal(t, testStudent, st.attempts[0].StudentID)
	assert.Equal(t, 2, st.attempts[1].Ordinal)
	assert.Equal(t, 40, st.attempts[1].GivenAnswer)
	assert.Equal(t, 42, st.attempts[1].CorrectAnswer)
	assert.Equal(t, "medium", st.attempts[1].Speed)
}

func TestComplete_PracticeMergesGrid(t *testing.T) {
	st := newFakeStore()
	prior := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	st.progress.Cells = []store.CellData{{
		Multiplicand:       3,
		Multiplier:         4,
		ConsecutiveCorrect: 2,
		LastAttemptCorrect: true,
		Attempts:           2,
		AverageTimeSeconds: 4,
		TotalTimeSpent:     8,
		LastAttemptSpeed:   "fast",
		LastAttemptAt:      &prior,
	}}
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	res, err := s.SubmitAnswer(authed(), 12, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Cell.ConsecutiveCorrect)
	assert.Equal(t, 3, res.Cell.Attempts)
	assert.InDelta(t, 5.0, res.Cell.AverageTimeSeconds, 1e-9)
	assert.InDelta(t, 15.0, res.Cell.TotalTimeSpent, 1e-9)
	require.NotNil(t, res.Cell.MasteryAchievedAt)
	require.NoError(t, s.Advance())

	sum, err := s.Complete(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Persisted)
	assert.Equal(t, 1, sum.Counters.ItemsAttempted)
	assert.Equal(t, 1, sum.Counters.ItemsCorrect)
	assert.Equal(t, 100, sum.Counters.Accuracy)
	assert.Equal(t, 1, sum.Counters.MediumAnswers)
	assert.Equal(t, []facts.Fact{facts.New(3, 4)}, sum.NewlyMastered)

	require.Len(t, st.gridWrites, 1)
	require.Len(t, st.gridWrites[0], 1)
	assert.Equal(t, 3, st.gridWrites[0][0].ConsecutiveCorrect)
	assert.Equal(t, []string{s.ID()}, st.completed)
	assert.Equal(t, sum.Counters, st.updates[len(st.updates)-1])

	_, live := e.Lookup(s.ID())
	assert.False(t, live)
	assert.Equal(t, PhaseCompleted, s.Phase())
	assert.Empty(t, s.GridUpdates())
}

func TestComplete_PlacementNeverWritesGrid(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(9, 9)), Config{})

	s, err := e.Start(context.Background(), TypePlacement, kid)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(authed(), 12, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())
	_, err = s.SubmitAnswer(authed(), 80, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	sum, err := s.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Counters.ItemsAttempted)
	assert.Equal(t, 1, sum.Counters.ItemsCorrect)
	assert.Equal(t, 50, sum.Counters.Accuracy)

	_, _, grids, _ := st.counts()
	assert.Zero(t, grids)
	assert.Equal(t, []string{s.ID()}, st.completed)
}

func TestComplete_CountersBeforeAnyAnswer(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	sum, err := s.Complete(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Counters.ItemsAttempted)
	assert.Zero(t, sum.Counters.Accuracy)
	assert.Zero(t, sum.Counters.AverageTimePerQuestion)

	_, _, grids, _ := st.counts()
	assert.Zero(t, grids, "nothing to merge")
}

func TestComplete_PersistFailureStillTearsDown(t *testing.T) {
	st := newFakeStore()
	st.updateErr = errors.New("db down")
	st.gridErr = errors.New("db down")
	e, logs := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)
	_, err = s.SubmitAnswer(authed(), 12, 1)
	require.NoError(t, err)

	sum, err := s.Complete(context.Background())
	require.NoError(t, err)
	assert.False(t, sum.Persisted)
	assert.Equal(t, []string{s.ID()}, st.completed, "later writes still run")
	assert.Equal(t, 2, logs.FilterMessage("session write failed").Len())

	_, live := e.Lookup(s.ID())
	assert.False(t, live)
}

func TestStart_EmptyQueueCompletesImmediately(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, fixedQueue{}, Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, s.Phase())
	assert.Nil(t, s.CurrentProblem())
	require.NotNil(t, s.Summary())
	assert.Zero(t, s.Summary().TotalItems)
	assert.Equal(t, []string{s.ID()}, st.completed)
}

func TestStart_Errors(t *testing.T) {
	st := newFakeStore()
	st.createErr = errors.New("insert failed")
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	_, err := e.Start(context.Background(), TypePractice, kid)
	var sce *SessionCreationError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, TypePractice, sce.Type)

	_, err = e.Start(context.Background(), Type("quiz"), kid)
	require.ErrorAs(t, err, &sce)

	_, err = e.Start(context.Background(), TypePractice, Student{})
	require.ErrorAs(t, err, &sce)

	st.createErr = nil
	st.progressErr = errors.New("timeout")
	_, err = e.Start(context.Background(), TypePlacement, kid)
	require.ErrorAs(t, err, &sce)
}

func TestStart_PlacementUsesGradeLength(t *testing.T) {
	st := newFakeStore()
	gen := problemgen.New(rand.New(rand.NewPCG(1, 2)), problemgen.DefaultConfig())
	e, _ := newTestEngine(t, st, gen, Config{})

	s, err := e.Start(context.Background(), TypePlacement, kid)
	require.NoError(t, err)
	assert.Equal(t, 20, s.Total())

	rec, err := st.GetSession(context.Background(), s.ID())
	require.NoError(t, err)
	assert.Len(t, rec.Problems, 20)
	assert.Equal(t, "math", rec.Subject)
}

func TestAutosave_PushesCounters(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(4, 4)), Config{AutosaveInterval: 10 * time.Millisecond})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)
	_, err = s.SubmitAnswer(authed(), 12, 1)
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		n := len(st.updates)
		return n > 0 && st.updates[n-1].ItemsAttempted == 1
	}, time.Second, 5*time.Millisecond)

	_, err = s.Complete(context.Background())
	require.NoError(t, err)

	n, _, _, _ := st.counts()
	time.Sleep(30 * time.Millisecond)
	after, _, _, _ := st.counts()
	assert.Equal(t, n, after, "autosave stops on completion")
}

func TestAbandonAndResume(t *testing.T) {
	st := newFakeStore()
	q := queueOf(facts.New(3, 4), facts.New(6, 7), facts.New(8, 8))
	e, _ := newTestEngine(t, st, q, Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	_, err = s.SubmitAnswer(authed(), 12, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())
	_, err = s.SubmitAnswer(authed(), 41, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	s.Abandon(context.Background())
	_, live := e.Lookup(s.ID())
	assert.False(t, live)

	active, err := e.ActiveSessions(context.Background(), testStudent)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.Eventually(t, func() bool {
		_, _, _, n := st.counts()
		return n == 2
	}, time.Second, 5*time.Millisecond)

	r, err := e.Resume(context.Background(), s.ID(), kid)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Index())
	assert.Equal(t, facts.New(8, 8), r.CurrentProblem().Fact())
	assert.Len(t, r.GridUpdates(), 2)
	require.Len(t, r.IncorrectProblems(), 1)
	assert.Equal(t, facts.New(6, 7), r.IncorrectProblems()[0].Fact())

	_, err = r.SubmitAnswer(authed(), 64, 2)
	require.NoError(t, err)
	require.NoError(t, r.Advance())
	sum, err := r.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Counters.ItemsAttempted)
	assert.Equal(t, 2, sum.Counters.ItemsCorrect)

	_, err = e.Resume(context.Background(), s.ID(), kid)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = e.Resume(context.Background(), "missing", kid)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResume_OtherStudent(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)
	s.Abandon(context.Background())

	st.progress.StudentID = "student-2"
	_, err = e.Resume(context.Background(), s.ID(), Student{Email: "other@example.com"})
	var nae *NotAuthenticatedError
	assert.ErrorAs(t, err, &nae)
}

func TestResume_LiveSessionOtherStudent(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	same, err := e.Resume(context.Background(), s.ID(), kid)
	require.NoError(t, err)
	assert.Same(t, s, same)

	st.mu.Lock()
	st.progress.StudentID = "student-2"
	st.mu.Unlock()
	_, err = e.Resume(context.Background(), s.ID(), Student{Email: "other@example.com"})
	var nae *NotAuthenticatedError
	assert.ErrorAs(t, err, &nae)
}

func TestShutdown_AbandonsLiveSessions(t *testing.T) {
	st := newFakeStore()
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)

	e.Shutdown(context.Background())
	_, live := e.Lookup(s.ID())
	assert.False(t, live)

	updates, completed, _, _ := st.counts()
	assert.Equal(t, 1, updates, "teardown flush")
	assert.Zero(t, completed)
}

func TestPractice_LastOpenFactWithRealGenerator(t *testing.T) {
	tests := []struct {
		name string
		open facts.Fact
	}{
		{"basic", facts.New(3, 4)},
		{"intermediate", facts.New(7, 8)},
		{"advanced", facts.New(11, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			st.masterAllBut(tt.open)
			gen := problemgen.New(rand.New(rand.NewPCG(1, 2)), problemgen.DefaultConfig())
			e, _ := newTestEngine(t, st, gen, Config{})

			s, err := e.Start(context.Background(), TypePractice, kid)
			require.NoError(t, err)
			require.Equal(t, 1, s.Total())
			require.Equal(t, PhaseAwaitingAnswer, s.Phase())

			p := s.CurrentProblem()
			require.NotNil(t, p)
			assert.Equal(t, tt.open, p.Fact())

			res, err := s.SubmitAnswer(authed(), tt.open.Product(), 3)
			require.NoError(t, err)
			assert.True(t, res.Correct)
			assert.Equal(t, 1, res.Cell.ConsecutiveCorrect)
			assert.Nil(t, res.Cell.MasteryAchievedAt)

			require.NoError(t, s.Advance())
			assert.Nil(t, s.CurrentProblem())
		})
	}
}

func TestAbandon_WaitsForQueuedAttempts(t *testing.T) {
	st := newFakeStore()
	st.recordGate = make(chan struct{})
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(6, 7), facts.New(8, 8)), Config{})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)
	_, err = s.SubmitAnswer(authed(), 12, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())
	_, err = s.SubmitAnswer(authed(), 42, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	abandoned := make(chan struct{})
	go func() {
		s.Abandon(context.Background())
		close(abandoned)
	}()

	select {
	case <-abandoned:
		t.Fatal("abandon returned with attempts still queued")
	case <-time.After(20 * time.Millisecond):
	}
	close(st.recordGate)
	<-abandoned

	_, _, _, n := st.counts()
	assert.Equal(t, 2, n)

	r, err := e.Resume(context.Background(), s.ID(), kid)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Index())
	assert.Len(t, r.GridUpdates(), 2)
}

func TestResume_WaitsForQueuedAttempts(t *testing.T) {
	st := newFakeStore()
	st.recordGate = make(chan struct{})
	e, _ := newTestEngine(t, st, queueOf(facts.New(3, 4), facts.New(6, 7)), Config{PersistTimeout: 20 * time.Millisecond})

	s, err := e.Start(context.Background(), TypePractice, kid)
	require.NoError(t, err)
	_, err = s.SubmitAnswer(authed(), 12, 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	// The write is still held, so abandon gives up after the timeout and
	// resume refuses to replay a partial attempt list.
	s.Abandon(context.Background())
	_, err = e.Resume(context.Background(), s.ID(), kid)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(st.recordGate)
	r, err := e.Resume(context.Background(), s.ID(), kid)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Index())
	assert.Len(t, r.GridUpdates(), 1)
}

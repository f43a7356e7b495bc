package session

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

// Session is one live run through a problem queue. It is safe for
// concurrent use.
type Session struct {
	e *Engine

	id        string
	typ       Type
	studentID string
	startedAt time.Time

	mu       sync.Mutex
	phase    Phase
	closed   bool
	queue    []problemgen.Problem
	index    int
	baseline *mastery.Grid

	// updates holds cells touched this session, keyed by fact. order keeps
	// first-touch order.
	updates   map[facts.Fact]mastery.Cell
	order     []facts.Fact
	incorrect []problemgen.Problem

	summary  *Summary
	autosave *autosaver
}

func newSession(e *Engine, id string, typ Type, prog *mastery.Progress, queue []problemgen.Problem, startedAt time.Time) *Session {
	return &Session{
		e:         e,
		id:        id,
		typ:       typ,
		studentID: prog.StudentID,
		startedAt: startedAt,
		phase:     PhaseAwaitingAnswer,
		queue:     queue,
		baseline:  prog.Grid,
		updates:   make(map[facts.Fact]mastery.Cell),
	}
}

// ID returns the stored session id.
func (s *Session) ID() string { return s.id }

// Type returns the session type.
func (s *Session) Type() Type { return s.typ }

// StudentID returns the id of the student the session belongs to.
func (s *Session) StudentID() string { return s.studentID }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Index returns the position of the current problem.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Total returns the queue length.
func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// CurrentProblem returns the problem at the current index, or nil when the
// queue is exhausted or the session is closed.
func (s *Session) CurrentProblem() *problemgen.Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() *problemgen.Problem {
	if s.phase == PhaseCompleted || s.index >= len(s.queue) {
		return nil
	}
	p := s.queue[s.index]
	return &p
}

// IncorrectProblems returns the practice problems answered wrongly so far.
func (s *Session) IncorrectProblems() []problemgen.Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]problemgen.Problem(nil), s.incorrect...)
}

// GridUpdates returns the cells touched this session in first-touch order.
func (s *Session) GridUpdates() []mastery.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cellsLocked()
}

// Summary returns the completion summary, or nil while the session is live.
func (s *Session) Summary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:        s.id,
		Type:      s.typ,
		Phase:     s.phase,
		Index:     s.index,
		Total:     len(s.queue),
		Current:   s.currentLocked(),
		Incorrect: len(s.incorrect),
		StartedAt: s.startedAt,
		Counters:  s.countersLocked(s.e.now()),
	}
}

// SubmitAnswer checks answer against the current problem and records it.
// The context must carry the session's student. Storing the raw attempt
// happens in the background; a storage failure is logged and does not
// affect the result.
func (s *Session) SubmitAnswer(ctx context.Context, answer int, elapsedSeconds float64) (Result, error) {
	studentID, ok := StudentFrom(ctx)
	if !ok {
		return Result{}, &NotAuthenticatedError{SessionID: s.id, Reason: "no student on request"}
	}
	if studentID != s.studentID {
		return Result{}, &NotAuthenticatedError{SessionID: s.id, Reason: "session belongs to another student"}
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	th := s.e.Thresholds(ctx)
	now := s.e.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseCompleted:
		return Result{}, ErrSessionClosed
	case PhaseShowingResult:
		return Result{}, ErrAnswerPending
	}

	p := s.currentLocked()
	if p == nil {
		return Result{}, ErrQueueExhausted
	}

	correct := problemgen.Check(*p, answer)
	cell := mastery.ApplyAnswer(s.priorLocked(p.Fact()), correct, elapsedSeconds, th, now)
	s.putLocked(cell)

	if s.typ == TypePractice && !correct {
		s.incorrect = append(s.incorrect, *p)
	}
	s.phase = PhaseShowingResult

	s.e.recorder.Enqueue(store.AttemptData{
		SessionID:      s.id,
		StudentID:      studentID,
		Multiplicand:   p.Multiplicand,
		Multiplier:     p.Multiplier,
		GivenAnswer:    answer,
		CorrectAnswer:  p.Answer,
		IsCorrect:      correct,
		ElapsedSeconds: elapsedSeconds,
		Ordinal:        s.index + 1,
		Speed:          string(cell.LastAttemptSpeed),
		CreatedAt:      now,
	})

	result := "incorrect"
	if correct {
		result = "correct"
	}
	answers.WithLabelValues(string(s.typ), result).Inc()
	answerSeconds.WithLabelValues(string(cell.LastAttemptSpeed)).Observe(elapsedSeconds)

	return Result{Correct: correct, CorrectAnswer: p.Answer, Cell: cell}, nil
}

// Advance moves to the next problem, whether or not the last answer was
// correct. Once the cursor is past the last problem it stays there and
// Advance returns ErrQueueExhausted, so the index never exceeds the number
// of problems served.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseCompleted {
		return ErrSessionClosed
	}
	if s.index >= len(s.queue) {
		return ErrQueueExhausted
	}
	s.index++
	s.phase = PhaseAwaitingAnswer
	return nil
}

// Complete closes the session and writes the final state. The session is
// torn down even when storage fails; Summary.Persisted reports whether every
// write succeeded.
func (s *Session) Complete(ctx context.Context) (*Summary, error) {
	s.autosave.Stop()

	now := s.e.now()
	s.mu.Lock()
	if s.phase == PhaseCompleted || s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	snap := finishSnapshot{
		typ:       s.typ,
		total:     len(s.queue),
		counters:  s.countersLocked(now),
		cells:     cellData(s.cellsLocked()),
		mastered:  s.newlyMasteredLocked(),
		startedAt: s.startedAt,
		endedAt:   now,
	}
	s.phase = PhaseCompleted
	s.teardownLocked()
	s.mu.Unlock()

	s.e.unregister(s.id)
	summary := s.e.finish(ctx, s, snap)

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	return summary, nil
}

// Abandon flushes the counters, waits for the session's queued attempts
// and releases the session without completing it. It can be resumed later.
func (s *Session) Abandon(ctx context.Context) {
	s.autosave.Stop()
	s.flush(ctx, "abandon")
	if err := s.e.waitAttempts(ctx, s.id); err != nil {
		s.e.logger.Warn("queued attempts not written before abandon",
			zap.Error(err), zap.String("session_id", s.id))
	}

	s.mu.Lock()
	if s.closed || s.phase == PhaseCompleted {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.teardownLocked()
	s.mu.Unlock()

	s.e.unregister(s.id)
	s.e.logger.Info("session abandoned", zap.String("session_id", s.id))
}

func (s *Session) teardownLocked() {
	s.baseline = nil
	s.updates = nil
	s.order = nil
	s.incorrect = nil
}

// priorLocked returns the cell an answer to f builds on: this session's
// update if there is one, else the stored baseline.
func (s *Session) priorLocked(f facts.Fact) mastery.Cell {
	if c, ok := s.updates[f]; ok {
		return c
	}
	if s.baseline != nil {
		return s.baseline.Cell(f)
	}
	return mastery.NewCell(f)
}

func (s *Session) putLocked(c mastery.Cell) {
	if _, ok := s.updates[c.Fact]; !ok {
		s.order = append(s.order, c.Fact)
	}
	s.updates[c.Fact] = c
}

func (s *Session) cellsLocked() []mastery.Cell {
	out := make([]mastery.Cell, 0, len(s.order))
	for _, f := range s.order {
		out = append(out, s.updates[f])
	}
	return out
}

func (s *Session) newlyMasteredLocked() []facts.Fact {
	var out []facts.Fact
	for _, f := range s.order {
		c := s.updates[f]
		if c.MasteryAchievedAt == nil || c.MasteryAchievedAt.Before(s.startedAt) {
			continue
		}
		if s.baseline != nil && s.baseline.Cell(f).MasteryAchievedAt != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// countersLocked derives the aggregate counters. Items attempted is the
// current index. Correct counts touched facts whose latest answer was
// right.
func (s *Session) countersLocked(now time.Time) store.SessionCounters {
	c := store.SessionCounters{ItemsAttempted: s.index}

	var sumAvg float64
	for _, f := range s.order {
		cell := s.updates[f]
		if cell.LastAttemptCorrect {
			c.ItemsCorrect++
		}
		sumAvg += cell.AverageTimeSeconds
		switch cell.LastAttemptSpeed {
		case facts.SpeedFast:
			c.FastAnswers++
		case facts.SpeedMedium:
			c.MediumAnswers++
		case facts.SpeedSlow:
			c.SlowAnswers++
		}
	}

	if c.ItemsAttempted > 0 {
		c.Accuracy = int(math.Round(100 * float64(c.ItemsCorrect) / float64(c.ItemsAttempted)))
	}
	if n := len(s.order); n > 0 {
		c.AverageTimePerQuestion = sumAvg / float64(n)
	}
	if d := now.Sub(s.startedAt); d > 0 {
		c.DurationSeconds = int(d.Seconds())
	}
	return c
}

// replay rebuilds grid updates from recorded attempts.
func (s *Session) replay(attempts []store.AttemptData, th facts.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range attempts {
		f := facts.New(a.Multiplicand, a.Multiplier)
		cell := mastery.ApplyAnswer(s.priorLocked(f), a.IsCorrect, a.ElapsedSeconds, th, a.CreatedAt)
		s.putLocked(cell)

		if s.typ == TypePractice && !a.IsCorrect {
			p := problemgen.NewProblem("", f)
			if i := a.Ordinal - 1; i >= 0 && i < len(s.queue) && s.queue[i].Fact() == f {
				p = s.queue[i]
			}
			s.incorrect = append(s.incorrect, p)
		}
		if a.Ordinal > s.index {
			s.index = a.Ordinal
		}
	}
}

func cellData(cells []mastery.Cell) []store.CellData {
	out := make([]store.CellData, len(cells))
	for i, c := range cells {
		out[i] = c.Data()
	}
	return out
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

// QueueSource builds problem queues.
type QueueSource interface {
	Placement(grade string) []problemgen.Problem
	Practice(grid *mastery.Grid) []problemgen.Problem
}

// Deps are the collaborators an Engine needs. Settings, Clock and Logger
// are optional.
type Deps struct {
	Sessions  store.SessionRepo
	Attempts  store.AttemptRepo
	Progress  store.ProgressRepo
	Settings  store.SettingsRepo
	Generator QueueSource
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Config tunes the engine.
type Config struct {
	// Subject is recorded on every session row.
	Subject string

	// AutosaveInterval is how often live counters are pushed. Zero
	// disables autosave.
	AutosaveInterval time.Duration

	// PersistTimeout bounds each storage call made on behalf of a session.
	PersistTimeout time.Duration

	// Thresholds are used when none are stored or the stored ones are
	// invalid.
	Thresholds facts.Thresholds

	// RecorderBuffer is the number of attempts that may wait to be written.
	RecorderBuffer int
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		Subject:          "math",
		AutosaveInterval: 30 * time.Second,
		PersistTimeout:   10 * time.Second,
		Thresholds:       facts.DefaultThresholds,
		RecorderBuffer:   256,
	}
}

// Engine starts, resumes and tracks practice sessions.
type Engine struct {
	sessions store.SessionRepo
	attempts store.AttemptRepo
	progress store.ProgressRepo
	settings store.SettingsRepo
	gen      QueueSource
	clock    func() time.Time
	logger   *zap.Logger
	cfg      Config

	recorder *attemptRecorder
	flight   singleflight.Group

	mu   sync.Mutex
	live map[string]*Session
}

// NewEngine wires an engine. Call Shutdown or Close when done.
func NewEngine(d Deps, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = def.PersistTimeout
	}
	if cfg.Thresholds.Validate() != nil {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.RecorderBuffer <= 0 {
		cfg.RecorderBuffer = def.RecorderBuffer
	}
	if cfg.Subject == "" {
		cfg.Subject = def.Subject
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	return &Engine{
		sessions: d.Sessions,
		attempts: d.Attempts,
		progress: d.Progress,
		settings: d.Settings,
		gen:      d.Generator,
		clock:    d.Clock,
		logger:   d.Logger,
		cfg:      cfg,
		recorder: newAttemptRecorder(d.Attempts, d.Logger, cfg.RecorderBuffer, cfg.PersistTimeout),
		live:     make(map[string]*Session),
	}
}

func (e *Engine) now() time.Time {
	return e.clock()
}

// Start creates a session of the given type for student. Practice queues
// are built from the student's stored grid. An empty queue yields a session
// that is already completed.
func (e *Engine) Start(ctx context.Context, typ Type, student Student) (*Session, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return nil, &SessionCreationError{Type: typ, Err: err}
	}
	if student.Email == "" {
		return nil, &SessionCreationError{Type: typ, Err: errors.New("student email is required")}
	}

	data, err := e.progress.GetMathProgress(ctx, student.Email, student.GradeLevel)
	if err != nil {
		return nil, &SessionCreationError{Type: typ, Err: fmt.Errorf("load progress: %w", err)}
	}
	prog, err := mastery.FromProgressData(data)
	if err != nil {
		return nil, &SessionCreationError{Type: typ, Err: err}
	}

	var queue []problemgen.Problem
	switch typ {
	case TypePlacement:
		queue = e.gen.Placement(student.GradeLevel)
	case TypePractice:
		queue = e.gen.Practice(prog.Grid)
	}

	id, err := e.sessions.CreateSession(ctx, store.CreateSessionInput{
		Subject:      e.cfg.Subject,
		StudentEmail: student.Email,
		GradeLevel:   student.GradeLevel,
		SessionType:  string(typ),
		Problems:     problemData(queue),
	})
	if err != nil {
		return nil, &SessionCreationError{Type: typ, Err: err}
	}

	s := newSession(e, id, typ, prog, queue, e.now())
	sessionsStarted.WithLabelValues(string(typ)).Inc()
	e.logger.Info("session started",
		zap.String("session_id", id),
		zap.String("type", string(typ)),
		zap.String("student_id", prog.StudentID),
		zap.Int("problems", len(queue)))

	if len(queue) == 0 {
		if _, err := s.Complete(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	e.register(s)
	s.startAutosave(e.cfg.AutosaveInterval)
	return s, nil
}

// Resume rebuilds an incomplete session from its stored queue and recorded
// attempts. The session must belong to student.
func (e *Engine) Resume(ctx context.Context, id string, student Student) (*Session, error) {
	if s, ok := e.Lookup(id); ok {
		data, err := e.progress.GetMathProgress(ctx, student.Email, student.GradeLevel)
		if err != nil {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		if data.StudentID != s.StudentID() {
			return nil, &NotAuthenticatedError{SessionID: id, Reason: "session belongs to another student"}
		}
		return s, nil
	}

	rec, err := e.sessions.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if rec.CompletedAt != nil {
		return nil, ErrSessionClosed
	}

	data, err := e.progress.GetMathProgress(ctx, student.Email, student.GradeLevel)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if data.StudentID != rec.StudentID {
		return nil, &NotAuthenticatedError{SessionID: id, Reason: "session belongs to another student"}
	}
	prog, err := mastery.FromProgressData(data)
	if err != nil {
		return nil, err
	}

	// Answers from an earlier run of this session may still be queued.
	if err := e.waitAttempts(ctx, id); err != nil {
		return nil, fmt.Errorf("wait for attempts of session %s: %w", id, err)
	}
	attempts, err := e.attempts.SessionAttempts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load attempts for session %s: %w", id, err)
	}

	typ := Type(rec.SessionType)
	queue := problems(rec.Problems)
	s := newSession(e, id, typ, prog, queue, rec.StartedAt)
	s.replay(attempts, e.Thresholds(ctx))

	s.mu.Lock()
	if rec.Counters.ItemsAttempted > s.index {
		s.index = rec.Counters.ItemsAttempted
	}
	if s.index > len(queue) {
		s.index = len(queue)
	}
	s.mu.Unlock()

	e.logger.Info("session resumed",
		zap.String("session_id", id),
		zap.String("type", string(typ)),
		zap.Int("replayed", len(attempts)),
		zap.Int("index", s.index))

	e.register(s)
	s.startAutosave(e.cfg.AutosaveInterval)
	return s, nil
}

// ActiveSessions lists the student's incomplete sessions.
func (e *Engine) ActiveSessions(ctx context.Context, studentID string) ([]store.ActiveSession, error) {
	return e.sessions.ActiveSessions(ctx, studentID)
}

// Lookup returns a live session by id.
func (e *Engine) Lookup(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.live[id]
	return s, ok
}

// Shutdown flushes and releases every live session. They stay incomplete
// in storage and can be resumed later.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	live := make([]*Session, 0, len(e.live))
	for _, s := range e.live {
		live = append(live, s)
	}
	e.mu.Unlock()

	for _, s := range live {
		s.Abandon(ctx)
	}
	e.Close()
}

// waitAttempts waits for the session's queued attempts, bounded by the
// persist timeout.
func (e *Engine) waitAttempts(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	defer cancel()
	return e.recorder.Wait(ctx, id)
}

// Close waits for queued attempts to be written.
func (e *Engine) Close() {
	e.recorder.Close()
}

func (e *Engine) register(s *Session) {
	e.mu.Lock()
	e.live[s.id] = s
	e.mu.Unlock()
	sessionsLive.Inc()
}

func (e *Engine) unregister(id string) {
	e.mu.Lock()
	_, ok := e.live[id]
	delete(e.live, id)
	e.mu.Unlock()
	if ok {
		sessionsLive.Dec()
	}
}

// Thresholds returns the stored speed thresholds, falling back to the
// configured defaults.
func (e *Engine) Thresholds(ctx context.Context) facts.Thresholds {
	if e.settings == nil {
		return e.cfg.Thresholds
	}
	tb, err := e.settings.TimeBuckets(ctx)
	if err != nil {
		e.logger.Warn("using default speed thresholds", zap.Error(err))
		return e.cfg.Thresholds
	}
	if tb == nil {
		return e.cfg.Thresholds
	}
	th := facts.Thresholds{Fast: tb.FastSeconds, Medium: tb.MediumSeconds}
	if err := th.Validate(); err != nil {
		e.logger.Warn("stored speed thresholds are invalid", zap.Error(err))
		return e.cfg.Thresholds
	}
	return th
}

// finishSnapshot is the state captured when a session closes.
type finishSnapshot struct {
	typ       Type
	total     int
	counters  store.SessionCounters
	cells     []store.CellData
	mastered  []facts.Fact
	startedAt time.Time
	endedAt   time.Time
}

// finish writes the final counters, marks the session completed and, for
// practice, merges grid updates. Each failure is logged and the remaining
// writes still run.
func (e *Engine) finish(ctx context.Context, s *Session, snap finishSnapshot) *Summary {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.PersistTimeout)
	defer cancel()

	persisted := true
	report := func(op string, err error) {
		if err == nil {
			return
		}
		persisted = false
		persistFailures.WithLabelValues(op).Inc()
		e.logger.Error("session write failed",
			zap.Error(&SessionUpdateError{SessionID: s.id, Op: op, Err: err}),
			zap.String("session_id", s.id))
	}

	report("update", e.sessions.UpdateSession(pctx, s.id, snap.counters))
	report("complete", e.sessions.CompleteSession(pctx, s.id))
	if snap.typ == TypePractice && len(snap.cells) > 0 {
		report("update_grid", e.progress.UpdateMathGrid(pctx, s.studentID, snap.cells))
	}

	sessionsCompleted.WithLabelValues(string(snap.typ)).Inc()
	e.logger.Info("session completed",
		zap.String("session_id", s.id),
		zap.String("type", string(snap.typ)),
		zap.Int("attempted", snap.counters.ItemsAttempted),
		zap.Int("correct", snap.counters.ItemsCorrect),
		zap.Int("accuracy", snap.counters.Accuracy),
		zap.Bool("persisted", persisted))

	return &Summary{
		SessionID:     s.id,
		Type:          snap.typ,
		TotalItems:    snap.total,
		Counters:      snap.counters,
		Duration:      snap.endedAt.Sub(snap.startedAt),
		NewlyMastered: snap.mastered,
		Persisted:     persisted,
	}
}

func problemData(ps []problemgen.Problem) []store.ProblemData {
	out := make([]store.ProblemData, len(ps))
	for i, p := range ps {
		out[i] = store.ProblemData{
			ID:           p.ID,
			Multiplicand: p.Multiplicand,
			Multiplier:   p.Multiplier,
			Answer:       p.Answer,
			Difficulty:   string(p.Difficulty),
		}
	}
	return out
}

func problems(ds []store.ProblemData) []problemgen.Problem {
	out := make([]problemgen.Problem, len(ds))
	for i, d := range ds {
		p := problemgen.NewProblem(d.ID, facts.New(d.Multiplicand, d.Multiplier))
		if b, err := facts.ParseBand(d.Difficulty); err == nil {
			p.Difficulty = b
		}
		out[i] = p
	}
	return out
}

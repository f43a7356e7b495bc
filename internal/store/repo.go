package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultGuardrail is the guardrail a new student starts with.
const DefaultGuardrail = "1-9"

// Session types as stored.
const (
	SessionPlacement = "placement"
	SessionPractice  = "practice"
)

// ProblemData is one queued problem as stored on the session row.
type ProblemData struct {
	ID           string `json:"id"`
	Multiplicand int    `json:"multiplicand"`
	Multiplier   int    `json:"multiplier"`
	Answer       int    `json:"answer"`
	Difficulty   string `json:"difficulty"`
}

// CreateSessionInput describes a new session row.
type CreateSessionInput struct {
	Subject      string
	StudentEmail string
	GradeLevel   string
	SessionType  string
	Problems     []ProblemData
}

// SessionCounters are the aggregate counters pushed by autosave and completion.
type SessionCounters struct {
	ItemsAttempted         int     `json:"items_attempted"`
	ItemsCorrect           int     `json:"items_correct"`
	Accuracy               int     `json:"accuracy"`
	DurationSeconds        int     `json:"duration_seconds"`
	AverageTimePerQuestion float64 `json:"average_time_per_question"`
	FastAnswers            int     `json:"fast_answers"`
	MediumAnswers          int     `json:"medium_answers"`
	SlowAnswers            int     `json:"slow_answers"`
}

// SessionRecord is a persisted session.
type SessionRecord struct {
	ID             string
	StudentID      string
	Subject        string
	SessionType    string
	GradeLevel     string
	Problems       []ProblemData
	TotalItems     int
	Counters       SessionCounters
	StartedAt      time.Time
	LastActivityAt time.Time
	CompletedAt    *time.Time
}

// ActiveSession is an incomplete session offered for recovery.
type ActiveSession struct {
	ID             string    `json:"id"`
	SessionType    string    `json:"session_type"`
	CompletedItems int       `json:"completed_items"`
	TotalItems     int       `json:"total_items"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// SessionRepo persists session rows.
type SessionRepo interface {
	// CreateSession stores a new session for the student with the given
	// email, creating the student if needed, and returns its id.
	CreateSession(ctx context.Context, in CreateSessionInput) (string, error)

	// UpdateSession overwrites the aggregate counters. Last write wins.
	UpdateSession(ctx context.Context, id string, c SessionCounters) error

	// CompleteSession marks the session completed.
	CompleteSession(ctx context.Context, id string) error

	// GetSession returns the session or ErrNotFound.
	GetSession(ctx context.Context, id string) (*SessionRecord, error)

	// ActiveSessions lists the student's incomplete sessions, newest first.
	ActiveSessions(ctx context.Context, studentID string) ([]ActiveSession, error)

	// RecentSessions lists the student's completed sessions, newest first.
	RecentSessions(ctx context.Context, studentID string, limit int) ([]SessionRecord, error)
}

// AttemptData is one raw answer event.
type AttemptData struct {
	SessionID      string
	StudentID      string
	Multiplicand   int
	Multiplier     int
	GivenAnswer    int
	CorrectAnswer  int
	IsCorrect      bool
	ElapsedSeconds float64
	Ordinal        int
	Speed          string
	CreatedAt      time.Time
}

// AttemptRepo records raw answer events.
type AttemptRepo interface {
	RecordAttempt(ctx context.Context, a AttemptData) error

	// SessionAttempts returns the session's attempts ordered by ordinal.
	SessionAttempts(ctx context.Context, sessionID string) ([]AttemptData, error)
}

// CellData is one persisted grid cell.
type CellData struct {
	Multiplicand       int
	Multiplier         int
	ConsecutiveCorrect int
	LastAttemptCorrect bool
	Attempts           int
	AverageTimeSeconds float64
	TotalTimeSpent     float64
	LastAttemptSpeed   string
	MasteryAchievedAt  *time.Time
	LastAttemptAt      *time.Time
}

// ProgressData is a student's math progress record.
type ProgressData struct {
	StudentID  string
	Email      string
	GradeLevel string
	Guardrail  string

	// Cells holds only cells that have been answered at least once.
	Cells []CellData

	TotalCorrectAnswers int
	TotalAttempts       int
}

// ProgressRepo reads and writes grid state and guardrails.
type ProgressRepo interface {
	// GetMathProgress returns the student's progress, creating the student
	// with default values on first fetch.
	GetMathProgress(ctx context.Context, email, gradeLevel string) (*ProgressData, error)

	// UpdateMathGrid upserts cells. An existing mastery timestamp is kept.
	UpdateMathGrid(ctx context.Context, studentID string, cells []CellData) error

	// SetMathGuardrail sets the student's guardrail level.
	SetMathGuardrail(ctx context.Context, studentID, guardrail string) error
}

// TimeBuckets are the stored speed thresholds in seconds.
type TimeBuckets struct {
	FastSeconds   float64 `json:"fast_seconds"`
	MediumSeconds float64 `json:"medium_seconds"`
}

// SettingsRepo holds admin-tunable settings.
type SettingsRepo interface {
	// TimeBuckets returns the stored thresholds, or nil if none were set.
	TimeBuckets(ctx context.Context) (*TimeBuckets, error)
	SetTimeBuckets(ctx context.Context, tb TimeBuckets) error
}

// JourneyFacts are the persisted facts the journey stage derives from.
type JourneyFacts struct {
	PlacementCompleted        bool
	PlacementInProgress       bool
	CompletedPracticeSessions int
}

// JourneyRepo reads the facts behind a student's journey stage.
type JourneyRepo interface {
	JourneyFacts(ctx context.Context, studentID string) (JourneyFacts, error)
}

// CohortMetrics summarizes activity across all students.
type CohortMetrics struct {
	Since              time.Time `json:"since"`
	ActiveStudents     int       `json:"active_students"`
	SessionsStarted    int       `json:"sessions_started"`
	SessionsCompleted  int       `json:"sessions_completed"`
	TotalAttempts      int       `json:"total_attempts"`
	CorrectAttempts    int       `json:"correct_attempts"`
	Accuracy           int       `json:"accuracy"`
	AverageTimeSeconds float64   `json:"average_time_seconds"`
	FastAnswers        int       `json:"fast_answers"`
	MediumAnswers      int       `json:"medium_answers"`
	SlowAnswers        int       `json:"slow_answers"`
}

// StudentSummary is one row of the admin student list.
type StudentSummary struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	GradeLevel        string     `json:"grade_level"`
	Guardrail         string     `json:"guardrail"`
	MasteredFacts     int        `json:"mastered_facts"`
	SessionsCompleted int        `json:"sessions_completed"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
}

// StudentPage is a page of student summaries.
type StudentPage struct {
	Students []StudentSummary `json:"students"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// CohortRepo is the admin read surface.
type CohortRepo interface {
	CohortMetrics(ctx context.Context, since time.Time) (*CohortMetrics, error)
	ListStudents(ctx context.Context, page, pageSize int) (*StudentPage, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match when set
	From    time.Time // timestamp >= From
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	CostUSD      float64
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event with its bodies, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)
}

package advisor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/store"
)

// ErrNoSuggestion is returned when an analysis carries no guardrail change.
var ErrNoSuggestion = errors.New("analysis has no guardrail suggestion")

// Defaults for Review.
const (
	DefaultHistorySize      = 5
	DefaultPracticeProblems = 10
)

// ProblemSource builds targeted practice problems.
type ProblemSource interface {
	Personalized(focus []facts.Fact, gr mastery.Guardrail, n int) []problemgen.Problem
}

// Review is an analysis together with the data it was computed from.
type Review struct {
	StudentID      string               `json:"student_id"`
	GradeLevel     string               `json:"grade_level"`
	Guardrail      mastery.Guardrail    `json:"guardrail"`
	MasteryPercent int                  `json:"mastery_percent"`
	Sessions       []SessionSummary     `json:"sessions"`
	Analysis       Analysis             `json:"analysis"`
	Problems       []problemgen.Problem `json:"problems"`
	Note           *CoachNote           `json:"note,omitempty"`
}

// Service loads student data and runs the analysis.
type Service struct {
	progress store.ProgressRepo
	sessions store.SessionRepo
	problems ProblemSource
	narrator *Narrator
	logger   *zap.Logger
}

// NewService wires a Service. narrator may be nil.
func NewService(progress store.ProgressRepo, sessions store.SessionRepo, problems ProblemSource, narrator *Narrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		progress: progress,
		sessions: sessions,
		problems: problems,
		narrator: narrator,
		logger:   logger,
	}
}

// Review analyzes a student's grid and last few completed sessions. A coach
// note is added when a narrator is configured; a narration failure is
// logged and the review is returned without one.
func (s *Service) Review(ctx context.Context, email, gradeLevel string) (*Review, error) {
	data, err := s.progress.GetMathProgress(ctx, email, gradeLevel)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	prog, err := mastery.FromProgressData(data)
	if err != nil {
		return nil, err
	}

	recent, err := s.sessions.RecentSessions(ctx, prog.StudentID, DefaultHistorySize)
	if err != nil {
		return nil, fmt.Errorf("load recent sessions: %w", err)
	}
	history := summaries(recent)

	a := Analyze(Input{Grid: prog.Grid, Guardrail: prog.Guardrail, Sessions: history})

	r := &Review{
		StudentID:      prog.StudentID,
		GradeLevel:     prog.GradeLevel,
		Guardrail:      prog.Guardrail,
		MasteryPercent: mastery.GuardrailMastery(prog.Grid, prog.Guardrail),
		Sessions:       history,
		Analysis:       a,
		Problems:       s.problems.Personalized(a.StrugglingFacts, prog.Guardrail, DefaultPracticeProblems),
	}

	if s.narrator != nil {
		note, err := s.narrator.Narrate(ctx, NarrateRequest{
			GradeLevel:     r.GradeLevel,
			Guardrail:      string(r.Guardrail),
			MasteryPercent: r.MasteryPercent,
			Analysis:       a,
			Sessions:       history,
		})
		if err != nil {
			s.logger.Warn("coach note unavailable",
				zap.String("student_id", r.StudentID),
				zap.Error(err))
		} else {
			r.Note = note
		}
	}

	s.logger.Debug("review computed",
		zap.String("student_id", r.StudentID),
		zap.Int("struggling", len(a.StrugglingAreas)),
		zap.String("confidence", string(a.Confidence)))
	return r, nil
}

// ApplySuggestion sets the student's guardrail to the analysis suggestion.
func (s *Service) ApplySuggestion(ctx context.Context, studentID string, a Analysis) (mastery.Guardrail, error) {
	if a.SuggestedGuardrail == "" {
		return "", ErrNoSuggestion
	}
	gr, err := mastery.ParseGuardrail(string(a.SuggestedGuardrail))
	if err != nil {
		return "", err
	}
	if err := s.progress.SetMathGuardrail(ctx, studentID, string(gr)); err != nil {
		return "", fmt.Errorf("set guardrail: %w", err)
	}
	s.logger.Info("guardrail suggestion applied",
		zap.String("student_id", studentID),
		zap.String("guardrail", string(gr)))
	return gr, nil
}

// summaries converts sessions listed newest first into oldest-first
// summaries.
func summaries(recs []store.SessionRecord) []SessionSummary {
	out := make([]SessionSummary, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		c := recs[i].Counters
		out = append(out, SessionSummary{
			AverageTimeSeconds: c.AverageTimePerQuestion,
			Accuracy:           c.Accuracy,
			FastAnswers:        c.FastAnswers,
			SlowAnswers:        c.SlowAnswers,
		})
	}
	return out
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// cohortRepo implements CohortRepo.
type cohortRepo struct {
	s *Store
}

func (r *cohortRepo) CohortMetrics(ctx context.Context, since time.Time) (*CohortMetrics, error) {
	m := &CohortMetrics{Since: since}
	b := r.s.builder()

	stmt, args := b.Select("COUNT(*)", "COUNT(completed_at)").
		From(b.Table(sessionsTable.Name)).
		Where(entsql.GTE("started_at", since.UTC())).
		Query()
	if err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(&m.SessionsStarted, &m.SessionsCompleted); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	stmt, args = b.Select(
		"COUNT(DISTINCT student_id)",
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)",
		"COALESCE(AVG(elapsed_seconds), 0)",
		"COALESCE(SUM(CASE WHEN speed = 'fast' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN speed = 'medium' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN speed = 'slow' THEN 1 ELSE 0 END), 0)",
	).
		From(b.Table(attemptsTable.Name)).
		Where(entsql.GTE("created_at", since.UTC())).
		Query()
	err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(
		&m.ActiveStudents, &m.TotalAttempts, &m.CorrectAttempts, &m.AverageTimeSeconds,
		&m.FastAnswers, &m.MediumAnswers, &m.SlowAnswers,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate attempts: %w", err)
	}
	if m.TotalAttempts > 0 {
		m.Accuracy = int(math.Round(100 * float64(m.CorrectAttempts) / float64(m.TotalAttempts)))
	}
	return m, nil
}

func (r *cohortRepo) ListStudents(ctx context.Context, page, pageSize int) (*StudentPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	out := &StudentPage{Page: page, PageSize: pageSize}
	b := r.s.builder()

	stmt, args := b.Select("COUNT(*)").From(b.Table(studentsTable.Name)).Query()
	if err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(&out.Total); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	stmt, args = b.Select("id", "email", "grade_level", "guardrail").
		From(b.Table(studentsTable.Name)).
		OrderBy("email").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Query()
	rows, err := r.s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	for rows.Next() {
		var st StudentSummary
		if err := rows.Scan(&st.ID, &st.Email, &st.GradeLevel, &st.Guardrail); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out.Students = append(out.Students, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out.Students {
		if err := r.fillActivity(ctx, &out.Students[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *cohortRepo) fillActivity(ctx context.Context, st *StudentSummary) error {
	b := r.s.builder()

	stmt, args := b.Select("COUNT(*)").
		From(b.Table(gridCellsTable.Name)).
		Where(entsql.And(
			entsql.EQ("student_id", st.ID),
			entsql.GTE("consecutive_correct", 3),
		)).
		Query()
	if err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(&st.MasteredFacts); err != nil {
		return fmt.Errorf("count mastered facts: %w", err)
	}

	stmt, args = b.Select("COUNT(completed_at)").
		From(b.Table(sessionsTable.Name)).
		Where(entsql.EQ("student_id", st.ID)).
		Query()
	if err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(&st.SessionsCompleted); err != nil {
		return fmt.Errorf("count completed sessions: %w", err)
	}

	stmt, args = b.Select("last_activity_at").
		From(b.Table(sessionsTable.Name)).
		Where(entsql.EQ("student_id", st.ID)).
		OrderBy(entsql.Desc("last_activity_at")).
		Limit(1).
		Query()
	var last time.Time
	err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("last activity: %w", err)
	default:
		st.LastActivityAt = &last
	}
	return nil
}

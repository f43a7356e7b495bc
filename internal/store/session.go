package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// sessionRepo implements SessionRepo.
type sessionRepo struct {
	s *Store
}

var sessionSelectColumns = []string{
	"id", "student_id", "subject", "session_type", "grade_level", "problems",
	"total_items", "items_attempted", "items_correct", "accuracy",
	"duration_seconds", "average_time", "fast_answers", "medium_answers",
	"slow_answers", "started_at", "last_activity_at", "completed_at",
}

func (r *sessionRepo) CreateSession(ctx context.Context, in CreateSessionInput) (string, error) {
	problems, err := json.Marshal(in.Problems)
	if err != nil {
		return "", fmt.Errorf("marshal problems: %w", err)
	}

	id := uuid.NewString()
	err = r.s.withTx(ctx, func(tx *sql.Tx) error {
		studentID, err := r.s.ensureStudent(ctx, tx, in.StudentEmail, in.GradeLevel)
		if err != nil {
			return err
		}
		now := r.s.now()
		ins := r.s.builder().Insert(sessionsTable.Name).
			Columns("id", "student_id", "subject", "session_type", "grade_level",
				"problems", "total_items", "started_at", "last_activity_at").
			Values(id, studentID, in.Subject, in.SessionType, in.GradeLevel,
				string(problems), len(in.Problems), now, now)
		if _, err := r.s.exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (r *sessionRepo) UpdateSession(ctx context.Context, id string, c SessionCounters) error {
	upd := r.s.builder().Update(sessionsTable.Name).
		Set("items_attempted", c.ItemsAttempted).
		Set("items_correct", c.ItemsCorrect).
		Set("accuracy", c.Accuracy).
		Set("duration_seconds", c.DurationSeconds).
		Set("average_time", c.AverageTimePerQuestion).
		Set("fast_answers", c.FastAnswers).
		Set("medium_answers", c.MediumAnswers).
		Set("slow_answers", c.SlowAnswers).
		Set("last_activity_at", r.s.now()).
		Where(entsql.EQ("id", id))
	res, err := r.s.exec(ctx, r.s.db, upd)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (r *sessionRepo) CompleteSession(ctx context.Context, id string) error {
	now := r.s.now()
	upd := r.s.builder().Update(sessionsTable.Name).
		Set("completed_at", now).
		Set("last_activity_at", now).
		Where(entsql.EQ("id", id))
	res, err := r.s.exec(ctx, r.s.db, upd)
	if err != nil {
		return fmt.Errorf("complete session %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (r *sessionRepo) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	b := r.s.builder()
	stmt, args := b.Select(sessionSelectColumns...).
		From(b.Table(sessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()
	rec, err := scanSession(r.s.db.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

func (r *sessionRepo) ActiveSessions(ctx context.Context, studentID string) ([]ActiveSession, error) {
	b := r.s.builder()
	stmt, args := b.Select("id", "session_type", "items_attempted", "total_items", "started_at", "last_activity_at").
		From(b.Table(sessionsTable.Name)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.IsNull("completed_at"),
		)).
		OrderBy(entsql.Desc("started_at")).
		Query()

	rows, err := r.s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query active sessions: %w", err)
	}
	defer rows.Close()

	var out []ActiveSession
	for rows.Next() {
		var a ActiveSession
		if err := rows.Scan(&a.ID, &a.SessionType, &a.CompletedItems, &a.TotalItems, &a.StartedAt, &a.LastActivityAt); err != nil {
			return nil, fmt.Errorf("scan active session: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *sessionRepo) RecentSessions(ctx context.Context, studentID string, limit int) ([]SessionRecord, error) {
	b := r.s.builder()
	sel := b.Select(sessionSelectColumns...).
		From(b.Table(sessionsTable.Name)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.NotNull("completed_at"),
		)).
		OrderBy(entsql.Desc("completed_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	stmt, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*SessionRecord, error) {
	var (
		rec       SessionRecord
		problems  []byte
		completed sql.NullTime
	)
	err := sc.Scan(
		&rec.ID, &rec.StudentID, &rec.Subject, &rec.SessionType, &rec.GradeLevel, &problems,
		&rec.TotalItems, &rec.Counters.ItemsAttempted, &rec.Counters.ItemsCorrect, &rec.Counters.Accuracy,
		&rec.Counters.DurationSeconds, &rec.Counters.AverageTimePerQuestion,
		&rec.Counters.FastAnswers, &rec.Counters.MediumAnswers, &rec.Counters.SlowAnswers,
		&rec.StartedAt, &rec.LastActivityAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		if err := json.Unmarshal(problems, &rec.Problems); err != nil {
			return nil, fmt.Errorf("unmarshal problems: %w", err)
		}
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}

// requireRow maps a zero-row update to ErrNotFound.
func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

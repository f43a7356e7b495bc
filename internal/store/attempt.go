package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// attemptRepo implements AttemptRepo.
type attemptRepo struct {
	s *Store
}

func (r *attemptRepo) RecordAttempt(ctx context.Context, a AttemptData) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = r.s.now()
	}
	ins := r.s.builder().Insert(attemptsTable.Name).
		Columns("session_id", "student_id", "multiplicand", "multiplier", "given_answer",
			"correct_answer", "is_correct", "elapsed_seconds", "ordinal", "speed", "created_at").
		Values(a.SessionID, a.StudentID, a.Multiplicand, a.Multiplier, a.GivenAnswer,
			a.CorrectAnswer, a.IsCorrect, a.ElapsedSeconds, a.Ordinal, a.Speed, created.UTC())
	if _, err := r.s.exec(ctx, r.s.db, ins); err != nil {
		return fmt.Errorf("record attempt %d for session %s: %w", a.Ordinal, a.SessionID, err)
	}
	return nil
}

func (r *attemptRepo) SessionAttempts(ctx context.Context, sessionID string) ([]AttemptData, error) {
	b := r.s.builder()
	stmt, args := b.Select("session_id", "student_id", "multiplicand", "multiplier", "given_answer",
		"correct_answer", "is_correct", "elapsed_seconds", "ordinal", "speed", "created_at").
		From(b.Table(attemptsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("ordinal", "id").
		Query()

	rows, err := r.s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptData
	for rows.Next() {
		var a AttemptData
		if err := rows.Scan(&a.SessionID, &a.StudentID, &a.Multiplicand, &a.Multiplier, &a.GivenAnswer,
			&a.CorrectAnswer, &a.IsCorrect, &a.ElapsedSeconds, &a.Ordinal, &a.Speed, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

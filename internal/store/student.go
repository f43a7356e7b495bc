package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// ensureStudent returns the id of the student with email, creating the
// student with default values if missing. A non-empty grade overwrites the
// stored grade level.
func (s *Store) ensureStudent(ctx context.Context, q querier, email, grade string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("student email is required")
	}
	b := s.builder()

	ins := b.Insert(studentsTable.Name).
		Columns("id", "email", "grade_level", "guardrail", "created_at").
		Values(uuid.NewString(), email, grade, DefaultGuardrail, s.now()).
		OnConflict(entsql.ConflictColumns("email"), entsql.DoNothing())
	if _, err := s.exec(ctx, q, ins); err != nil {
		return "", fmt.Errorf("insert student: %w", err)
	}

	var id, storedGrade string
	stmt, args := b.Select("id", "grade_level").
		From(b.Table(studentsTable.Name)).
		Where(entsql.EQ("email", email)).
		Query()
	if err := q.QueryRowContext(ctx, stmt, args...).Scan(&id, &storedGrade); err != nil {
		return "", fmt.Errorf("load student: %w", err)
	}

	if grade != "" && grade != storedGrade {
		upd := b.Update(studentsTable.Name).
			Set("grade_level", grade).
			Where(entsql.EQ("id", id))
		if _, err := s.exec(ctx, q, upd); err != nil {
			return "", fmt.Errorf("update grade level: %w", err)
		}
	}
	return id, nil
}

type studentRow struct {
	id, email, grade, guardrail string
}

func (s *Store) loadStudent(ctx context.Context, q querier, id string) (*studentRow, error) {
	b := s.builder()
	stmt, args := b.Select("id", "email", "grade_level", "guardrail").
		From(b.Table(studentsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var r studentRow
	err := q.QueryRowContext(ctx, stmt, args...).Scan(&r.id, &r.email, &r.grade, &r.guardrail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load student %s: %w", id, err)
	}
	return &r, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// progressRepo implements ProgressRepo.
type progressRepo struct {
	s *Store
}

var gridCellColumns = []string{
	"multiplicand", "multiplier", "consecutive_correct", "last_attempt_correct",
	"attempts", "average_time", "total_time", "last_speed",
	"mastery_achieved_at", "last_attempt_at",
}

func (r *progressRepo) GetMathProgress(ctx context.Context, email, gradeLevel string) (*ProgressData, error) {
	var out *ProgressData
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := r.s.ensureStudent(ctx, tx, email, gradeLevel)
		if err != nil {
			return err
		}
		st, err := r.s.loadStudent(ctx, tx, id)
		if err != nil {
			return err
		}
		cells, err := r.loadCells(ctx, tx, id)
		if err != nil {
			return err
		}

		b := r.s.builder()
		stmt, args := b.Select("COUNT(*)", "COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)").
			From(b.Table(attemptsTable.Name)).
			Where(entsql.EQ("student_id", id)).
			Query()
		var total, correct int
		if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&total, &correct); err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}

		out = &ProgressData{
			StudentID:           st.id,
			Email:               st.email,
			GradeLevel:          st.grade,
			Guardrail:           st.guardrail,
			Cells:               cells,
			TotalCorrectAnswers: correct,
			TotalAttempts:       total,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get math progress: %w", err)
	}
	return out, nil
}

func (r *progressRepo) loadCells(ctx context.Context, q querier, studentID string) ([]CellData, error) {
	b := r.s.builder()
	stmt, args := b.Select(gridCellColumns...).
		From(b.Table(gridCellsTable.Name)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("multiplicand", "multiplier").
		Query()

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query grid cells: %w", err)
	}
	defer rows.Close()

	var out []CellData
	for rows.Next() {
		var (
			c             CellData
			masteredAt    sql.NullTime
			lastAttemptAt sql.NullTime
		)
		if err := rows.Scan(&c.Multiplicand, &c.Multiplier, &c.ConsecutiveCorrect, &c.LastAttemptCorrect,
			&c.Attempts, &c.AverageTimeSeconds, &c.TotalTimeSpent, &c.LastAttemptSpeed,
			&masteredAt, &lastAttemptAt); err != nil {
			return nil, fmt.Errorf("scan grid cell: %w", err)
		}
		c.MasteryAchievedAt = nullTimePtr(masteredAt)
		c.LastAttemptAt = nullTimePtr(lastAttemptAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *progressRepo) UpdateMathGrid(ctx context.Context, studentID string, cells []CellData) error {
	if len(cells) == 0 {
		return nil
	}
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.loadCells(ctx, tx, studentID)
		if err != nil {
			return err
		}
		achieved := make(map[[2]int]time.Time, len(existing))
		for _, c := range existing {
			if c.MasteryAchievedAt != nil {
				achieved[[2]int{c.Multiplicand, c.Multiplier}] = *c.MasteryAchievedAt
			}
		}

		ins := r.s.builder().Insert(gridCellsTable.Name).
			Columns(append([]string{"student_id"}, gridCellColumns...)...)
		for _, c := range cells {
			var masteredAt any
			if t, ok := achieved[[2]int{c.Multiplicand, c.Multiplier}]; ok {
				masteredAt = t
			} else if c.MasteryAchievedAt != nil {
				masteredAt = c.MasteryAchievedAt.UTC()
			}
			var lastAttemptAt any
			if c.LastAttemptAt != nil {
				lastAttemptAt = c.LastAttemptAt.UTC()
			}
			ins.Values(studentID, c.Multiplicand, c.Multiplier, c.ConsecutiveCorrect, c.LastAttemptCorrect,
				c.Attempts, c.AverageTimeSeconds, c.TotalTimeSpent, c.LastAttemptSpeed,
				masteredAt, lastAttemptAt)
		}
		ins.OnConflict(
			entsql.ConflictColumns("student_id", "multiplicand", "multiplier"),
			entsql.ResolveWithNewValues(),
		)
		if _, err := r.s.exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("upsert grid cells: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update math grid for %s: %w", studentID, err)
	}
	return nil
}

func (r *progressRepo) SetMathGuardrail(ctx context.Context, studentID, guardrail string) error {
	upd := r.s.builder().Update(studentsTable.Name).
		Set("guardrail", guardrail).
		Where(entsql.EQ("id", studentID))
	res, err := r.s.exec(ctx, r.s.db, upd)
	if err != nil {
		return fmt.Errorf("set guardrail for %s: %w", studentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("student %s: %w", studentID, ErrNotFound)
	}
	return nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

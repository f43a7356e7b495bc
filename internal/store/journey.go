package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// journeyRepo implements JourneyRepo from the sessions table.
type journeyRepo struct {
	s *Store
}

func (r *journeyRepo) JourneyFacts(ctx context.Context, studentID string) (JourneyFacts, error) {
	var f JourneyFacts

	b := r.s.builder()
	stmt, args := b.Select("session_type", "COUNT(*)", "COUNT(completed_at)").
		From(b.Table(sessionsTable.Name)).
		Where(entsql.EQ("student_id", studentID)).
		GroupBy("session_type").
		Query()

	rows, err := r.s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return f, fmt.Errorf("query journey facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionType      string
			total, completed int
		)
		if err := rows.Scan(&sessionType, &total, &completed); err != nil {
			return f, fmt.Errorf("scan journey facts: %w", err)
		}
		switch sessionType {
		case SessionPlacement:
			f.PlacementCompleted = completed > 0
			f.PlacementInProgress = total > completed
		case SessionPractice:
			f.CompletedPracticeSessions = completed
		}
	}
	return f, rows.Err()
}

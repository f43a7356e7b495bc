package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column definitions in the shape ent generates into
// migrate/schema.go, kept by hand since the repos query through the SQL
// builder rather than a generated client.
var (
	studentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "grade_level", Type: field.TypeString, Default: ""},
		{Name: "guardrail", Type: field.TypeString, Default: DefaultGuardrail},
		{Name: "created_at", Type: field.TypeTime},
	}
	studentsTable = &schema.Table{
		Name:       "students",
		Columns:    studentsColumns,
		PrimaryKey: []*schema.Column{studentsColumns[0]},
	}

	sessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "student_id", Type: field.TypeString, Size: 36},
		{Name: "subject", Type: field.TypeString},
		{Name: "session_type", Type: field.TypeString},
		{Name: "grade_level", Type: field.TypeString, Default: ""},
		{Name: "problems", Type: field.TypeJSON},
		{Name: "total_items", Type: field.TypeInt, Default: 0},
		{Name: "items_attempted", Type: field.TypeInt, Default: 0},
		{Name: "items_correct", Type: field.TypeInt, Default: 0},
		{Name: "accuracy", Type: field.TypeInt, Default: 0},
		{Name: "duration_seconds", Type: field.TypeInt, Default: 0},
		{Name: "average_time", Type: field.TypeFloat64, Default: 0},
		{Name: "fast_answers", Type: field.TypeInt, Default: 0},
		{Name: "medium_answers", Type: field.TypeInt, Default: 0},
		{Name: "slow_answers", Type: field.TypeInt, Default: 0},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "last_activity_at", Type: field.TypeTime},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
	}
	sessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    sessionsColumns,
		PrimaryKey: []*schema.Column{sessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_student_id_started_at", Columns: []*schema.Column{sessionsColumns[1], sessionsColumns[15]}},
		},
	}

	attemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "session_id", Type: field.TypeString, Size: 36},
		{Name: "student_id", Type: field.TypeString, Size: 36},
		{Name: "multiplicand", Type: field.TypeInt},
		{Name: "multiplier", Type: field.TypeInt},
		{Name: "given_answer", Type: field.TypeInt},
		{Name: "correct_answer", Type: field.TypeInt},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "elapsed_seconds", Type: field.TypeFloat64},
		{Name: "ordinal", Type: field.TypeInt},
		{Name: "speed", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	attemptsTable = &schema.Table{
		Name:       "question_attempts",
		Columns:    attemptsColumns,
		PrimaryKey: []*schema.Column{attemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "questionattempt_session_id_ordinal", Columns: []*schema.Column{attemptsColumns[1], attemptsColumns[9]}},
			{Name: "questionattempt_student_id", Columns: []*schema.Column{attemptsColumns[2]}},
		},
	}

	gridCellsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "student_id", Type: field.TypeString, Size: 36},
		{Name: "multiplicand", Type: field.TypeInt},
		{Name: "multiplier", Type: field.TypeInt},
		{Name: "consecutive_correct", Type: field.TypeInt, Default: 0},
		{Name: "last_attempt_correct", Type: field.TypeBool, Default: false},
		{Name: "attempts", Type: field.TypeInt, Default: 0},
		{Name: "average_time", Type: field.TypeFloat64, Default: 0},
		{Name: "total_time", Type: field.TypeFloat64, Default: 0},
		{Name: "last_speed", Type: field.TypeString, Default: ""},
		{Name: "mastery_achieved_at", Type: field.TypeTime, Nullable: true},
		{Name: "last_attempt_at", Type: field.TypeTime, Nullable: true},
	}
	gridCellsTable = &schema.Table{
		Name:       "grid_cells",
		Columns:    gridCellsColumns,
		PrimaryKey: []*schema.Column{gridCellsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "gridcell_student_id_multiplicand_multiplier",
				Unique:  true,
				Columns: []*schema.Column{gridCellsColumns[1], gridCellsColumns[2], gridCellsColumns[3]},
			},
		},
	}

	settingsColumns = []*schema.Column{
		{Name: "name", Type: field.TypeString},
		{Name: "value", Type: field.TypeString},
		{Name: "updated_at", Type: field.TypeTime},
	}
	settingsTable = &schema.Table{
		Name:       "settings",
		Columns:    settingsColumns,
		PrimaryKey: []*schema.Column{settingsColumns[0]},
	}

	llmRequestsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "cost_usd", Type: field.TypeFloat64, Default: 0},
		{Name: "request_body", Type: field.TypeString, Size: 1 << 20, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 1 << 20, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	llmRequestsTable = &schema.Table{
		Name:       "llm_requests",
		Columns:    llmRequestsColumns,
		PrimaryKey: []*schema.Column{llmRequestsColumns[0]},
	}

	// tables holds every table the store migrates.
	tables = []*schema.Table{
		studentsTable,
		sessionsTable,
		attemptsTable,
		gridCellsTable,
		settingsTable,
		llmRequestsTable,
	}
)

// migrate creates or updates the tables.
func (s *Store) migrate(ctx context.Context) error {
	drv := entsql.OpenDB(s.dialect, s.db)
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

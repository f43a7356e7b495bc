package session

import "context"

type contextKey string

const studentKey contextKey = "student_id"

// WithStudent attaches the authenticated student id to the context.
func WithStudent(ctx context.Context, studentID string) context.Context {
	return context.WithValue(ctx, studentKey, studentID)
}

// StudentFrom extracts the authenticated student id from the context.
func StudentFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(studentKey).(string)
	return v, ok && v != ""
}

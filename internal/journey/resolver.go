package journey

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/store"
)

// Resolver fetches a student's stage from storage on every call and keeps
// the last resolved value for display.
type Resolver struct {
	repo   store.JourneyRepo
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]State
}

// NewResolver returns a Resolver backed by repo.
func NewResolver(repo store.JourneyRepo, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		repo:   repo,
		logger: logger,
		cache:  make(map[string]State),
	}
}

// Resolve returns the student's current stage. A missing student id or a
// storage error resolves to NeedsPlacement.
func (r *Resolver) Resolve(ctx context.Context, studentID string) State {
	if studentID == "" {
		return NeedsPlacement
	}

	f, err := r.repo.JourneyFacts(ctx, studentID)
	if err != nil {
		r.logger.Warn("journey state unavailable, defaulting to placement",
			zap.String("student_id", studentID),
			zap.Error(err))
		return NeedsPlacement
	}

	s := Derive(f)
	r.mu.Lock()
	r.cache[studentID] = s
	r.mu.Unlock()
	return s
}

// Last returns the most recently resolved stage without touching storage.
func (r *Resolver) Last(studentID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.cache[studentID]
	return s, ok
}

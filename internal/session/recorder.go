package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/store"
)

var errRecorderFull = errors.New("attempt queue full")

// attemptRecorder writes raw answer events in the background so that
// answering never waits on storage.
type attemptRecorder struct {
	repo    store.AttemptRepo
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	pending chan store.AttemptData
	done    chan struct{}

	// queued counts unwritten attempts per session. settled is closed and
	// replaced whenever a count drops.
	qmu     sync.Mutex
	queued  map[string]int
	settled chan struct{}
}

func newAttemptRecorder(repo store.AttemptRepo, logger *zap.Logger, buffer int, timeout time.Duration) *attemptRecorder {
	r := &attemptRecorder{
		repo:    repo,
		logger:  logger,
		timeout: timeout,
		pending: make(chan store.AttemptData, buffer),
		done:    make(chan struct{}),
		queued:  make(map[string]int),
		settled: make(chan struct{}),
	}
	go r.processLoop()
	return r
}

// Enqueue schedules a for writing. Failures are logged.
func (r *attemptRecorder) Enqueue(a store.AttemptData) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.fail(a, ErrSessionClosed)
		return
	}

	r.track(a.SessionID)
	select {
	case r.pending <- a:
	default:
		r.settle(a.SessionID)
		r.fail(a, errRecorderFull)
	}
}

func (r *attemptRecorder) track(sessionID string) {
	r.qmu.Lock()
	r.queued[sessionID]++
	r.qmu.Unlock()
}

func (r *attemptRecorder) settle(sessionID string) {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	if r.queued[sessionID]--; r.queued[sessionID] <= 0 {
		delete(r.queued, sessionID)
	}
	close(r.settled)
	r.settled = make(chan struct{})
}

// Wait blocks until every attempt queued for sessionID has been written or
// has failed.
func (r *attemptRecorder) Wait(ctx context.Context, sessionID string) error {
	for {
		r.qmu.Lock()
		n, ch := r.queued[sessionID], r.settled
		r.qmu.Unlock()
		if n == 0 {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *attemptRecorder) processLoop() {
	defer close(r.done)
	for a := range r.pending {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.repo.RecordAttempt(ctx, a); err != nil {
			r.fail(a, err)
		}
		cancel()
		r.settle(a.SessionID)
	}
}

func (r *attemptRecorder) fail(a store.AttemptData, err error) {
	persistFailures.WithLabelValues("record_attempt").Inc()
	r.logger.Warn("attempt not recorded",
		zap.Error(&AttemptRecordError{SessionID: a.SessionID, Ordinal: a.Ordinal, Err: err}),
		zap.String("session_id", a.SessionID),
		zap.Int("ordinal", a.Ordinal))
}

// Close stops accepting attempts and waits for queued ones to be written.
func (r *attemptRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.pending)
	r.mu.Unlock()
	<-r.done
}

package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// autosaver pushes a session's aggregate counters on a fixed interval.
type autosaver struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *Session) startAutosave(interval time.Duration) {
	if interval <= 0 {
		return
	}

	a := &autosaver{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.autosave = a

	go func() {
		defer close(a.done)

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-a.stop:
				return
			case <-t.C:
				s.flush(context.Background(), "autosave")
			}
		}
	}()
}

// Stop halts the ticker and waits for an in-flight push to finish.
func (a *autosaver) Stop() {
	if a == nil {
		return
	}
	a.once.Do(func() { close(a.stop) })
	<-a.done
}

// flush pushes the current counters. Concurrent pushes for the same session
// share one storage call. A failure is logged and the session carries on.
func (s *Session) flush(ctx context.Context, op string) bool {
	s.mu.Lock()
	if s.phase == PhaseCompleted || s.closed {
		s.mu.Unlock()
		return true
	}
	counters := s.countersLocked(s.e.now())
	s.mu.Unlock()

	_, err, _ := s.e.flight.Do(s.id, func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.e.cfg.PersistTimeout)
		defer cancel()
		return nil, s.e.sessions.UpdateSession(pctx, s.id, counters)
	})
	autosaves.Inc()

	if err != nil {
		persistFailures.WithLabelValues(op).Inc()
		s.e.logger.Warn("session counters not saved",
			zap.Error(&SessionUpdateError{SessionID: s.id, Op: op, Err: err}),
			zap.String("session_id", s.id))
		return false
	}
	return true
}

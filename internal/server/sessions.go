package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/session"
)

type journeyView struct {
	State            journey.State `json:"state"`
	Label            string        `json:"label"`
	ShowPlacement    bool          `json:"show_placement"`
	CanStartPractice bool          `json:"can_start_practice"`
}

func (s *Server) getJourney(c *gin.Context) {
	st := currentStudent(c)
	state := s.journey.Resolve(c.Request.Context(), st.ID)
	c.JSON(http.StatusOK, journeyView{
		State:            state,
		Label:            state.Label(),
		ShowPlacement:    journey.ShouldShowPlacement(state),
		CanStartPractice: journey.CanStartPractice(state),
	})
}

func (s *Server) getProgress(c *gin.Context) {
	c.JSON(http.StatusOK, newProgressView(currentStudent(c).Progress))
}

type startRequest struct {
	Type string `json:"type" validate:"required,oneof=placement practice"`

	// Force starts a new session even when incomplete ones exist.
	Force bool `json:"force"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	typ, err := session.ParseType(req.Type)
	if err != nil {
		s.fail(c, validationError(err.Error(), nil))
		return
	}

	ctx := c.Request.Context()
	st := currentStudent(c)

	state := s.journey.Resolve(ctx, st.ID)
	if err := journey.Gate(state, string(typ)); err != nil {
		s.fail(c, err)
		return
	}

	if !req.Force {
		active, err := s.engine.ActiveSessions(ctx, st.ID)
		if err != nil {
			s.fail(c, err)
			return
		}
		if len(active) > 0 {
			s.fail(c, conflict("incomplete sessions exist; resume one or start with force", active))
			return
		}
	}

	sess, err := s.engine.Start(ctx, typ, session.Student{Email: st.Email, GradeLevel: st.Grade})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(sess.Status()))
}

func (s *Server) activeSessions(c *gin.Context) {
	active, err := s.engine.ActiveSessions(c.Request.Context(), currentStudent(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": active})
}

func (s *Server) resumeSession(c *gin.Context) {
	st := currentStudent(c)
	sess, err := s.engine.Resume(c.Request.Context(), c.Param("id"), session.Student{Email: st.Email, GradeLevel: st.Grade})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess.Status()))
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.liveSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess.Status()))
}

type answerRequest struct {
	Answer         *int    `json:"answer" validate:"required"`
	ElapsedSeconds float64 `json:"elapsed_seconds" validate:"gte=0,lte=3600"`
}

type answerView struct {
	session.Result
	Session sessionView `json:"session"`
}

func (s *Server) submitAnswer(c *gin.Context) {
	sess, ok := s.liveSession(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	res, err := sess.SubmitAnswer(c.Request.Context(), *req.Answer, req.ElapsedSeconds)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answerView{Result: res, Session: newSessionView(sess.Status())})
}

func (s *Server) advanceSession(c *gin.Context) {
	sess, ok := s.liveSession(c)
	if !ok {
		return
	}
	if err := sess.Advance(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess.Status()))
}

func (s *Server) completeSession(c *gin.Context) {
	sess, ok := s.liveSession(c)
	if !ok {
		return
	}
	sum, err := sess.Complete(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if !sum.Persisted {
		s.logger.Warn("session completed without full persistence",
			zap.String("session_id", sum.SessionID))
	}
	c.JSON(http.StatusOK, newSummaryView(sum))
}

func (s *Server) abandonSession(c *gin.Context) {
	sess, ok := s.liveSession(c)
	if !ok {
		return
	}
	sess.Abandon(c.Request.Context())
	c.Status(http.StatusNoContent)
}

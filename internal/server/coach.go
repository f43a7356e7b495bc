package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/timesgrid/internal/mastery"
)

type studentQuery struct {
	Email string `form:"email" json:"email" validate:"required,email"`
	Grade string `form:"grade" json:"grade" validate:"omitempty,max=8"`
}

func (s *Server) getAnalysis(c *gin.Context) {
	var q studentQuery
	if err := bindQuery(c, &q); err != nil {
		s.fail(c, err)
		return
	}
	review, err := s.advisor.Review(c.Request.Context(), q.Email, q.Grade)
	if err != nil {
		s.fail(c, err)
		return
	}

	// Personalized problems are for the coach, so answers stay in.
	c.JSON(http.StatusOK, review)
}

func (s *Server) applySuggestion(c *gin.Context) {
	var req studentQuery
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()

	review, err := s.advisor.Review(ctx, req.Email, req.Grade)
	if err != nil {
		s.fail(c, err)
		return
	}
	gr, err := s.advisor.ApplySuggestion(ctx, review.StudentID, review.Analysis)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": review.StudentID, "guardrail": gr, "previous": review.Guardrail})
}

type guardrailRequest struct {
	studentQuery
	Guardrail string `json:"guardrail" validate:"required,guardrail"`
}

func (s *Server) setGuardrail(c *gin.Context) {
	var req guardrailRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	gr, err := mastery.ParseGuardrail(req.Guardrail)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	data, err := s.progress.GetMathProgress(ctx, req.Email, req.Grade)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.progress.SetMathGuardrail(ctx, data.StudentID, string(gr)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": data.StudentID, "guardrail": gr})
}

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/session"
)

const (
	headerEmail = "X-Student-Email"
	headerGrade = "X-Student-Grade"

	ctxStudent = "student"
)

// student is the caller resolved by the identity middleware.
type student struct {
	ID       string
	Email    string
	Grade    string
	Progress *mastery.Progress
}

type identityHeaders struct {
	Email string `validate:"required,email"`
	Grade string `validate:"omitempty,max=8"`
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// recovery converts panics into a 500 apiError.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic in handler",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered))
		ae := internal("internal server error")
		c.AbortWithStatusJSON(ae.Status, ae)
	})
}

// identity resolves the student from the request headers, creating them on
// first contact, and puts their id on the request context.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := identityHeaders{
			Email: c.GetHeader(headerEmail),
			Grade: c.GetHeader(headerGrade),
		}
		if h.Email == "" {
			ae := unauthenticated("missing " + headerEmail + " header")
			c.AbortWithStatusJSON(ae.Status, ae)
			return
		}
		if err := check(&h); err != nil {
			s.fail(c, err)
			return
		}

		data, err := s.progress.GetMathProgress(c.Request.Context(), h.Email, h.Grade)
		if err != nil {
			s.fail(c, err)
			return
		}
		prog, err := mastery.FromProgressData(data)
		if err != nil {
			s.fail(c, err)
			return
		}

		c.Set(ctxStudent, &student{ID: prog.StudentID, Email: h.Email, Grade: h.Grade, Progress: prog})
		c.Request = c.Request.WithContext(session.WithStudent(c.Request.Context(), prog.StudentID))
		c.Next()
	}
}

func currentStudent(c *gin.Context) *student {
	v, ok := c.Get(ctxStudent)
	if !ok {
		return nil
	}
	st, _ := v.(*student)
	return st
}

// liveSession finds a live session owned by the caller.
func (s *Server) liveSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := s.engine.Lookup(c.Param("id"))
	if !ok {
		s.fail(c, notFound("session"))
		return nil, false
	}
	st := currentStudent(c)
	if st == nil || sess.StudentID() != st.ID {
		s.fail(c, forbidden("session belongs to another student"))
		return nil, false
	}
	return sess, true
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/timesgrid/internal/store"
)

type cohortQuery struct {
	// Days is the look-back window. Default 7.
	Days int `form:"days" validate:"omitempty,min=1,max=365"`
}

func (s *Server) getCohort(c *gin.Context) {
	var q cohortQuery
	if err := bindQuery(c, &q); err != nil {
		s.fail(c, err)
		return
	}
	if q.Days == 0 {
		q.Days = 7
	}
	since := s.clock().Add(-time.Duration(q.Days) * 24 * time.Hour)
	m, err := s.cohort.CohortMetrics(c.Request.Context(), since)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type pageQuery struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"page_size" validate:"omitempty,min=1,max=200"`
}

func (s *Server) listStudents(c *gin.Context) {
	var q pageQuery
	if err := bindQuery(c, &q); err != nil {
		s.fail(c, err)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 25
	}
	page, err := s.cohort.ListStudents(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getTimeBuckets(c *gin.Context) {
	th := s.engine.Thresholds(c.Request.Context())
	c.JSON(http.StatusOK, store.TimeBuckets{FastSeconds: th.Fast, MediumSeconds: th.Medium})
}

type timeBucketsRequest struct {
	FastSeconds   float64 `json:"fast_seconds" validate:"gt=0"`
	MediumSeconds float64 `json:"medium_seconds" validate:"gtfield=FastSeconds"`
}

func (s *Server) setTimeBuckets(c *gin.Context) {
	var req timeBucketsRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	tb := store.TimeBuckets{FastSeconds: req.FastSeconds, MediumSeconds: req.MediumSeconds}
	if err := s.settings.SetTimeBuckets(c.Request.Context(), tb); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tb)
}

// Package server exposes the practice engine over HTTP+JSON.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/advisor"
	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
)

// Deps are the services the handlers call. Logger and Clock are optional.
type Deps struct {
	Engine   *session.Engine
	Progress store.ProgressRepo
	Settings store.SettingsRepo
	Cohort   store.CohortRepo
	Journey  *journey.Resolver
	Advisor  *advisor.Service
	Logger   *zap.Logger
	Clock    func() time.Time

	// Ping reports storage health for /health. Optional.
	Ping func(ctx context.Context) error
}

type Server struct {
	engine   *session.Engine
	progress store.ProgressRepo
	settings store.SettingsRepo
	cohort   store.CohortRepo
	journey  *journey.Resolver
	advisor  *advisor.Service
	logger   *zap.Logger
	clock    func() time.Time
	ping     func(ctx context.Context) error

	router *gin.Engine
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	s := &Server{
		engine:   d.Engine,
		progress: d.Progress,
		settings: d.Settings,
		cohort:   d.Cohort,
		journey:  d.Journey,
		advisor:  d.Advisor,
		logger:   d.Logger,
		clock:    d.Clock,
		ping:     d.Ping,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	me := api.Group("", s.identity())
	me.GET("/journey", s.getJourney)
	me.GET("/progress", s.getProgress)

	sessions := me.Group("/sessions")
	sessions.POST("", s.startSession)
	sessions.GET("/active", s.activeSessions)
	sessions.POST("/:id/resume", s.resumeSession)
	sessions.GET("/:id", s.getSession)
	sessions.POST("/:id/answer", s.submitAnswer)
	sessions.POST("/:id/advance", s.advanceSession)
	sessions.POST("/:id/complete", s.completeSession)
	sessions.POST("/:id/abandon", s.abandonSession)

	coach := api.Group("/coach")
	coach.GET("/analysis", s.getAnalysis)
	coach.POST("/apply", s.applySuggestion)
	coach.PUT("/guardrail", s.setGuardrail)

	admin := api.Group("/admin")
	admin.GET("/cohort", s.getCohort)
	admin.GET("/students", s.listStudents)
	admin.GET("/time-buckets", s.getTimeBuckets)
	admin.PUT("/time-buckets", s.setTimeBuckets)

	return r
}

func (s *Server) health(c *gin.Context) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests and flushes every live session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.engine.Shutdown(shutdownCtx)
	return err
}

// Package server exposes the engine over HTTP under /api/v2
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/engine"
	"github.com/julianstephens/habitpact/internal/generator"
	"github.com/julianstephens/habitpact/internal/logger"
	"github.com/julianstephens/habitpact/internal/models"
	"github.com/julianstephens/habitpact/internal/rollover"
)

// Engine is the application surface the handlers call
type Engine interface {
	CreateUser(ctx context.Context, name, username, email string) (models.User, error)
	CreateHabit(ctx context.Context, userID, name, description string) (models.Habit, error)
	CreatePlan(ctx context.Context, userID, habitID string, start, end, today time.Time) (models.HabitPlan, generator.Result, error)
	GenerateForUserPlan(ctx context.Context, userID, planID string, today time.Time) (generator.Result, error)
	WeekPlans(ctx context.Context, userID string, today time.Time) ([]models.PlanWithLogs, error)
	TodayPlans(ctx context.Context, userID string, today time.Time) ([]models.PlanWithLogs, error)
	ToggleLogCompletion(ctx context.Context, logID string) (models.Log, error)
	CreateInvitation(ctx context.Context, senderID, planID, recipientName, recipientEmail string) (models.Invitation, error)
	AcceptInvitation(ctx context.Context, invitationID, recipientID string, today time.Time) (models.Invitation, error)
	DeclineInvitation(ctx context.Context, invitationID, recipientID string) (models.Invitation, error)
	ReceivedInvitations(ctx context.Context, userID string) ([]models.InvitationDetails, error)
	SentInvitations(ctx context.Context, userID string) ([]models.InvitationDetails, error)
	RolloverJob() *rollover.Job
}

var _ Engine = (*engine.Engine)(nil)

// Options configures a Server
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	// Today returns the reference date for scheduling decisions
	Today func() (time.Time, error)
	// RolloverAttempts bounds POST /rollover retries; zero uses the default
	RolloverAttempts int
	// RolloverDelay is the pause between rollover attempts
	RolloverDelay time.Duration
}

type Server struct {
	echo   *echo.Echo
	engine Engine
	addr   string
	today  func() (time.Time, error)

	rolloverAttempts int
	rolloverDelay    time.Duration
}

// New creates a Server with all routes registered
func New(eng Engine, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = constants.DefaultServerAddr
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = constants.DefaultRequestTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:             e,
		engine:           eng,
		addr:             opts.Addr,
		today:            opts.Today,
		rolloverAttempts: opts.RolloverAttempts,
		rolloverDelay:    opts.RolloverDelay,
	}
	if s.today == nil {
		s.today = func() (time.Time, error) { return time.Now().UTC(), nil }
	}

	e.Use(middleware.Recover())
	e.Use(middleware.ContextTimeout(opts.RequestTimeout))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api/v2")

	api.GET("/status", s.status)
	api.POST("/rollover", s.runRollover)

	api.POST("/users", s.createUser)
	api.POST("/users/:id/habits", s.createHabit)

	api.POST("/users/:id/habit_plans", s.createPlan)
	api.GET("/users/:id/habit_plans/week", s.weekPlans)
	api.GET("/users/:id/habit_plans/today", s.todayPlans)
	api.POST("/users/:id/habit_plans/:plan_id/generate", s.generatePlan)
	api.PATCH("/users/:id/habit_plans/:plan_id/habit_logs/:log_id", s.toggleLog)

	api.POST("/users/:id/habit_plans/:plan_id/invitations/create", s.createInvitation)
	api.GET("/users/:id/invitations/received", s.receivedInvitations)
	api.GET("/users/:id/invitations/sent", s.sentInvitations)
	api.PATCH("/users/:id/invitations/:invitation_id", s.respondInvitation)
}

// ServeHTTP lets the server be mounted or tested as a plain http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return s.echo.Shutdown(shutdownCtx)
	}
}

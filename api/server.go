// Package api exposes the HTTP surface used by external collaborators:
// schedule fetch and publication, event emission and the websocket upgrade.
package api

import (
	"community-pulse/auth"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/runtime/workers"
	"community-pulse/services"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/lo"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type Options struct {
	Schedules services.IScheduleService
	Events    services.IEventService
	Stats     workers.ConnectionStats
	Tokens    *auth.Tokens
	Websocket http.Handler
}

type Server struct {
	log  *slog.Logger
	opts Options
	app  *echo.Echo
}

func NewServer(log *slog.Logger, opts Options) *Server {
	s := &Server{log: log, opts: opts, app: echo.New()}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.HTTPErrorHandler = errorHandler(s.log)
	s.app.Use(middleware.Recover())
	s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s.app.GET("/health", s.health)
	s.app.GET("/ws", echo.WrapHandler(s.opts.Websocket))

	v1 := s.app.Group("/api/v1")
	publisher := auth.RequireRole(s.opts.Tokens, auth.RolePublisher)
	v1.GET("/schedule", s.currentSchedule)
	v1.GET("/schedule/history", s.scheduleHistory)
	v1.PUT("/schedule", s.publishSchedule, publisher)
	v1.POST("/events", s.publishEvent, publisher)
}

func (s *Server) Start(address string) error {
	return s.app.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (s *Server) health(c echo.Context) error {
	return JSON(c, http.StatusOK, healthResponse{
		Status:      "ok",
		Connections: s.opts.Stats.ConnectionCount(),
		Rooms:       s.opts.Stats.RoomCount(),
	})
}

func (s *Server) currentSchedule(c echo.Context) error {
	schedule, err := s.opts.Schedules.Current()
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, schedule)
}

func (s *Server) scheduleHistory(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		// The route is public: never let a caller ask for the whole history
		limit = lo.Clamp(parsed, 1, maxHistoryLimit)
	}
	history, err := s.opts.Schedules.History(limit)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, history)
}

func (s *Server) publishSchedule(c echo.Context) error {
	var schedule domain.DailySchedule
	if err := c.Bind(&schedule); err != nil {
		return err
	}
	if err := s.opts.Schedules.Publish(schedule); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, schedule)
}

func (s *Server) publishEvent(c echo.Context) error {
	var in event.Inbound
	if err := c.Bind(&in); err != nil {
		return err
	}
	if err := s.opts.Events.Publish(in); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

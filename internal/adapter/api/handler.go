package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	attendanceapp "github.com/burenotti/go_routines_backend/internal/app/attendance"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	profileapp "github.com/burenotti/go_routines_backend/internal/app/profile"
	routineapp "github.com/burenotti/go_routines_backend/internal/app/routine"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"log/slog"
	"net/http"
	"time"
)

type Server struct {
	handler           *echo.Echo
	logger            *slog.Logger
	addr              string
	db                storage.DBContext
	authorizer        *identity.Authorizer
	routineService    *routineapp.Service
	attendanceService *attendanceapp.Service
	profileService    *profileapp.Service
	msgBus            unitofwork.MessageBus
	validator         *validator.Validate
	timeouts          timeouts
}

type timeouts struct {
	read, write, idle time.Duration
}

func NewServer(opt ...Option) *Server {
	s := &Server{
		handler:   echo.New(),
		logger:    slog.Default(),
		validator: validator.New(validator.WithRequiredStructEnabled()),
		timeouts: timeouts{
			read:  10 * time.Second,
			write: 10 * time.Second,
			idle:  10 * time.Second,
		},
	}
	for _, opt := range opt {
		opt(s)
	}

	e := s.handler
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = s.timeouts.read
	e.Server.WriteTimeout = s.timeouts.write
	e.Server.IdleTimeout = s.timeouts.idle
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.MaxHeaderBytes = 4096

	e.Use(slogecho.NewWithConfig(s.logger, slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelInfo,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
		WithSpanID:       true,
		WithTraceID:      true,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))

	s.Mount()
	return s
}

func (s *Server) Mount() {
	s.MountRoutines()
	s.MountAttendance()
	s.MountProfile()
}

func (s *Server) Start() error {
	err := s.handler.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.handler.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) bind(ctx echo.Context, i interface{}) error {
	if err := ctx.Bind(i); err != nil {
		return fmt.Errorf("bad request")
	}
	if err := s.validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return fmt.Errorf("bad request")
		}
		return fmt.Errorf("%s: %s", errs[0].Field(), errs[0].Error())
	}
	return nil
}

package api

import (
	attendanceapp "github.com/burenotti/go_routines_backend/internal/app/attendance"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/attendance"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"net/http"
	"time"
)

func (s *Server) MountAttendance() {
	loginRequired := LoginRequired(s.authorizer)
	s.handler.PUT("/routines/:routine_id/attendance", s.MarkAttendance, loginRequired)
	s.handler.GET("/attendance", s.ListAttendance, loginRequired)
}

func (s *Server) getAttendanceUoW() *attendanceapp.UnitOfWork {
	return unitofwork.New[*attendanceapp.AtomicContext](
		s.db,
		attendanceapp.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

type AttendanceResponse struct {
	AttendanceID string     `json:"attendance_id"`
	RoutineID    string     `json:"routine_id"`
	AthleteID    string     `json:"athlete_id"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at"`
}

func attendanceResponse(a *attendance.Attendance) AttendanceResponse {
	return AttendanceResponse{
		AttendanceID: a.AttendanceID,
		RoutineID:    a.RoutineID,
		AthleteID:    a.AthleteID,
		Completed:    a.Completed,
		CompletedAt:  a.CompletedAt,
	}
}

type MarkAttendanceRequest struct {
	RoutineID string `param:"routine_id" validate:"required"`
	Completed *bool  `json:"completed" validate:"required"`
}

func (s *Server) MarkAttendance(c echo.Context) error {
	var req MarkAttendanceRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	a, err := s.attendanceService.Mark(
		c.Request().Context(),
		s.getAttendanceUoW(),
		currentCaller(c),
		routine.RoutineID(req.RoutineID),
		*req.Completed,
	)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, attendanceResponse(a))
}

func (s *Server) ListAttendance(c echo.Context) error {
	records, err := s.attendanceService.ListMine(c.Request().Context(), s.getAttendanceUoW(), currentCaller(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, lo.Map(records, func(a *attendance.Attendance, _ int) AttendanceResponse {
		return attendanceResponse(a)
	}))
}

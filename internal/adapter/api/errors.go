package api

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/exportstore"
	"github.com/burenotti/go_routines_backend/internal/adapter/interchange"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	routineapp "github.com/burenotti/go_routines_backend/internal/app/routine"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/attendance"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/labstack/echo/v4"
	"net/http"
)

type JsonErrorModel struct {
	Message string `json:"message"`
}

func JsonError(c echo.Context, status int, content any) error {
	data := &JsonErrorModel{Message: fmt.Sprintf("%v", content)}
	return c.JSON(status, data)
}

var statuses = []struct {
	err    error
	status int
}{
	{routine.ErrValidation, http.StatusBadRequest},
	{interchange.ErrUnsupportedFormat, http.StatusBadRequest},
	{exportstore.ErrUnsafeFilename, http.StatusBadRequest},
	{profile.ErrInvalidRole, http.StatusBadRequest},
	{identity.ErrAccessTokenInvalid, http.StatusUnauthorized},
	{routine.ErrForbidden, http.StatusForbidden},
	{routine.ErrNotFoundOrForbidden, http.StatusNotFound},
	{routine.ErrRoutineNotFound, http.StatusNotFound},
	{profile.ErrProfileNotFound, http.StatusNotFound},
	{attendance.ErrAttendanceNotFound, http.StatusNotFound},
	{routine.ErrRoutineExists, http.StatusConflict},
	{profile.ErrEmailTaken, http.StatusConflict},
	{routineapp.ErrArchiveDisabled, http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

func messageOf(err error) string {
	var rollback *unitofwork.RollbackError
	if errors.As(err, &rollback) {
		err = rollback.Cause
	}
	return err.Error()
}

func (s *Server) fail(c echo.Context, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return JsonError(c, status, messageOf(err))
}

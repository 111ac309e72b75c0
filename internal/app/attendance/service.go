package attendanceapp

import (
	"context"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/app/access"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/attendance"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/google/uuid"
	"log/slog"
	"time"
)

type UnitOfWork = unitofwork.UnitOfWork[*AtomicContext]

type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

func New(logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		logger: logger,
		now:    now,
	}
}

func (s *Service) Mark(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
	completed bool,
) (a *attendance.Attendance, err error) {
	if d := access.CheckRole(caller, access.OpMarkAttendance); !d.Allowed {
		return nil, d.Err()
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		target, err := ctx.RoutineStorage.GetByID(ctx.Context(), routineID)
		if err != nil && !errors.Is(err, routine.ErrRoutineNotFound) {
			return err
		}
		if d := access.Authorize(caller, access.OpMarkAttendance, target); !d.Allowed {
			return d.Err()
		}

		record, err := ctx.AttendanceStorage.Get(ctx.Context(), string(routineID), caller.UserID)
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			record = attendance.New(uuid.NewString(), string(routineID), caller.UserID)
		} else if err != nil {
			return err
		}

		record.Mark(completed, s.now(), caller.Actor())
		if err := ctx.AttendanceStorage.Upsert(ctx.Context(), record); err != nil {
			return err
		}

		a = record
		return ctx.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("attendance marked", "routine_id", routineID, "athlete_id", caller.UserID, "completed", completed)
	return a, nil
}

func (s *Service) ListMine(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
) (records []*attendance.Attendance, err error) {
	if d := access.CheckRole(caller, access.OpMarkAttendance); !d.Allowed {
		return nil, d.Err()
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		records, err = ctx.AttendanceStorage.ListByAthlete(ctx.Context(), caller.UserID)
		return err
	})
	if records == nil {
		records = []*attendance.Attendance{}
	}
	return records, err
}

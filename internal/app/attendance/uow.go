package attendanceapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	attendancestorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/attendance"
	routinestorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/routines"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/attendance"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"slices"
)

type AttendanceStorage interface {
	Get(ctx context.Context, routineID, athleteID string) (*attendance.Attendance, error)
	ListByAthlete(ctx context.Context, athleteID string) ([]*attendance.Attendance, error)
	Upsert(ctx context.Context, a *attendance.Attendance) error

	Close() error
	CollectEvents() []domain.Event
}

type RoutineStorage interface {
	GetByID(ctx context.Context, routineID routine.RoutineID) (*routine.Routine, error)

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx               context.Context
	db                storage.DBContext
	AttendanceStorage AttendanceStorage
	RoutineStorage    RoutineStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() (err error) {
	if closeErr := a.AttendanceStorage.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if closeErr := a.RoutineStorage.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	if err != nil {
		err = errors.Join(fmt.Errorf("failed to close storage"), err)
	}
	return err
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return slices.Concat(a.AttendanceStorage.CollectEvents(), a.RoutineStorage.CollectEvents())
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:               ctx,
		db:                dbContext,
		AttendanceStorage: attendancestorage.NewPostgresStorage(dbContext),
		RoutineStorage:    routinestorage.NewPostgresStorage(dbContext, nil),
	}, nil
}

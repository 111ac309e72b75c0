package routineapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	assignmentstorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/assignments"
	attendancestorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/attendance"
	profilestorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/profiles"
	routinestorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/routines"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"slices"
)

type RoutineStorage interface {
	Add(ctx context.Context, r *routine.Routine) error
	Persist(ctx context.Context, r *routine.Routine) error
	Delete(ctx context.Context, r *routine.Routine) error
	GetByID(ctx context.Context, routineID routine.RoutineID) (*routine.Routine, error)
	List(ctx context.Context) ([]*routine.Routine, error)
	ListByTrainer(ctx context.Context, trainerID routine.TrainerID) ([]*routine.Routine, error)
	ListByAthlete(ctx context.Context, athleteID routine.AthleteID) ([]*routine.Routine, error)

	Close() error
	CollectEvents() []domain.Event
}

type AssignmentStorage interface {
	Add(ctx context.Context, routineID routine.RoutineID, athleteIDs []routine.AthleteID) error
	DeleteByRoutine(ctx context.Context, routineID routine.RoutineID) (int64, error)
	ListByRoutine(ctx context.Context, routineID routine.RoutineID) ([]routine.AthleteID, error)

	Close() error
	CollectEvents() []domain.Event
}

type AttendanceStorage interface {
	DeleteByRoutine(ctx context.Context, routineID string) (int64, error)

	Close() error
	CollectEvents() []domain.Event
}

type ProfileStorage interface {
	GetByID(ctx context.Context, userID string) (*profile.Profile, error)
	ListByIDs(ctx context.Context, userIDs []string) (map[string]*profile.Profile, error)

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx               context.Context
	db                storage.DBContext
	RoutineStorage    RoutineStorage
	AssignmentStorage AssignmentStorage
	AttendanceStorage AttendanceStorage
	ProfileStorage    ProfileStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() (err error) {
	for _, closer := range []interface{ Close() error }{
		a.RoutineStorage,
		a.AssignmentStorage,
		a.AttendanceStorage,
		a.ProfileStorage,
	} {
		if closeErr := closer.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if err != nil {
		err = errors.Join(fmt.Errorf("failed to close storage"), err)
	}

	return err
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return slices.Concat(
		a.RoutineStorage.CollectEvents(),
		a.AssignmentStorage.CollectEvents(),
		a.AttendanceStorage.CollectEvents(),
		a.ProfileStorage.CollectEvents(),
	)
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:               ctx,
		db:                dbContext,
		RoutineStorage:    routinestorage.NewPostgresStorage(dbContext, nil),
		AssignmentStorage: assignmentstorage.NewPostgresStorage(dbContext, nil),
		AttendanceStorage: attendancestorage.NewPostgresStorage(dbContext),
		ProfileStorage:    profilestorage.NewPostgresStorage(dbContext),
	}, nil
}

package routineapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/interchange"
	"github.com/burenotti/go_routines_backend/internal/app/access"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"log/slog"
	"time"
)

var (
	ErrArchiveDisabled = errors.New("export archive is not configured")
)

type UnitOfWork = unitofwork.UnitOfWork[*AtomicContext]

type Archive interface {
	Store(ctx context.Context, trainerID, routineID string, f *interchange.File) (string, error)
}

type Service struct {
	logger   *slog.Logger
	now      func() time.Time
	location *time.Location
	archive  Archive
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.location = loc
	}
}

func WithArchive(a Archive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

func New(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		logger:   logger,
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateRequest struct {
	Title       string
	Description string
	TrainerID   routine.TrainerID
	StartDate   *routine.Date
	EndDate     *routine.Date
	Exercises   []routine.Exercise
	AthleteIDs  []routine.AthleteID
}

func (s *Service) Create(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	req CreateRequest,
) (*routine.Routine, error) {
	if d := access.CheckRole(caller, access.OpCreateRoutine); !d.Allowed {
		return nil, d.Err()
	}
	return s.create(ctx, uow, caller, req)
}

func (s *Service) create(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	req CreateRequest,
) (r *routine.Routine, err error) {
	trainerID := routine.TrainerID(caller.UserID)
	if req.TrainerID != "" && req.TrainerID != trainerID {
		if !caller.IsAdministrator() {
			return nil, fmt.Errorf("%w: trainers create routines for themselves only", routine.ErrForbidden)
		}
		trainerID = req.TrainerID
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		created, err := routine.New(
			routine.RoutineID(uuid.NewString()),
			trainerID,
			req.Title,
			req.Description,
			req.StartDate,
			req.EndDate,
			req.Exercises,
			req.AthleteIDs,
			caller.Actor(),
		)
		if err != nil {
			return err
		}

		if trainerID != routine.TrainerID(caller.UserID) {
			if err := checkTrainer(ctx, trainerID); err != nil {
				return err
			}
		}
		if err := checkAthletes(ctx, created.AthleteIDs); err != nil {
			return err
		}

		if err := ctx.RoutineStorage.Add(ctx.Context(), created); err != nil {
			return err
		}
		if _, err := SyncAssignments(ctx.Context(), ctx.AssignmentStorage, created.RoutineID, created.AthleteIDs); err != nil {
			return err
		}

		r = created
		return ctx.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("routine created",
		"routine_id", r.RoutineID,
		"actor", caller.Actor(),
		"trainer_id", r.TrainerID,
		"athletes", len(r.AthleteIDs),
		"exercises", len(r.Exercises),
	)
	return r, nil
}

type UpdateRequest struct {
	Title       string
	Description string
	Exercises   []routine.Exercise
	StartDate   *routine.Date
	EndDate     *routine.Date
	// Nil keeps the assignments, empty clears them.
	AthleteIDs []routine.AthleteID
	TrainerID  *routine.TrainerID
}

func (s *Service) Update(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
	req UpdateRequest,
) (r *routine.Routine, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		target, err := load(ctx, routineID)
		if err != nil {
			return err
		}
		if d := access.Authorize(caller, access.OpUpdateRoutine, target); !d.Allowed {
			return d.Err()
		}

		changes := routine.Changes{
			Title:       req.Title,
			Description: req.Description,
			Exercises:   req.Exercises,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
		}
		if req.TrainerID != nil && *req.TrainerID != target.TrainerID {
			if !caller.IsAdministrator() {
				return fmt.Errorf("%w: only an administrator may reassign a routine", routine.ErrForbidden)
			}
			if err := checkTrainer(ctx, *req.TrainerID); err != nil {
				return err
			}
			changes.TrainerID = req.TrainerID
		}

		if err := target.Update(changes, caller.Actor()); err != nil {
			return err
		}
		if err := ctx.RoutineStorage.Persist(ctx.Context(), target); err != nil {
			return err
		}

		if req.AthleteIDs != nil {
			desired := routine.DistinctAthletes(req.AthleteIDs)
			if err := checkAthletes(ctx, desired); err != nil {
				return err
			}
			synced, err := SyncAssignments(ctx.Context(), ctx.AssignmentStorage, target.RoutineID, desired)
			if err != nil {
				return err
			}
			target.Assign(synced, caller.Actor())
		}

		r = target
		return ctx.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("routine updated", "routine_id", r.RoutineID, "reassigned", req.AthleteIDs != nil)
	return r, nil
}

func (s *Service) Delete(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
) error {
	var attendanceRows, assignmentRows int64
	err := uow.Atomic(ctx, func(ctx *AtomicContext) error {
		target, err := load(ctx, routineID)
		if err != nil {
			return err
		}
		if d := access.Authorize(caller, access.OpDeleteRoutine, target); !d.Allowed {
			return d.Err()
		}

		if attendanceRows, err = ctx.AttendanceStorage.DeleteByRoutine(ctx.Context(), string(routineID)); err != nil {
			return err
		}
		if assignmentRows, err = ctx.AssignmentStorage.DeleteByRoutine(ctx.Context(), routineID); err != nil {
			return err
		}

		target.Delete(caller.Actor())
		if err := ctx.RoutineStorage.Delete(ctx.Context(), target); err != nil {
			return err
		}
		return ctx.Commit()
	})
	if err != nil {
		return err
	}

	s.logger.Info("routine deleted",
		"routine_id", routineID,
		"actor", caller.Actor(),
		"attendance_rows", attendanceRows,
		"assignment_rows", assignmentRows,
	)
	return nil
}

type RenewRequest struct {
	Months  int
	EndDate *routine.Date
}

func (s *Service) Renew(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
	req RenewRequest,
) (r *routine.Routine, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		target, err := load(ctx, routineID)
		if err != nil {
			return err
		}
		if d := access.Authorize(caller, access.OpRenewRoutine, target); !d.Allowed {
			return d.Err()
		}

		newEnd, err := routine.CalculateRenewal(target.EndDate, req.Months, req.EndDate, s.Today())
		if err != nil {
			return err
		}
		if err := target.Renew(newEnd, caller.Actor()); err != nil {
			return err
		}
		if err := ctx.RoutineStorage.Persist(ctx.Context(), target); err != nil {
			return err
		}

		r = target
		return ctx.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("routine renewed", "routine_id", r.RoutineID, "end_date", r.EndDate)
	return r, nil
}

func (s *Service) Get(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
) (r *routine.Routine, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		target, err := load(ctx, routineID)
		if err != nil {
			return err
		}
		if d := access.Authorize(caller, access.OpReadRoutine, target); !d.Allowed {
			return d.Err()
		}
		r = target
		return nil
	})
	return r, err
}

func (s *Service) ListMine(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
) (routines []*routine.Routine, err error) {
	if d := access.CheckRole(caller, access.OpReadRoutine); !d.Allowed {
		return nil, d.Err()
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		switch caller.Role {
		case profile.RoleAdministrator:
			routines, err = ctx.RoutineStorage.List(ctx.Context())
		case profile.RoleTrainer:
			routines, err = ctx.RoutineStorage.ListByTrainer(ctx.Context(), routine.TrainerID(caller.UserID))
		default:
			routines, err = ctx.RoutineStorage.ListByAthlete(ctx.Context(), routine.AthleteID(caller.UserID))
		}
		return err
	})
	if routines == nil {
		routines = []*routine.Routine{}
	}
	return routines, err
}

func (s *Service) Export(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
	format interchange.Format,
) (*interchange.File, error) {
	_, f, err := s.export(ctx, uow, caller, routineID, format)
	return f, err
}

func (s *Service) ExportToArchive(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
	format interchange.Format,
) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}

	r, f, err := s.export(ctx, uow, caller, routineID, format)
	if err != nil {
		return "", err
	}

	location, err := s.archive.Store(ctx, string(r.TrainerID), string(r.RoutineID), f)
	if err != nil {
		return "", err
	}

	s.logger.Info("routine archived", "routine_id", r.RoutineID, "location", location)
	return location, nil
}

func (s *Service) export(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	routineID routine.RoutineID,
	format interchange.Format,
) (r *routine.Routine, f *interchange.File, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		target, err := load(ctx, routineID)
		if err != nil {
			return err
		}
		if d := access.Authorize(caller, access.OpExportRoutine, target); !d.Allowed {
			return d.Err()
		}

		assignees, err := assigneesOf(ctx, target)
		if err != nil {
			return err
		}
		if f, err = interchange.Export(target, assignees, format); err != nil {
			return err
		}
		r = target
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return r, f, nil
}

type ImportRequest struct {
	Filename   string
	Content    []byte
	AthleteIDs []routine.AthleteID
	TrainerID  routine.TrainerID
	Defaults   interchange.Defaults
}

func (s *Service) Import(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	req ImportRequest,
) (*routine.Routine, error) {
	if d := access.CheckRole(caller, access.OpImportRoutine); !d.Allowed {
		return nil, d.Err()
	}

	doc, err := interchange.Import(req.Filename, req.Content, req.Defaults)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("routine file parsed", "filename", req.Filename, "exercises", len(doc.Exercises))

	return s.create(ctx, uow, caller, CreateRequest{
		Title:       doc.Title,
		Description: doc.Description,
		TrainerID:   req.TrainerID,
		StartDate:   doc.StartDate,
		EndDate:     doc.EndDate,
		Exercises:   doc.Exercises,
		AthleteIDs:  req.AthleteIDs,
	})
}

func (s *Service) Today() routine.Date {
	return routine.DateOf(s.now().In(s.location))
}

// Missing routines load as nil so the guard reports them like foreign ones.
func load(ctx *AtomicContext, routineID routine.RoutineID) (*routine.Routine, error) {
	r, err := ctx.RoutineStorage.GetByID(ctx.Context(), routineID)
	if errors.Is(err, routine.ErrRoutineNotFound) {
		return nil, nil
	}
	return r, err
}

func checkAthletes(ctx *AtomicContext, athleteIDs []routine.AthleteID) error {
	if len(athleteIDs) == 0 {
		return nil
	}

	ids := lo.Map(athleteIDs, func(id routine.AthleteID, _ int) string { return string(id) })
	profiles, err := ctx.ProfileStorage.ListByIDs(ctx.Context(), ids)
	if err != nil {
		return err
	}

	unknown := lo.Filter(ids, func(id string, _ int) bool {
		p, ok := profiles[id]
		return !ok || p.Role != profile.RoleAthlete
	})
	if len(unknown) != 0 {
		return fmt.Errorf("%w: %v", routine.ErrUnknownAthlete, unknown)
	}
	return nil
}

func checkTrainer(ctx *AtomicContext, trainerID routine.TrainerID) error {
	p, err := ctx.ProfileStorage.GetByID(ctx.Context(), string(trainerID))
	if errors.Is(err, profile.ErrProfileNotFound) || (err == nil && p.Role != profile.RoleTrainer) {
		return fmt.Errorf("%w: %s", routine.ErrUnknownTrainer, trainerID)
	}
	return err
}

func assigneesOf(ctx *AtomicContext, r *routine.Routine) ([]interchange.Assignee, error) {
	ids := lo.Map(r.AthleteIDs, func(id routine.AthleteID, _ int) string { return string(id) })
	profiles, err := ctx.ProfileStorage.ListByIDs(ctx.Context(), ids)
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(ids, func(id string, _ int) (interchange.Assignee, bool) {
		p, ok := profiles[id]
		if !ok {
			return interchange.Assignee{}, false
		}
		return interchange.Assignee{ID: p.UserID, Name: p.FullName}, true
	}), nil
}

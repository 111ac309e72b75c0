package routinestorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
	"log/slog"
	"slices"
	"time"
)

type PostgresStorage struct {
	base   *pgutil.BasePostgresStorage
	logger *slog.Logger
}

func NewPostgresStorage(db storage.DBContext, logger *slog.Logger) *PostgresStorage {
	return &PostgresStorage{
		base:   pgutil.NewBasePostgresStorage(db),
		logger: logger,
	}
}

func (s *PostgresStorage) Add(ctx context.Context, r *routine.Routine) error {
	q := sqlf.InsertInto("routines").
		Set("routine_id", r.RoutineID).
		Set("trainer_id", r.TrainerID).
		Set("title", r.Title).
		Set("description", r.Description).
		Set("start_date", r.StartDate).
		Set("end_date", r.EndDate).
		Set("exercises", r.Exercises).
		Set("created_at", r.CreatedAt).
		Set("updated_at", r.UpdatedAt)

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "routines_pkey") {
			return routine.ErrRoutineExists
		}
		if pgutil.ViolatesConstraint(err, "routines_trainer_id_fkey") {
			return routine.ErrUnknownTrainer
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(string(r.RoutineID), r)
	return nil
}

func (s *PostgresStorage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt) *sqlf.Stmt,
) ([]*routine.Routine, error) {
	tmp := struct {
		RoutineID   string
		TrainerID   string
		Title       string
		Description string
		StartDate   *routine.Date
		EndDate     *routine.Date
		Exercises   routine.Exercises
		CreatedAt   time.Time
		UpdatedAt   time.Time
		AthleteID   *string
	}{}

	q := sqlf.From("routines r").
		LeftJoin("routine_assignments a", "r.routine_id = a.routine_id").
		Select("r.routine_id").To(&tmp.RoutineID).
		Select("r.trainer_id").To(&tmp.TrainerID).
		Select("r.title").To(&tmp.Title).
		Select("r.description").To(&tmp.Description).
		Select("r.start_date").To(&tmp.StartDate).
		Select("r.end_date").To(&tmp.EndDate).
		Select("r.exercises").To(&tmp.Exercises).
		Select("r.created_at").To(&tmp.CreatedAt).
		Select("r.updated_at").To(&tmp.UpdatedAt).
		Select("a.athlete_id").To(&tmp.AthleteID)

	q = modify(q).OrderBy("r.created_at DESC", "r.routine_id", "a.athlete_id")

	var ordered []*routine.Routine
	index := make(map[routine.RoutineID]*routine.Routine)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		id := routine.RoutineID(tmp.RoutineID)
		r, ok := index[id]
		if !ok {
			r = &routine.Routine{
				RoutineID:   id,
				TrainerID:   routine.TrainerID(tmp.TrainerID),
				Title:       tmp.Title,
				Description: tmp.Description,
				StartDate:   tmp.StartDate,
				EndDate:     tmp.EndDate,
				Exercises:   slices.Clone(tmp.Exercises),
				AthleteIDs:  []routine.AthleteID{},
				CreatedAt:   tmp.CreatedAt.UTC(),
				UpdatedAt:   tmp.UpdatedAt.UTC(),
			}
			index[id] = r
			ordered = append(ordered, r)
		}
		if tmp.AthleteID != nil {
			r.AthleteIDs = append(r.AthleteIDs, routine.AthleteID(*tmp.AthleteID))
		}
	})

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storage.InternalError(err)
	}

	return ordered, nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, routineID routine.RoutineID) (*routine.Routine, error) {
	routines, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("r.routine_id = ?", routineID)
	})
	if err != nil {
		return nil, err
	}
	if len(routines) == 0 {
		return nil, routine.ErrRoutineNotFound
	}
	return routines[0], nil
}

func (s *PostgresStorage) List(ctx context.Context) ([]*routine.Routine, error) {
	return s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt
	})
}

func (s *PostgresStorage) ListByTrainer(ctx context.Context, trainerID routine.TrainerID) ([]*routine.Routine, error) {
	return s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("r.trainer_id = ?", trainerID)
	})
}

func (s *PostgresStorage) ListByAthlete(ctx context.Context, athleteID routine.AthleteID) ([]*routine.Routine, error) {
	return s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where(
			"r.routine_id IN (SELECT routine_id FROM routine_assignments WHERE athlete_id = ?)",
			athleteID,
		)
	})
}

// Exercises live in one document column and are diffed separately.
func (s *PostgresStorage) Persist(ctx context.Context, r *routine.Routine) error {
	dbState, err := s.GetByID(ctx, r.RoutineID)
	if err != nil {
		return err
	}

	log, err := diff.Diff(dbState, r)
	if err != nil {
		panic(err) // should never happen
	}

	if s.logger != nil {
		s.logger.Debug("persisting routine", "routine_id", r.RoutineID, "changed_columns", len(log))
	}

	q := sqlf.Update("routines").Where("routine_id = ?", r.RoutineID)
	changed := len(log) != 0
	q = pgutil.MakeUpdateQuery(q, log)
	if !slices.Equal(dbState.Exercises, r.Exercises) {
		q = q.Set("exercises", r.Exercises)
		changed = true
	}

	if changed {
		res, err := q.ExecAndClose(ctx, s.base.DB)
		if err := pgutil.AssertUpdated(res, err, routine.ErrRoutineNotFound); err != nil {
			return err
		}
	}

	s.base.MarkSeen(string(r.RoutineID), r)
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, r *routine.Routine) error {
	q := sqlf.DeleteFrom("routines").Where("routine_id = ?", r.RoutineID)
	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err := pgutil.AssertUpdated(res, err, routine.ErrRoutineNotFound); err != nil {
		return err
	}

	s.base.MarkSeen(string(r.RoutineID), r)
	return nil
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

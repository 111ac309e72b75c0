package assignmentstorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/leporo/sqlf"
	"log/slog"
	"time"
)

type PostgresStorage struct {
	db     storage.DBContext
	logger *slog.Logger
}

func NewPostgresStorage(db storage.DBContext, logger *slog.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PostgresStorage) DeleteByRoutine(ctx context.Context, routineID routine.RoutineID) (int64, error) {
	res, err := sqlf.DeleteFrom("routine_assignments").
		Where("routine_id = ?", routineID).
		ExecAndClose(ctx, s.db)
	if err != nil {
		return 0, storage.InternalError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storage.InternalError(err)
	}
	return n, nil
}

func (s *PostgresStorage) Add(ctx context.Context, routineID routine.RoutineID, athleteIDs []routine.AthleteID) error {
	now := time.Now().UTC()
	for _, athleteID := range athleteIDs {
		q := sqlf.InsertInto("routine_assignments").
			Set("routine_id", routineID).
			Set("athlete_id", athleteID).
			Set("assigned_at", now).
			Clause("ON CONFLICT (routine_id, athlete_id) DO NOTHING")

		if _, err := q.ExecAndClose(ctx, s.db); err != nil {
			return storage.InternalError(err)
		}
	}
	return nil
}

func (s *PostgresStorage) ListByRoutine(ctx context.Context, routineID routine.RoutineID) ([]routine.AthleteID, error) {
	var athleteID string
	q := sqlf.From("routine_assignments").
		Select("athlete_id").To(&athleteID).
		Where("routine_id = ?", routineID).
		OrderBy("athlete_id")

	ids := make([]routine.AthleteID, 0)
	err := q.QueryAndClose(ctx, s.db, func(rows *sql.Rows) {
		ids = append(ids, routine.AthleteID(athleteID))
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storage.InternalError(err)
	}
	return ids, nil
}

func (s *PostgresStorage) Close() error {
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return nil
}

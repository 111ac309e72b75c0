package attendancestorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/attendance"
	"github.com/leporo/sqlf"
	"time"
)

type PostgresStorage struct {
	base *pgutil.BasePostgresStorage
}

func NewPostgresStorage(db storage.DBContext) *PostgresStorage {
	return &PostgresStorage{
		base: pgutil.NewBasePostgresStorage(db),
	}
}

func (s *PostgresStorage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt) *sqlf.Stmt,
) ([]*attendance.Attendance, error) {
	tmp := struct {
		AttendanceID string
		RoutineID    string
		AthleteID    string
		Completed    bool
		CompletedAt  *time.Time
	}{}

	q := sqlf.From("attendance t").
		Select("t.attendance_id").To(&tmp.AttendanceID).
		Select("t.routine_id").To(&tmp.RoutineID).
		Select("t.athlete_id").To(&tmp.AthleteID).
		Select("t.completed").To(&tmp.Completed).
		Select("t.completed_at").To(&tmp.CompletedAt)

	q = modify(q).OrderBy("t.routine_id")

	var records []*attendance.Attendance
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		a := attendance.New(tmp.AttendanceID, tmp.RoutineID, tmp.AthleteID)
		a.Completed = tmp.Completed
		if tmp.CompletedAt != nil {
			at := tmp.CompletedAt.UTC()
			a.CompletedAt = &at
		}
		records = append(records, a)
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storage.InternalError(err)
	}
	return records, nil
}

func (s *PostgresStorage) Get(ctx context.Context, routineID, athleteID string) (*attendance.Attendance, error) {
	records, err := s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("t.routine_id = ? AND t.athlete_id = ?", routineID, athleteID)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, attendance.ErrAttendanceNotFound
	}
	return records[0], nil
}

func (s *PostgresStorage) ListByAthlete(ctx context.Context, athleteID string) ([]*attendance.Attendance, error) {
	return s.get(ctx, func(stmt *sqlf.Stmt) *sqlf.Stmt {
		return stmt.Where("t.athlete_id = ?", athleteID)
	})
}

func (s *PostgresStorage) Upsert(ctx context.Context, a *attendance.Attendance) error {
	q := sqlf.InsertInto("attendance").
		Set("attendance_id", a.AttendanceID).
		Set("routine_id", a.RoutineID).
		Set("athlete_id", a.AthleteID).
		Set("completed", a.Completed).
		Set("completed_at", a.CompletedAt).
		Clause("ON CONFLICT (routine_id, athlete_id) DO UPDATE SET " +
			"completed = excluded.completed, " +
			"completed_at = excluded.completed_at")

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		return storage.InternalError(err)
	}

	s.base.MarkSeen(a.RoutineID+"/"+a.AthleteID, a)
	return nil
}

func (s *PostgresStorage) DeleteByRoutine(ctx context.Context, routineID string) (int64, error) {
	res, err := sqlf.DeleteFrom("attendance").
		Where("routine_id = ?", routineID).
		ExecAndClose(ctx, s.base.DB)
	if err != nil {
		return 0, storage.InternalError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storage.InternalError(err)
	}
	return n, nil
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

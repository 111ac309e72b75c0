package profilestorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage/pgutil"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
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

type profileRow struct {
	UserID    string
	FullName  string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *profileRow) bind(q *sqlf.Stmt) *sqlf.Stmt {
	return q.
		Select("p.user_id").To(&r.UserID).
		Select("p.full_name").To(&r.FullName).
		Select("p.email").To(&r.Email).
		Select("p.role").To(&r.Role).
		Select("p.created_at").To(&r.CreatedAt).
		Select("p.updated_at").To(&r.UpdatedAt)
}

func (r *profileRow) profile() *profile.Profile {
	return &profile.Profile{
		UserID:    r.UserID,
		FullName:  r.FullName,
		Email:     r.Email,
		Role:      profile.Role(r.Role),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (s *PostgresStorage) GetByID(ctx context.Context, userID string) (*profile.Profile, error) {
	var r profileRow
	q := r.bind(sqlf.From("profiles p")).Where("p.user_id = ?", userID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, storage.InternalError(err)
	}
	return r.profile(), nil
}

func (s *PostgresStorage) ListByIDs(ctx context.Context, userIDs []string) (map[string]*profile.Profile, error) {
	profiles := make(map[string]*profile.Profile)
	if len(userIDs) == 0 {
		return profiles, nil
	}

	var r profileRow
	q := r.bind(sqlf.From("profiles p")).
		Where(pgutil.In("p.user_id", len(userIDs)), pgutil.Args(userIDs)...)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		profiles[r.UserID] = r.profile()
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storage.InternalError(err)
	}
	return profiles, nil
}

func (s *PostgresStorage) Upsert(ctx context.Context, p *profile.Profile) error {
	q := sqlf.InsertInto("profiles").
		Set("user_id", p.UserID).
		Set("full_name", p.FullName).
		Set("email", p.Email).
		Set("role", string(p.Role)).
		Set("created_at", p.CreatedAt).
		Set("updated_at", p.UpdatedAt).
		Clause("ON CONFLICT (user_id) DO UPDATE SET " +
			"full_name = excluded.full_name, " +
			"email = excluded.email, " +
			"role = excluded.role, " +
			"updated_at = excluded.updated_at")

	if _, err := q.ExecAndClose(ctx, s.base.DB); err != nil {
		if pgutil.ViolatesConstraint(err, "profiles_email_key") {
			return errors.Join(profile.ErrEmailTaken, err)
		}
		return storage.InternalError(err)
	}

	s.base.MarkSeen(p.UserID, p)
	return nil
}

func (s *PostgresStorage) Close() error {
	s.base.Close()
	return nil
}

func (s *PostgresStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

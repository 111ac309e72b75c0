package profileapp

import (
	"context"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage/storagetest"
	"github.com/burenotti/go_routines_backend/internal/app/access"
	"github.com/burenotti/go_routines_backend/internal/app/messagebus"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"testing"
)

func TestUpsertAndMe(t *testing.T) {
	ctx := context.Background()
	db := storagetest.Open(t)
	storagetest.AddProfile(t, db, "adm", "Root", "administrator")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := messagebus.New(logger)
	defer bus.Close()
	uow := unitofwork.New(db, NewAtomicContext, bus, logger)
	svc := New(logger)

	admin := access.Caller{UserID: "adm", Role: profile.RoleAdministrator}

	p, err := svc.Upsert(ctx, uow, admin, UpsertRequest{UserID: "a-1", FullName: " Ana ", Email: "ana@club.test", Role: "athlete"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.FullName)

	p, err = svc.Upsert(ctx, uow, admin, UpsertRequest{UserID: "a-1", FullName: "Ana Ruiz", Email: "ana@club.test", Role: "trainer"})
	require.NoError(t, err)
	assert.Equal(t, profile.RoleTrainer, p.Role)
	assert.Equal(t, 1, storagetest.Count(t, db, "profiles", "user_id = ?", "a-1"))

	me, err := svc.Me(ctx, uow, access.Caller{UserID: "a-1", Role: profile.RoleTrainer})
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", me.FullName)
	assert.Equal(t, "ana@club.test", me.Email)

	_, err = svc.Me(ctx, uow, access.Caller{UserID: "nobody", Role: profile.RoleAthlete})
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)
}

func TestUpsertRejects(t *testing.T) {
	ctx := context.Background()
	db := storagetest.Open(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := messagebus.New(logger)
	defer bus.Close()
	uow := unitofwork.New(db, NewAtomicContext, bus, logger)
	svc := New(logger)

	trainer := access.Caller{UserID: "t-1", Role: profile.RoleTrainer}
	_, err := svc.Upsert(ctx, uow, trainer, UpsertRequest{UserID: "a-1", Email: "a@b.c", Role: "athlete"})
	assert.ErrorIs(t, err, routine.ErrForbidden)

	admin := access.Caller{UserID: "adm", Role: profile.RoleAdministrator}
	_, err = svc.Upsert(ctx, uow, admin, UpsertRequest{UserID: "a-1", Email: "a@b.c", Role: "coach"})
	assert.ErrorIs(t, err, profile.ErrInvalidRole)
	assert.ErrorIs(t, err, routine.ErrValidation)

	_, err = svc.Upsert(ctx, uow, admin, UpsertRequest{UserID: "a-1", Role: "athlete"})
	assert.ErrorIs(t, err, routine.ErrValidation)
}

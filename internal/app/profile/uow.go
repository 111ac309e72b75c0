package profileapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	profilestorage "github.com/burenotti/go_routines_backend/internal/adapter/storage/profiles"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
)

type ProfileStorage interface {
	GetByID(ctx context.Context, userID string) (*profile.Profile, error)
	Upsert(ctx context.Context, p *profile.Profile) error

	Close() error
	CollectEvents() []domain.Event
}

type AtomicContext struct {
	ctx            context.Context
	db             storage.DBContext
	ProfileStorage ProfileStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() (err error) {
	if closeErr := a.ProfileStorage.Close(); closeErr != nil {
		err = errors.Join(fmt.Errorf("failed to close storage"), closeErr)
	}
	return err
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.ProfileStorage.CollectEvents()
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:            ctx,
		db:             dbContext,
		ProfileStorage: profilestorage.NewPostgresStorage(dbContext),
	}, nil
}

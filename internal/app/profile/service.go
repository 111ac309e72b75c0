package profileapp

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/app/access"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"log/slog"
	"strings"
)

type UnitOfWork = unitofwork.UnitOfWork[*AtomicContext]

type Service struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

type UpsertRequest struct {
	UserID   string
	FullName string
	Email    string
	Role     string
}

func (s *Service) Upsert(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
	req UpsertRequest,
) (p *profile.Profile, err error) {
	if d := access.CheckRole(caller, access.OpManageProfiles); !d.Allowed {
		return nil, d.Err()
	}

	role, err := profile.ParseRole(req.Role)
	if err != nil {
		return nil, errors.Join(routine.ErrValidation, err)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", routine.ErrValidation)
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", routine.ErrValidation)
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		existing, err := ctx.ProfileStorage.GetByID(ctx.Context(), req.UserID)
		switch {
		case errors.Is(err, profile.ErrProfileNotFound):
			p = profile.New(req.UserID, strings.TrimSpace(req.FullName), req.Email, role, caller.Actor())
		case err != nil:
			return err
		default:
			existing.Change(strings.TrimSpace(req.FullName), req.Email, role, caller.Actor())
			p = existing
		}

		if err := ctx.ProfileStorage.Upsert(ctx.Context(), p); err != nil {
			return err
		}
		return ctx.Commit()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile upserted", "user_id", p.UserID, "role", p.Role)
	return p, nil
}

func (s *Service) Me(
	ctx context.Context,
	uow *UnitOfWork,
	caller access.Caller,
) (p *profile.Profile, err error) {
	if caller.UserID == "" {
		return nil, fmt.Errorf("%w: not authenticated", routine.ErrForbidden)
	}

	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		p, err = ctx.ProfileStorage.GetByID(ctx.Context(), caller.UserID)
		return err
	})
	return p, err
}

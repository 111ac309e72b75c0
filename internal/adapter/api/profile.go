package api

import (
	profileapp "github.com/burenotti/go_routines_backend/internal/app/profile"
	"github.com/burenotti/go_routines_backend/internal/app/unitofwork"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/labstack/echo/v4"
	"net/http"
	"time"
)

func (s *Server) MountProfile() {
	loginRequired := LoginRequired(s.authorizer)
	s.handler.PUT("/profiles/:user_id", s.UpsertProfile, loginRequired)
	s.handler.GET("/profiles/me", s.GetMyProfile, loginRequired)
}

func (s *Server) getProfileUoW() *profileapp.UnitOfWork {
	return unitofwork.New[*profileapp.AtomicContext](
		s.db,
		profileapp.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

type ProfileResponse struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func profileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:    p.UserID,
		FullName:  p.FullName,
		Email:     p.Email,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type UpsertProfileRequest struct {
	UserID   string `param:"user_id" validate:"required"`
	FullName string `json:"full_name" validate:"max=200"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=athlete trainer administrator"`
}

func (s *Server) UpsertProfile(c echo.Context) error {
	var req UpsertProfileRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	p, err := s.profileService.Upsert(c.Request().Context(), s.getProfileUoW(), currentCaller(c), profileapp.UpsertRequest{
		UserID:   req.UserID,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, profileResponse(p))
}

func (s *Server) GetMyProfile(c echo.Context) error {
	p, err := s.profileService.Me(c.Request().Context(), s.getProfileUoW(), currentCaller(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, profileResponse(p))
}

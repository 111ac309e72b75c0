package profile

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"time"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrEmailTaken      = errors.New("email is already used by another profile")
)

const EventUpserted = "profile.upserted"

type Role string

const (
	RoleAthlete       Role = "athlete"
	RoleTrainer       Role = "trainer"
	RoleAdministrator Role = "administrator"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAthlete, RoleTrainer, RoleAdministrator:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

type Profile struct {
	domain.Aggregate
	UserID    string
	FullName  string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(userID, fullName, email string, role Role, actor domain.Actor) *Profile {
	now := time.Now().UTC()
	p := &Profile{
		UserID:    userID,
		FullName:  fullName,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.PushEvent(UpsertedEvent{
		At:     now,
		UserID: userID,
		Role:   role,
		Actor:  actor,
	})
	return p
}

func (p *Profile) Change(fullName, email string, role Role, actor domain.Actor) {
	p.FullName = fullName
	p.Email = email
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	p.PushEvent(UpsertedEvent{
		At:     p.UpdatedAt,
		UserID: p.UserID,
		Role:   role,
		Actor:  actor,
	})
}

type UpsertedEvent struct {
	At     time.Time
	UserID string
	Role   Role
	Actor  domain.Actor
}

func (e UpsertedEvent) Type() string           { return EventUpserted }
func (e UpsertedEvent) PublishedAt() time.Time { return e.At }

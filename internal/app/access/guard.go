package access

import (
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
)

type Operation string

const (
	OpCreateRoutine  Operation = "createRoutine"
	OpUpdateRoutine  Operation = "updateRoutine"
	OpDeleteRoutine  Operation = "deleteRoutine"
	OpRenewRoutine   Operation = "renewRoutine"
	OpExportRoutine  Operation = "exportRoutine"
	OpImportRoutine  Operation = "importRoutine"
	OpReadRoutine    Operation = "readRoutine"
	OpMarkAttendance Operation = "markAttendance"
	OpManageProfiles Operation = "manageProfiles"
)

type Caller struct {
	UserID string
	Role   profile.Role
	Client string
}

func (c Caller) Actor() domain.Actor {
	return domain.Actor{UserID: c.UserID, Role: string(c.Role), Client: c.Client}
}

func (c Caller) IsAdministrator() bool {
	return c.Role == profile.RoleAdministrator
}

type denial int

const (
	allowed denial = iota
	deniedByRole
	deniedByOwnership
)

type Decision struct {
	Allowed bool
	Reason  string
	denial  denial
}

// Err hides ownership denials behind routine.ErrNotFoundOrForbidden so a
// foreign routine looks the same as a missing one.
func (d Decision) Err() error {
	switch d.denial {
	case deniedByRole:
		return fmt.Errorf("%w: %s", routine.ErrForbidden, d.Reason)
	case deniedByOwnership:
		return routine.ErrNotFoundOrForbidden
	default:
		return nil
	}
}

var roles = map[Operation][]profile.Role{
	OpCreateRoutine:  {profile.RoleTrainer, profile.RoleAdministrator},
	OpUpdateRoutine:  {profile.RoleTrainer, profile.RoleAdministrator},
	OpDeleteRoutine:  {profile.RoleTrainer, profile.RoleAdministrator},
	OpRenewRoutine:   {profile.RoleTrainer, profile.RoleAdministrator},
	OpExportRoutine:  {profile.RoleTrainer, profile.RoleAdministrator},
	OpImportRoutine:  {profile.RoleTrainer, profile.RoleAdministrator},
	OpReadRoutine:    {profile.RoleAthlete, profile.RoleTrainer, profile.RoleAdministrator},
	OpMarkAttendance: {profile.RoleAthlete},
	OpManageProfiles: {profile.RoleAdministrator},
}

var owned = map[Operation]bool{
	OpUpdateRoutine:  true,
	OpDeleteRoutine:  true,
	OpRenewRoutine:   true,
	OpExportRoutine:  true,
	OpReadRoutine:    true,
	OpMarkAttendance: true,
}

func CheckRole(caller Caller, op Operation) Decision {
	if caller.UserID == "" {
		return Decision{Reason: "not authenticated", denial: deniedByRole}
	}
	for _, r := range roles[op] {
		if r == caller.Role {
			return Decision{Allowed: true}
		}
	}
	return Decision{
		Reason: fmt.Sprintf("role %q may not perform %s", caller.Role, op),
		denial: deniedByRole,
	}
}

func Authorize(caller Caller, op Operation, target *routine.Routine) Decision {
	if d := CheckRole(caller, op); !d.Allowed {
		return d
	}
	if !owned[op] {
		return Decision{Allowed: true}
	}
	if target == nil {
		return Decision{Reason: "routine not found", denial: deniedByOwnership}
	}
	if caller.IsAdministrator() {
		return Decision{Allowed: true}
	}

	switch caller.Role {
	case profile.RoleTrainer:
		if target.TrainerID == routine.TrainerID(caller.UserID) {
			return Decision{Allowed: true}
		}
	case profile.RoleAthlete:
		if target.IsAssigned(routine.AthleteID(caller.UserID)) {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: "routine not found or not yours", denial: deniedByOwnership}
}

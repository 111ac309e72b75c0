package routineapp

import (
	"context"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
)

func SyncAssignments(
	ctx context.Context,
	links AssignmentStorage,
	routineID routine.RoutineID,
	desired []routine.AthleteID,
) ([]routine.AthleteID, error) {
	desired = routine.DistinctAthletes(desired)

	if _, err := links.DeleteByRoutine(ctx, routineID); err != nil {
		return nil, err
	}
	if err := links.Add(ctx, routineID, desired); err != nil {
		return nil, err
	}
	return links.ListByRoutine(ctx, routineID)
}

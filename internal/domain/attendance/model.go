package attendance

import (
	"errors"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"time"
)

var (
	ErrAttendanceNotFound = errors.New("attendance not found")
)

const EventMarked = "attendance.marked"

type Attendance struct {
	domain.Aggregate
	AttendanceID string
	RoutineID    string
	AthleteID    string
	Completed    bool
	CompletedAt  *time.Time
}

func New(attendanceID, routineID, athleteID string) *Attendance {
	return &Attendance{
		AttendanceID: attendanceID,
		RoutineID:    routineID,
		AthleteID:    athleteID,
	}
}

func (a *Attendance) Mark(completed bool, now time.Time, actor domain.Actor) {
	a.Completed = completed
	if completed {
		at := now.UTC()
		a.CompletedAt = &at
	} else {
		a.CompletedAt = nil
	}
	a.PushEvent(MarkedEvent{
		At:        now.UTC(),
		RoutineID: a.RoutineID,
		AthleteID: a.AthleteID,
		Completed: completed,
		Actor:     actor,
	})
}

type MarkedEvent struct {
	At        time.Time
	RoutineID string
	AthleteID string
	Completed bool
	Actor     domain.Actor
}

func (e MarkedEvent) Type() string           { return EventMarked }
func (e MarkedEvent) PublishedAt() time.Time { return e.At }

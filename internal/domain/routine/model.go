package routine

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/samber/lo"
	"slices"
	"strings"
	"time"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFoundOrForbidden = errors.New("routine not found or not accessible")
	ErrRoutineNotFound     = errors.New("routine not found")
	ErrRoutineExists       = errors.New("routine already exists")
	ErrUnknownAthlete      = fmt.Errorf("%w: unknown athlete", ErrValidation)
	ErrUnknownTrainer      = fmt.Errorf("%w: unknown trainer", ErrValidation)
)

const (
	EventCreated  = "routine.created"
	EventUpdated  = "routine.updated"
	EventRenewed  = "routine.renewed"
	EventDeleted  = "routine.deleted"
	EventAssigned = "routine.assigned"
)

type RoutineID string
type TrainerID string
type AthleteID string

type Exercise struct {
	Name     string `json:"name"`
	Sets     string `json:"sets"`
	Reps     string `json:"reps"`
	Weight   string `json:"weight"`
	Duration string `json:"duration"`
	Notes    string `json:"notes"`
}

type Exercises []Exercise

func FilterExercises(in []Exercise) Exercises {
	return lo.Filter(in, func(e Exercise, _ int) bool {
		return strings.TrimSpace(e.Name) != ""
	})
}

func (e Exercises) Value() (driver.Value, error) {
	if e == nil {
		e = Exercises{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *Exercises) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = Exercises{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into routine.Exercises", src)
	}
	out := Exercises{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*e = out
	return nil
}

func DistinctAthletes(ids []AthleteID) []AthleteID {
	return lo.Uniq(lo.Filter(ids, func(id AthleteID, _ int) bool {
		return strings.TrimSpace(string(id)) != ""
	}))
}

type Routine struct {
	domain.Aggregate `diff:"-"`
	RoutineID        RoutineID   `diff:"-"`
	Title            string      `diff:"title"`
	Description      string      `diff:"description"`
	TrainerID        TrainerID   `diff:"trainer_id"`
	StartDate        *Date       `diff:"start_date"`
	EndDate          *Date       `diff:"end_date"`
	Exercises        Exercises   `diff:"-"`
	AthleteIDs       []AthleteID `diff:"-"`
	CreatedAt        time.Time   `diff:"-"`
	UpdatedAt        time.Time   `diff:"updated_at"`
}

func New(
	routineID RoutineID,
	trainerID TrainerID,
	title string,
	description string,
	startDate *Date,
	endDate *Date,
	exercises []Exercise,
	athleteIDs []AthleteID,
	actor domain.Actor,
) (*Routine, error) {
	athleteIDs = DistinctAthletes(athleteIDs)
	if len(athleteIDs) == 0 {
		return nil, validationErr("at least one athlete must be assigned")
	}
	if startDate == nil || endDate == nil {
		return nil, validationErr("start and end dates are required")
	}
	if err := checkTitle(title); err != nil {
		return nil, err
	}
	if err := checkDates(startDate, endDate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &Routine{
		RoutineID:   routineID,
		Title:       strings.TrimSpace(title),
		Description: description,
		TrainerID:   trainerID,
		StartDate:   startDate,
		EndDate:     endDate,
		Exercises:   FilterExercises(exercises),
		AthleteIDs:  athleteIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.PushEvent(CreatedEvent{
		At:         now,
		RoutineID:  r.RoutineID,
		TrainerID:  r.TrainerID,
		AthleteIDs: slices.Clone(r.AthleteIDs),
		Actor:      actor,
	})
	return r, nil
}

type Changes struct {
	Title       string
	Description string
	Exercises   []Exercise
	StartDate   *Date
	EndDate     *Date
	TrainerID   *TrainerID
}

func (r *Routine) Update(c Changes, actor domain.Actor) error {
	if err := checkTitle(c.Title); err != nil {
		return err
	}

	start, end := r.StartDate, r.EndDate
	if c.StartDate != nil {
		start = c.StartDate
	}
	if c.EndDate != nil {
		end = c.EndDate
	}
	if err := checkDates(start, end); err != nil {
		return err
	}

	r.Title = strings.TrimSpace(c.Title)
	r.Description = c.Description
	r.Exercises = FilterExercises(c.Exercises)
	r.StartDate, r.EndDate = start, end
	if c.TrainerID != nil {
		r.TrainerID = *c.TrainerID
	}
	r.UpdatedAt = time.Now().UTC()

	r.PushEvent(UpdatedEvent{
		At:        r.UpdatedAt,
		RoutineID: r.RoutineID,
		TrainerID: r.TrainerID,
		Actor:     actor,
	})
	return nil
}

// Empty is allowed here, the one athlete minimum only holds on creation.
func (r *Routine) Assign(athleteIDs []AthleteID, actor domain.Actor) {
	r.AthleteIDs = DistinctAthletes(athleteIDs)
	r.PushEvent(AssignedEvent{
		At:         time.Now().UTC(),
		RoutineID:  r.RoutineID,
		AthleteIDs: slices.Clone(r.AthleteIDs),
		Actor:      actor,
	})
}

func (r *Routine) Renew(newEnd Date, actor domain.Actor) error {
	if err := checkDates(r.StartDate, &newEnd); err != nil {
		return err
	}

	var previous *Date
	if r.EndDate != nil {
		prev := *r.EndDate
		previous = &prev
	}
	r.EndDate = &newEnd
	r.UpdatedAt = time.Now().UTC()

	r.PushEvent(RenewedEvent{
		At:          r.UpdatedAt,
		RoutineID:   r.RoutineID,
		PreviousEnd: previous,
		NewEnd:      newEnd,
		Actor:       actor,
	})
	return nil
}

func (r *Routine) Delete(actor domain.Actor) {
	r.PushEvent(DeletedEvent{
		At:        time.Now().UTC(),
		RoutineID: r.RoutineID,
		TrainerID: r.TrainerID,
		Actor:     actor,
	})
}

func (r *Routine) IsAssigned(athleteID AthleteID) bool {
	return slices.Contains(r.AthleteIDs, athleteID)
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return validationErr("title must not be empty")
	}
	return nil
}

func checkDates(start, end *Date) error {
	if start != nil && end != nil && end.Before(*start) {
		return validationErr("start date %s is after end date %s", *start, *end)
	}
	return nil
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type CreatedEvent struct {
	At         time.Time
	RoutineID  RoutineID
	TrainerID  TrainerID
	AthleteIDs []AthleteID
	Actor      domain.Actor
}

func (e CreatedEvent) Type() string           { return EventCreated }
func (e CreatedEvent) PublishedAt() time.Time { return e.At }

type UpdatedEvent struct {
	At        time.Time
	RoutineID RoutineID
	TrainerID TrainerID
	Actor     domain.Actor
}

func (e UpdatedEvent) Type() string           { return EventUpdated }
func (e UpdatedEvent) PublishedAt() time.Time { return e.At }

type AssignedEvent struct {
	At         time.Time
	RoutineID  RoutineID
	AthleteIDs []AthleteID
	Actor      domain.Actor
}

func (e AssignedEvent) Type() string           { return EventAssigned }
func (e AssignedEvent) PublishedAt() time.Time { return e.At }

type RenewedEvent struct {
	At          time.Time
	RoutineID   RoutineID
	PreviousEnd *Date
	NewEnd      Date
	Actor       domain.Actor
}

func (e RenewedEvent) Type() string           { return EventRenewed }
func (e RenewedEvent) PublishedAt() time.Time { return e.At }

type DeletedEvent struct {
	At        time.Time
	RoutineID RoutineID
	TrainerID TrainerID
	Actor     domain.Actor
}

func (e DeletedEvent) Type() string           { return EventDeleted }
func (e DeletedEvent) PublishedAt() time.Time { return e.At }

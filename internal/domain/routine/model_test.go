package routine

import (
	"errors"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func datePtr(s string) *Date {
	d := Date(s)
	return &d
}

var trainer = domain.Actor{UserID: "trainer-1", Role: "trainer"}

func TestNewRejectsEmptyAthleteSet(t *testing.T) {
	_, err := New("r1", "trainer-1", "Legs", "", datePtr("2024-01-01"), datePtr("2024-02-01"), nil, nil, trainer)
	require.ErrorIs(t, err, ErrValidation)

	_, err = New("r1", "trainer-1", "Legs", "", datePtr("2024-01-01"), datePtr("2024-02-01"), nil, []AthleteID{"", " "}, trainer)
	require.ErrorIs(t, err, ErrValidation)
}

func TestNewDropsBlankExercises(t *testing.T) {
	r, err := New(
		"r1", "trainer-1", "Legs", "",
		datePtr("2024-01-01"), datePtr("2024-02-01"),
		[]Exercise{{Name: ""}, {Name: "Squats", Sets: "3"}, {Name: "   "}},
		[]AthleteID{"a1"},
		trainer,
	)
	require.NoError(t, err)
	assert.Equal(t, Exercises{{Name: "Squats", Sets: "3"}}, r.Exercises)
}

func TestNewCollapsesDuplicateAthletes(t *testing.T) {
	r, err := New("r1", "trainer-1", "Legs", "", datePtr("2024-01-01"), datePtr("2024-01-01"), nil,
		[]AthleteID{"a1", "a2", "a1"}, trainer)
	require.NoError(t, err)
	assert.Equal(t, []AthleteID{"a1", "a2"}, r.AthleteIDs)

	events := r.PopEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventCreated, events[0].Type())
}

func TestDateOrder(t *testing.T) {
	tests := []struct {
		name    string
		start   *Date
		end     *Date
		wantErr bool
	}{
		{name: "ordered", start: datePtr("2024-01-01"), end: datePtr("2024-03-01")},
		{name: "same day", start: datePtr("2024-01-01"), end: datePtr("2024-01-01")},
		{name: "reversed", start: datePtr("2024-03-01"), end: datePtr("2024-01-01"), wantErr: true},
		{name: "missing start", start: nil, end: datePtr("2024-01-01"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("r1", "t", "Legs", "", tt.start, tt.end, nil, []AthleteID{"a1"}, trainer)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateChecksResultingDatePair(t *testing.T) {
	r, err := New("r1", "t", "Legs", "", datePtr("2024-01-10"), datePtr("2024-02-10"), nil, []AthleteID{"a1"}, trainer)
	require.NoError(t, err)

	err = r.Update(Changes{Title: "Legs", EndDate: datePtr("2024-01-01")}, trainer)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, Date("2024-02-10"), *r.EndDate, "failed update must not change the routine")

	err = r.Update(Changes{
		Title:     "Legs v2",
		StartDate: datePtr("2024-01-05"),
		Exercises: []Exercise{{Name: "Lunges"}, {Name: ""}},
	}, trainer)
	require.NoError(t, err)
	assert.Equal(t, "Legs v2", r.Title)
	assert.Equal(t, Date("2024-01-05"), *r.StartDate)
	assert.Equal(t, Date("2024-02-10"), *r.EndDate)
	assert.Equal(t, Exercises{{Name: "Lunges"}}, r.Exercises)
}

func TestUpdateRejectsBlankTitle(t *testing.T) {
	r, err := New("r1", "t", "Legs", "", datePtr("2024-01-10"), datePtr("2024-02-10"), nil, []AthleteID{"a1"}, trainer)
	require.NoError(t, err)
	require.ErrorIs(t, r.Update(Changes{Title: "  "}, trainer), ErrValidation)
}

func TestAssignAllowsEmptySet(t *testing.T) {
	r, err := New("r1", "t", "Legs", "", datePtr("2024-01-10"), datePtr("2024-02-10"), nil, []AthleteID{"a1"}, trainer)
	require.NoError(t, err)
	r.Assign(nil, trainer)
	assert.Empty(t, r.AthleteIDs)
	assert.False(t, r.IsAssigned("a1"))
}

func TestRenewOnlyTouchesEndDate(t *testing.T) {
	r, err := New("r1", "t", "Legs", "desc", datePtr("2024-01-10"), datePtr("2024-02-10"),
		[]Exercise{{Name: "Squats"}}, []AthleteID{"a1"}, trainer)
	require.NoError(t, err)
	r.PopEvents()

	require.NoError(t, r.Renew("2024-05-10", trainer))
	assert.Equal(t, Date("2024-05-10"), *r.EndDate)
	assert.Equal(t, Date("2024-01-10"), *r.StartDate)
	assert.Equal(t, "Legs", r.Title)
	assert.Equal(t, "desc", r.Description)

	events := r.PopEvents()
	require.Len(t, events, 1)
	renewed := events[0].(RenewedEvent)
	assert.Equal(t, Date("2024-02-10"), *renewed.PreviousEnd)

	require.ErrorIs(t, r.Renew("2023-12-31", trainer), ErrValidation)
}

func TestExercisesScan(t *testing.T) {
	var e Exercises
	require.NoError(t, e.Scan(`[{"name":"Squats","sets":"3"}]`))
	assert.Equal(t, Exercises{{Name: "Squats", Sets: "3"}}, e)

	require.NoError(t, e.Scan(nil))
	assert.Empty(t, e)

	v, err := Exercises(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestExerciseKeepsBlankFields(t *testing.T) {
	v, err := Exercises{{Name: "Plank", Duration: "60s"}}.Value()
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Plank","sets":"","reps":"","weight":"","duration":"60s","notes":""}]`, v)
}

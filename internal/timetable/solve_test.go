package timetable_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/mip"
	"github.com/noah-isme/sma-timetable-api/pkg/mip/pbsolver"
)

func solver() mip.Solver {
	return pbsolver.New(pbsolver.WithTimeLimit(30 * time.Second))
}

func solve(t *testing.T, g timetable.Grid, prefs []timetable.Preference, fixed []timetable.HardConstraint) (*timetable.Model, *timetable.Schedule) {
	t.Helper()
	m, err := timetable.BuildModel(g)
	require.NoError(t, err)
	require.NoError(t, m.SetPreferences(prefs))
	require.NoError(t, m.AddHardConstraints(fixed))
	require.NoError(t, m.Solve(context.Background(), solver()))
	sched, err := m.Schedule()
	require.NoError(t, err)
	assert.Empty(t, m.MIP().Violations(m.Solution().Values()))
	return m, sched
}

// assertWellFormed checks the structural properties every solved timetable must have.
func assertWellFormed(t *testing.T, g timetable.Grid, s *timetable.Schedule) {
	t.Helper()
	require.Equal(t, g.Days, s.Days)
	require.Equal(t, g.Hours, s.Hours)
	require.Len(t, s.Cells, len(g.Hours))

	for _, subject := range g.Subjects {
		total := 0
		for _, day := range g.Days {
			n := s.HoursOn(subject, day)
			total += n
			assert.LessOrEqual(t, n, g.MaxHoursPerDay, "%s on %s", subject, day)
			if n > 0 {
				assertContiguous(t, g, s, subject, day)
			}
		}
		assert.Equal(t, g.HoursPerSubject[subject], total, "weekly hours of %s", subject)

		used := len(s.DaysUsed(subject))
		assert.GreaterOrEqual(t, used, g.MinDays(subject))
		assert.LessOrEqual(t, used, g.MaxDays(subject))
	}
}

func assertContiguous(t *testing.T, g timetable.Grid, s *timetable.Schedule, subject, day string) {
	t.Helper()
	first, last, count := -1, -1, 0
	for h, hour := range g.Hours {
		if s.Subject(day, hour) == subject {
			if first < 0 {
				first = h
			}
			last = h
			count++
		}
	}
	if g.MaxHoursPerDay < len(g.Hours) {
		assert.Equal(t, last-first+1, count, "%s on %s is not one block", subject, day)
	}
}

func TestSingleSubjectFitsOneDay(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue", "wed", "thu", "fri"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 2},
		MaxHoursPerDay:  2,
	}
	m, s := solve(t, g, nil, nil)
	assertWellFormed(t, g, s)

	days := s.DaysUsed("math")
	require.Len(t, days, 1)
	assert.Equal(t, 2, s.HoursOn("math", days[0]))
	assert.Equal(t, 0, m.Stats().ExtraDays)
	assert.Equal(t, "optimal", m.Stats().Status)
}

func TestSeveralSubjectsAreWellFormed(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue", "wed"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math", "bio", "art"},
		HoursPerSubject: map[string]int{"math": 3, "bio": 2, "art": 2},
		MaxHoursPerDay:  2,
	}
	m, s := solve(t, g, nil, nil)
	assertWellFormed(t, g, s)

	seen := map[string]int{}
	for _, sl := range s.Slots() {
		seen[sl.Day+"/"+sl.Hour]++
	}
	for slot, n := range seen {
		assert.Equal(t, 1, n, slot)
	}
	// math needs two days, bio and art one each
	assert.Equal(t, 0, m.Stats().ExtraDays)
}

func TestPinnedAndForbiddenSlots(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue", "wed"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math", "bio"},
		HoursPerSubject: map[string]int{"math": 2, "bio": 2},
		MaxHoursPerDay:  2,
	}
	fixed := []timetable.HardConstraint{
		{Day: "tue", Hour: "h3", Subject: "math", Flag: 1},
		{Day: "mon", Hour: "h1", Subject: "bio", Flag: 0},
		{Day: "mon", Hour: "h2", Subject: "bio", Flag: 7},
	}
	prefs := []timetable.Preference{
		{Day: "mon", Hour: "h1", Subject: "bio", Weight: 4},
		{Day: "mon", Hour: "h2", Subject: "bio", Weight: 4},
	}
	_, s := solve(t, g, prefs, fixed)
	assertWellFormed(t, g, s)

	assert.Equal(t, "math", s.Subject("tue", "h3"))
	assert.NotEqual(t, "bio", s.Subject("mon", "h1"))
	assert.NotEqual(t, "bio", s.Subject("mon", "h2"))
}

func TestCompactnessBeatsPreference(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue", "wed"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 2},
		MaxHoursPerDay:  2,
	}
	prefs := []timetable.Preference{
		{Day: "mon", Hour: "h1", Subject: "math", Weight: 4},
		{Day: "wed", Hour: "h4", Subject: "math", Weight: 3},
	}
	m, s := solve(t, g, prefs, nil)
	assertWellFormed(t, g, s)

	want := [][]string{
		{"math", "", ""},
		{"math", "", ""},
		{"", "", ""},
		{"", "", ""},
	}
	if diff := cmp.Diff(want, s.Cells); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, m.Stats().ExtraDays)
	assert.InDelta(t, -5.0, m.Stats().Objective, 1e-9)
}

func TestPreferenceBreaksTies(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue", "wed"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 2},
		MaxHoursPerDay:  2,
	}
	prefs := []timetable.Preference{
		{Day: "wed", Hour: "h3", Subject: "math", Weight: 2},
		{Day: "wed", Hour: "h4", Subject: "math", Weight: 2},
	}
	_, s := solve(t, g, prefs, nil)
	assert.Equal(t, []string{"wed"}, s.DaysUsed("math"))
	assert.Equal(t, "math", s.Subject("wed", "h3"))
	assert.Equal(t, "math", s.Subject("wed", "h4"))
}

func TestHoursBeyondCapacityAreInfeasible(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue"},
		Hours:           []string{"h1", "h2", "h3"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 5},
		MaxHoursPerDay:  2,
	}
	m, err := timetable.BuildModel(g)
	require.NoError(t, err)
	err = m.Solve(context.Background(), solver())
	require.ErrorIs(t, err, timetable.ErrInfeasible)

	_, err = m.Schedule()
	require.ErrorIs(t, err, timetable.ErrNotSolved)
}

func TestConflictingPinsAreInfeasible(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue"},
		Hours:           []string{"h1", "h2", "h3"},
		Subjects:        []string{"math", "bio"},
		HoursPerSubject: map[string]int{"math": 1, "bio": 1},
		MaxHoursPerDay:  2,
	}
	m, err := timetable.BuildModel(g)
	require.NoError(t, err)
	require.NoError(t, m.AddHardConstraints([]timetable.HardConstraint{
		{Day: "mon", Hour: "h1", Subject: "math", Flag: 1},
		{Day: "mon", Hour: "h1", Subject: "bio", Flag: 1},
	}))
	require.ErrorIs(t, m.Solve(context.Background(), solver()), timetable.ErrInfeasible)
}

func TestPinsMustFormOneBlock(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon", "tue"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 2},
		MaxHoursPerDay:  3,
	}
	cases := []struct {
		name     string
		hours    [2]string
		feasible bool
	}{
		{"gap in the middle", [2]string{"h1", "h3"}, false},
		{"first and last hour do not wrap", [2]string{"h1", "h4"}, false},
		{"adjacent hours", [2]string{"h2", "h3"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := timetable.BuildModel(g)
			require.NoError(t, err)
			require.NoError(t, m.AddHardConstraints([]timetable.HardConstraint{
				{Day: "mon", Hour: tc.hours[0], Subject: "math", Flag: 1},
				{Day: "mon", Hour: tc.hours[1], Subject: "math", Flag: 1},
			}))
			err = m.Solve(context.Background(), solver())
			if !tc.feasible {
				require.ErrorIs(t, err, timetable.ErrInfeasible)
				return
			}
			require.NoError(t, err)
			s, err := m.Schedule()
			require.NoError(t, err)
			assertWellFormed(t, g, s)
			assert.Equal(t, []string{"mon"}, s.DaysUsed("math"))
			assert.Equal(t, "math", s.Subject("mon", tc.hours[0]))
			assert.Equal(t, "math", s.Subject("mon", tc.hours[1]))
		})
	}
}

type failingSolver struct{ err error }

func (f failingSolver) Solve(context.Context, *mip.Model) (*mip.Solution, error) {
	return nil, f.err
}

func TestSolverErrorsAreDistinctFromInfeasibility(t *testing.T) {
	m, err := timetable.BuildModel(timetable.Grid{
		Days:            []string{"mon"},
		Hours:           []string{"h1"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 1},
		MaxHoursPerDay:  1,
	})
	require.NoError(t, err)

	err = m.Solve(context.Background(), failingSolver{err: mip.ErrSolverTimeout})
	require.ErrorIs(t, err, timetable.ErrSolver)
	assert.True(t, timetable.IsTimeout(err))
	assert.False(t, errors.Is(err, timetable.ErrInfeasible))

	err = m.Solve(context.Background(), failingSolver{err: errors.New("boom")})
	require.ErrorIs(t, err, timetable.ErrSolver)
	assert.False(t, timetable.IsTimeout(err))
}

func TestSolvedModelIsFrozen(t *testing.T) {
	g := timetable.Grid{
		Days:            []string{"mon"},
		Hours:           []string{"h1", "h2"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 1},
		MaxHoursPerDay:  1,
	}
	m, _ := solve(t, g, nil, nil)
	require.ErrorIs(t, m.Solve(context.Background(), solver()), timetable.ErrAlreadySolved)
	require.ErrorIs(t, m.SetPreferences(nil), timetable.ErrAlreadySolved)
	require.ErrorIs(t, m.AddHardConstraints(nil), timetable.ErrAlreadySolved)
}

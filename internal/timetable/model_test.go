package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekGrid() Grid {
	return Grid{
		Days:            []string{"mon", "tue", "wed", "thu", "fri"},
		Hours:           []string{"h1", "h2", "h3", "h4"},
		Subjects:        []string{"math"},
		HoursPerSubject: map[string]int{"math": 2},
		MaxHoursPerDay:  2,
	}
}

func TestGridValidate(t *testing.T) {
	cases := map[string]func(g *Grid){
		"no days":          func(g *Grid) { g.Days = nil },
		"duplicate hour":   func(g *Grid) { g.Hours = []string{"h1", "h1"} },
		"empty subject id": func(g *Grid) { g.Subjects = []string{""} },
		"zero cap":         func(g *Grid) { g.MaxHoursPerDay = 0 },
		"cap above hours":  func(g *Grid) { g.MaxHoursPerDay = 5 },
		"missing quota":    func(g *Grid) { g.HoursPerSubject = map[string]int{"art": 2} },
		"extra quota":      func(g *Grid) { g.HoursPerSubject["art"] = 1 },
		"negative hours":   func(g *Grid) { g.HoursPerSubject["math"] = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			g := weekGrid()
			mutate(&g)
			_, err := BuildModel(g)
			require.ErrorIs(t, err, ErrInvalidGrid)
		})
	}

	require.NoError(t, weekGrid().Validate())
}

func TestGridCheckSlot(t *testing.T) {
	g := weekGrid()
	require.NoError(t, g.CheckSlot("wed", "h4", "math"))
	assert.ErrorIs(t, g.CheckSlot("sat", "h1", "math"), ErrUnknownSlot)
	assert.ErrorIs(t, g.CheckSlot("mon", "h5", "math"), ErrUnknownSlot)
	assert.ErrorIs(t, g.CheckSlot("mon", "h1", "art"), ErrUnknownSlot)
}

func TestDayBounds(t *testing.T) {
	g := Grid{
		Days:            []string{"mon"},
		Hours:           []string{"h1", "h2"},
		Subjects:        []string{"a", "b", "c", "d"},
		HoursPerSubject: map[string]int{"a": 1, "b": 3, "c": 5, "d": 0},
		MaxHoursPerDay:  2,
	}
	// Half values round to even.
	assert.Equal(t, 0, g.MinDays("a"))
	assert.Equal(t, 2, g.MinDays("b"))
	assert.Equal(t, 2, g.MinDays("c"))
	assert.Equal(t, 0, g.MinDays("d"))
	// The day cap is the raw hour count, not hours/cap.
	assert.Equal(t, 5, g.MaxDays("c"))
}

func TestBuildModelGeneratesEveryGroup(t *testing.T) {
	m, err := BuildModel(weekGrid())
	require.NoError(t, err)

	st := m.Stats()
	nd, nh, ns := 5, 4, 1
	assert.Equal(t, nd*nh*ns*3+nd*ns+1, st.Variables)
	assert.Equal(t, []string{
		GroupSingleOccupancy,
		GroupWeeklyCoverage,
		GroupDailyCap,
		GroupDayUsedLink,
		GroupDayCountBounds,
		GroupCumulativeHours,
		GroupContiguousBlocks,
		GroupExtraDays,
	}, m.MIP().Groups())

	assert.Equal(t, nd*nh, st.Groups[GroupSingleOccupancy])
	assert.Equal(t, 2*ns, st.Groups[GroupWeeklyCoverage])
	assert.Equal(t, nd*ns, st.Groups[GroupDailyCap])
	assert.Equal(t, nd*ns, st.Groups[GroupDayUsedLink])
	assert.Equal(t, 2*ns, st.Groups[GroupDayCountBounds])
	assert.Equal(t, nd*ns*(1+2*(nh-1)), st.Groups[GroupCumulativeHours])
	// two switch bounds per hour, one edge count and one wrap exclusion per day
	assert.Equal(t, nd*ns*(2*nh+2), st.Groups[GroupContiguousBlocks])
	assert.Equal(t, 1, st.Groups[GroupExtraDays])
	assert.Equal(t, "not_solved", st.Status)
}

func TestWrapExclusionOnlyWhenDayCannotBeFilled(t *testing.T) {
	g := weekGrid()
	g.MaxHoursPerDay = len(g.Hours)
	m, err := BuildModel(g)
	require.NoError(t, err)
	assert.Equal(t, 5*(2*4+1), m.Stats().Groups[GroupContiguousBlocks])
}

func TestObjectiveCoefficients(t *testing.T) {
	m, err := BuildModel(weekGrid(), WithCompactnessPenalty(8))
	require.NoError(t, err)

	assert.Equal(t, 8.0, m.Penalty())
	assert.Equal(t, 8.0, m.MIP().ObjectiveCoefficient(m.extraDays))
	assert.Equal(t, -1.0, m.MIP().ObjectiveCoefficient(m.assignment[0][0][0]))

	m2, err := BuildModel(weekGrid(), WithCompactnessPenalty(-1))
	require.NoError(t, err)
	assert.Equal(t, DefaultCompactnessPenalty, m2.Penalty())
}

func TestSetPreferencesLastWriteWins(t *testing.T) {
	m, err := BuildModel(weekGrid())
	require.NoError(t, err)

	entries := []Preference{
		{Day: "mon", Hour: "h1", Subject: "math", Weight: 3},
		{Day: "mon", Hour: "h1", Subject: "math", Weight: -2.5},
	}
	require.NoError(t, m.SetPreferences(entries))
	require.NoError(t, m.SetPreferences(entries))

	w, err := m.Preference("mon", "h1", "math")
	require.NoError(t, err)
	assert.Equal(t, -2.5, w)
	assert.Equal(t, 2.5, m.MIP().ObjectiveCoefficient(m.assignment[0][0][0]))

	untouched, err := m.Preference("tue", "h2", "math")
	require.NoError(t, err)
	assert.Equal(t, DefaultPreference, untouched)
}

func TestSetPreferencesRejectsWholeBatch(t *testing.T) {
	m, err := BuildModel(weekGrid())
	require.NoError(t, err)

	err = m.SetPreferences([]Preference{
		{Day: "mon", Hour: "h1", Subject: "math", Weight: 9},
		{Day: "sun", Hour: "h1", Subject: "math", Weight: 9},
	})
	require.ErrorIs(t, err, ErrUnknownSlot)

	w, err := m.Preference("mon", "h1", "math")
	require.NoError(t, err)
	assert.Equal(t, DefaultPreference, w)

	_, err = m.Preference("mon", "h9", "math")
	require.ErrorIs(t, err, ErrUnknownSlot)
}

func TestAddHardConstraints(t *testing.T) {
	m, err := BuildModel(weekGrid())
	require.NoError(t, err)
	before := m.MIP().NumConstraints()

	require.NoError(t, m.AddHardConstraints([]HardConstraint{
		{Day: "mon", Hour: "h1", Subject: "math", Flag: 1},
		{Day: "tue", Hour: "h1", Subject: "math", Flag: 0},
		{Day: "wed", Hour: "h1", Subject: "math", Flag: -3},
	}))

	fixed := m.MIP().Constraints(GroupFixedSlots)
	require.Len(t, fixed, 3)
	assert.Equal(t, "==", fixed[0].Sense.String())
	assert.Equal(t, 1.0, fixed[0].RHS)
	assert.Equal(t, "<=", fixed[1].Sense.String())
	assert.Equal(t, 0.0, fixed[2].RHS)
	assert.Equal(t, before+3, m.MIP().NumConstraints())
	assert.Equal(t, 1, m.Stats().PinnedSlots)
	assert.Equal(t, 2, m.Stats().ForbiddenSlots)

	err = m.AddHardConstraints([]HardConstraint{
		{Day: "thu", Hour: "h1", Subject: "math", Flag: 1},
		{Day: "thu", Hour: "h1", Subject: "art", Flag: 1},
	})
	require.ErrorIs(t, err, ErrUnknownSlot)
	assert.Len(t, m.MIP().Constraints(GroupFixedSlots), 3)
}

func TestScheduleBeforeSolve(t *testing.T) {
	m, err := BuildModel(weekGrid())
	require.NoError(t, err)
	_, err = m.Schedule()
	require.ErrorIs(t, err, ErrNotSolved)
	assert.False(t, m.Solved())
	assert.Nil(t, m.Solution())
}

func TestGridIsCopied(t *testing.T) {
	g := weekGrid()
	m, err := BuildModel(g)
	require.NoError(t, err)
	g.Days[0] = "sun"
	g.HoursPerSubject["math"] = 4
	assert.Equal(t, "mon", m.Grid().Days[0])
	assert.Equal(t, 2, m.Grid().HoursPerSubject["math"])
}

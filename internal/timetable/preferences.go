package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

// Preference biases the objective toward placing Subject at (Day, Hour).
type Preference struct {
	Day     string
	Hour    string
	Subject string
	Weight  float64
}

// HardConstraint pins (Flag == 1) or forbids (any other flag) Subject at (Day, Hour).
type HardConstraint struct {
	Day     string
	Hour    string
	Subject string
	Flag    int
}

// Pins reports whether the entry forces the assignment.
func (c HardConstraint) Pins() bool {
	return c.Flag == 1
}

type slot struct{ d, h, s int }

func (m *Model) lookup(day, hour, subject string) (slot, error) {
	d, okDay := m.dayIdx[day]
	h, okHour := m.hourIdx[hour]
	s, okSubject := m.subjectIdx[subject]
	if !okDay || !okHour || !okSubject {
		return slot{}, fmt.Errorf("%w: (%s, %s, %s)", ErrUnknownSlot, day, hour, subject)
	}
	return slot{d: d, h: h, s: s}, nil
}

// SetPreferences overwrites preference weights. Entries are validated before any is applied, so an
// out-of-domain entry leaves the model unchanged. Later entries for the same slot win.
func (m *Model) SetPreferences(entries []Preference) error {
	if m.solution != nil {
		return ErrAlreadySolved
	}
	slots := make([]slot, len(entries))
	for i, p := range entries {
		sl, err := m.lookup(p.Day, p.Hour, p.Subject)
		if err != nil {
			return fmt.Errorf("preference %d: %w", i, err)
		}
		slots[i] = sl
	}
	for i, sl := range slots {
		w := entries[i].Weight
		m.preference[sl.d][sl.h][sl.s] = w
		m.mip.SetObjectiveCoefficient(m.assignment[sl.d][sl.h][sl.s], -w)
	}
	return nil
}

// Preference returns the current weight of a slot.
func (m *Model) Preference(day, hour, subject string) (float64, error) {
	sl, err := m.lookup(day, hour, subject)
	if err != nil {
		return 0, err
	}
	return m.preference[sl.d][sl.h][sl.s], nil
}

// AddHardConstraints appends pin and exclusion rules to the fixed_slots group. The batch is
// validated first. Rules are never removed and contradictions surface as infeasibility.
func (m *Model) AddHardConstraints(entries []HardConstraint) error {
	if m.solution != nil {
		return ErrAlreadySolved
	}
	slots := make([]slot, len(entries))
	for i, c := range entries {
		sl, err := m.lookup(c.Day, c.Hour, c.Subject)
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		slots[i] = sl
	}
	for i, sl := range slots {
		c := entries[i]
		x := m.assignment[sl.d][sl.h][sl.s]
		name := c.Day + "," + c.Hour + "," + c.Subject
		if c.Pins() {
			m.mip.AddEquality(GroupFixedSlots, name+":pin", mip.NewLinearExpr().AddTerm(x, 1), 1)
			m.pinned++
			continue
		}
		m.mip.AddLessOrEqual(GroupFixedSlots, name+":forbid", mip.NewLinearExpr().AddTerm(x, 1), 0)
		m.forbidden++
	}
	return nil
}

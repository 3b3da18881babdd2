package timetable

import (
	"fmt"
	"math"
	"slices"
)

// Grid is the scheduling universe: ordered days and hours, subjects with weekly hour quotas and a
// per-day cap shared by every subject.
type Grid struct {
	Days            []string
	Hours           []string
	Subjects        []string
	HoursPerSubject map[string]int
	MaxHoursPerDay  int
}

// Validate checks the grid invariants. Every failure wraps ErrInvalidGrid.
func (g Grid) Validate() error {
	if err := distinct("day", g.Days); err != nil {
		return err
	}
	if err := distinct("hour", g.Hours); err != nil {
		return err
	}
	if err := distinct("subject", g.Subjects); err != nil {
		return err
	}
	if g.MaxHoursPerDay <= 0 {
		return fmt.Errorf("%w: max hours per day must be positive, got %d", ErrInvalidGrid, g.MaxHoursPerDay)
	}
	if g.MaxHoursPerDay > len(g.Hours) {
		return fmt.Errorf("%w: max hours per day %d exceeds %d hour slots", ErrInvalidGrid, g.MaxHoursPerDay, len(g.Hours))
	}
	if len(g.HoursPerSubject) != len(g.Subjects) {
		return fmt.Errorf("%w: %d subjects but %d hour quotas", ErrInvalidGrid, len(g.Subjects), len(g.HoursPerSubject))
	}
	for _, s := range g.Subjects {
		h, ok := g.HoursPerSubject[s]
		if !ok {
			return fmt.Errorf("%w: subject %q has no hour quota", ErrInvalidGrid, s)
		}
		if h < 0 {
			return fmt.Errorf("%w: subject %q requires negative hours %d", ErrInvalidGrid, s, h)
		}
	}
	return nil
}

func distinct(kind string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: at least one %s is required", ErrInvalidGrid, kind)
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("%w: empty %s identifier", ErrInvalidGrid, kind)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidGrid, kind, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// MinDays is the fewest days the subject's hours could fit into, rounded half to even.
func (g Grid) MinDays(subject string) int {
	return int(math.RoundToEven(float64(g.HoursPerSubject[subject]) / float64(g.MaxHoursPerDay)))
}

// MaxDays caps the distinct days of a subject at its raw weekly hours. The bound is loose on purpose.
func (g Grid) MaxDays(subject string) int {
	return g.HoursPerSubject[subject]
}

// CheckSlot returns ErrUnknownSlot unless day, hour and subject all belong to the grid.
func (g Grid) CheckSlot(day, hour, subject string) error {
	if !slices.Contains(g.Days, day) || !slices.Contains(g.Hours, hour) || !slices.Contains(g.Subjects, subject) {
		return fmt.Errorf("%w: (%s, %s, %s)", ErrUnknownSlot, day, hour, subject)
	}
	return nil
}

// Capacity is the number of slots in the grid.
func (g Grid) Capacity() int {
	return len(g.Days) * len(g.Hours)
}

func (g Grid) clone() Grid {
	out := Grid{
		Days:            append([]string(nil), g.Days...),
		Hours:           append([]string(nil), g.Hours...),
		Subjects:        append([]string(nil), g.Subjects...),
		HoursPerSubject: make(map[string]int, len(g.HoursPerSubject)),
		MaxHoursPerDay:  g.MaxHoursPerDay,
	}
	for k, v := range g.HoursPerSubject {
		out.HoursPerSubject[k] = v
	}
	return out
}

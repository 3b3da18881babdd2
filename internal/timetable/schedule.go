package timetable

// Schedule is a solved timetable. Cells is indexed [hour][day]; an empty string is a free slot.
type Schedule struct {
	Days  []string
	Hours []string
	Cells [][]string
}

// Slot is an occupied cell of a schedule.
type Slot struct {
	Day     string
	Hour    string
	Subject string
}

// Schedule reads the solved assignment into an hour by day grid in the grid's own ordering.
func (m *Model) Schedule() (*Schedule, error) {
	if m.solution == nil {
		return nil, ErrNotSolved
	}
	g := m.grid
	out := &Schedule{
		Days:  append([]string(nil), g.Days...),
		Hours: append([]string(nil), g.Hours...),
		Cells: make([][]string, len(g.Hours)),
	}
	for h := range g.Hours {
		out.Cells[h] = make([]string, len(g.Days))
		for d := range g.Days {
			for s, subject := range g.Subjects {
				if m.solution.BoolValue(m.assignment[d][h][s]) {
					out.Cells[h][d] = subject
					break
				}
			}
		}
	}
	return out, nil
}

// Subject returns the subject at (day, hour), or "" when the slot is free or unknown.
func (s *Schedule) Subject(day, hour string) string {
	for h, hr := range s.Hours {
		if hr != hour {
			continue
		}
		for d, dy := range s.Days {
			if dy == day {
				return s.Cells[h][d]
			}
		}
	}
	return ""
}

// Slots lists occupied cells day by day, hours in order.
func (s *Schedule) Slots() []Slot {
	var out []Slot
	for d, day := range s.Days {
		for h, hour := range s.Hours {
			if subject := s.Cells[h][d]; subject != "" {
				out = append(out, Slot{Day: day, Hour: hour, Subject: subject})
			}
		}
	}
	return out
}

// HoursOn counts the hours of subject on day.
func (s *Schedule) HoursOn(subject, day string) int {
	n := 0
	for _, sl := range s.Slots() {
		if sl.Subject == subject && sl.Day == day {
			n++
		}
	}
	return n
}

// DaysUsed returns the days on which subject is taught, in grid order.
func (s *Schedule) DaysUsed(subject string) []string {
	var out []string
	for d, day := range s.Days {
		for h := range s.Hours {
			if s.Cells[h][d] == subject {
				out = append(out, day)
				break
			}
		}
	}
	return out
}

package timetable

import "github.com/noah-isme/sma-timetable-api/pkg/mip"

// Stats describes model size and, after solving, the objective breakdown.
type Stats struct {
	Variables      int
	Constraints    int
	Groups         map[string]int
	PinnedSlots    int
	ForbiddenSlots int
	Status         string
	Objective      float64
	ExtraDays      int
}

// Stats summarises the model.
func (m *Model) Stats() Stats {
	ms := m.mip.Stats()
	st := Stats{
		Variables:      ms.Variables,
		Constraints:    ms.Constraints,
		Groups:         ms.Groups,
		PinnedSlots:    m.pinned,
		ForbiddenSlots: m.forbidden,
		Status:         mip.NotSolved.String(),
	}
	if m.solution != nil {
		st.Status = m.solution.Status.String()
		st.Objective = m.solution.Objective
		st.ExtraDays = int(m.solution.Value(m.extraDays) + 0.5)
	}
	return st
}

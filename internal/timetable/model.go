package timetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

// Constraint group names, in the order they are generated.
const (
	GroupSingleOccupancy  = "single_occupancy"
	GroupWeeklyCoverage   = "weekly_coverage"
	GroupDailyCap         = "daily_cap"
	GroupDayUsedLink      = "day_used_link"
	GroupDayCountBounds   = "day_count_bounds"
	GroupCumulativeHours  = "cumulative_hours"
	GroupContiguousBlocks = "contiguous_blocks"
	GroupExtraDays        = "extra_days"
	GroupFixedSlots       = "fixed_slots"
)

const (
	// DefaultCompactnessPenalty is the objective cost of one subject-day above the minimum.
	DefaultCompactnessPenalty = 5.0
	// DefaultPreference is the weight of every slot before preferences are applied.
	DefaultPreference = 1.0
)

// Option customises model construction.
type Option func(*buildOptions)

type buildOptions struct {
	penalty float64
}

// WithCompactnessPenalty overrides the per extra day penalty. Non-positive values are ignored.
func WithCompactnessPenalty(p float64) Option {
	return func(o *buildOptions) {
		if p > 0 {
			o.penalty = p
		}
	}
}

// Model is a timetable optimisation model built for a single request.
// A Model is not safe for concurrent use.
type Model struct {
	grid    Grid
	penalty float64

	dayIdx     map[string]int
	hourIdx    map[string]int
	subjectIdx map[string]int

	mip        *mip.Model
	assignment [][][]mip.Var // [day][hour][subject]
	dayUsed    [][]mip.Var   // [day][subject]
	cumulative [][][]mip.Var
	switches   [][][]mip.Var
	extraDays  mip.Var

	preference [][][]float64
	pinned     int
	forbidden  int

	solution *mip.Solution
}

// BuildModel validates the grid and generates every structural constraint group plus the objective.
func BuildModel(grid Grid, opts ...Option) (*Model, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions{penalty: DefaultCompactnessPenalty}
	for _, opt := range opts {
		opt(&o)
	}

	g := grid.clone()
	m := &Model{
		grid:       g,
		penalty:    o.penalty,
		dayIdx:     index(g.Days),
		hourIdx:    index(g.Hours),
		subjectIdx: index(g.Subjects),
		mip:        mip.NewModel("timetable"),
	}
	m.addVariables()
	m.addSingleOccupancy()
	m.addWeeklyCoverage()
	m.addDailyCap()
	m.addDayUsedLink()
	m.addDayCountBounds()
	m.addCumulativeHours()
	m.addContiguousBlocks()
	m.addExtraDays()
	m.initObjective()
	return m, nil
}

func index(values []string) map[string]int {
	out := make(map[string]int, len(values))
	for i, v := range values {
		out[v] = i
	}
	return out
}

func (m *Model) addVariables() {
	g := m.grid
	nd, nh, ns := len(g.Days), len(g.Hours), len(g.Subjects)

	m.assignment = make([][][]mip.Var, nd)
	m.cumulative = make([][][]mip.Var, nd)
	m.switches = make([][][]mip.Var, nd)
	m.dayUsed = make([][]mip.Var, nd)
	m.preference = make([][][]float64, nd)
	for d, day := range g.Days {
		m.assignment[d] = make([][]mip.Var, nh)
		m.cumulative[d] = make([][]mip.Var, nh)
		m.switches[d] = make([][]mip.Var, nh)
		m.preference[d] = make([][]float64, nh)
		for h, hour := range g.Hours {
			m.assignment[d][h] = make([]mip.Var, ns)
			m.cumulative[d][h] = make([]mip.Var, ns)
			m.switches[d][h] = make([]mip.Var, ns)
			m.preference[d][h] = make([]float64, ns)
			for s, subject := range g.Subjects {
				key := day + "," + hour + "," + subject
				m.assignment[d][h][s] = m.mip.NewBinaryVar("assignment[" + key + "]")
				m.cumulative[d][h][s] = m.mip.NewIntVar(0, int64(nh), "cumulative["+key+"]")
				m.switches[d][h][s] = m.mip.NewBinaryVar("switch[" + key + "]")
				m.preference[d][h][s] = DefaultPreference
			}
		}
		m.dayUsed[d] = make([]mip.Var, ns)
		for s, subject := range g.Subjects {
			m.dayUsed[d][s] = m.mip.NewBinaryVar("day_used[" + day + "," + subject + "]")
		}
	}
	m.extraDays = m.mip.NewIntVar(0, int64(nd*ns), "total_extra_days")
}

// dayHours sums the assignment of a subject over the hours of one day.
func (m *Model) dayHours(d, s int) *mip.LinearExpr {
	expr := mip.NewLinearExpr()
	for h := range m.grid.Hours {
		expr.AddTerm(m.assignment[d][h][s], 1)
	}
	return expr
}

func (m *Model) addSingleOccupancy() {
	for d, day := range m.grid.Days {
		for h, hour := range m.grid.Hours {
			expr := mip.NewLinearExpr().AddSum(m.assignment[d][h]...)
			m.mip.AddLessOrEqual(GroupSingleOccupancy, day+","+hour, expr, 1)
		}
	}
}

func (m *Model) addWeeklyCoverage() {
	for s, subject := range m.grid.Subjects {
		required := float64(m.grid.HoursPerSubject[subject])
		upper := mip.NewLinearExpr()
		lower := mip.NewLinearExpr()
		for d := range m.grid.Days {
			for h := range m.grid.Hours {
				upper.AddTerm(m.assignment[d][h][s], 1)
				lower.AddTerm(m.assignment[d][h][s], 1)
			}
		}
		m.mip.AddLessOrEqual(GroupWeeklyCoverage, subject+":max", upper, required)
		m.mip.AddGreaterOrEqual(GroupWeeklyCoverage, subject+":min", lower, required)
	}
}

func (m *Model) addDailyCap() {
	limit := float64(m.grid.MaxHoursPerDay)
	for s, subject := range m.grid.Subjects {
		for d, day := range m.grid.Days {
			m.mip.AddLessOrEqual(GroupDailyCap, subject+","+day, m.dayHours(d, s), limit)
		}
	}
}

// addDayUsedLink forces day_used to one whenever the subject has an hour that day:
// cap * day_used - sum(hours) >= 0.
func (m *Model) addDayUsedLink() {
	limit := float64(m.grid.MaxHoursPerDay)
	for s, subject := range m.grid.Subjects {
		for d, day := range m.grid.Days {
			expr := mip.NewLinearExpr().AddTerm(m.dayUsed[d][s], limit)
			for h := range m.grid.Hours {
				expr.AddTerm(m.assignment[d][h][s], -1)
			}
			m.mip.AddGreaterOrEqual(GroupDayUsedLink, subject+","+day, expr, 0)
		}
	}
}

func (m *Model) addDayCountBounds() {
	for s, subject := range m.grid.Subjects {
		days := make([]mip.Var, 0, len(m.grid.Days))
		for d := range m.grid.Days {
			days = append(days, m.dayUsed[d][s])
		}
		m.mip.AddGreaterOrEqual(GroupDayCountBounds, subject+":min", mip.NewLinearExpr().AddSum(days...), float64(m.grid.MinDays(subject)))
		m.mip.AddLessOrEqual(GroupDayCountBounds, subject+":max", mip.NewLinearExpr().AddSum(days...), float64(m.grid.MaxDays(subject)))
	}
}

// addCumulativeHours chains a running count per subject and day. The first hour is pinned to zero.
func (m *Model) addCumulativeHours() {
	for s, subject := range m.grid.Subjects {
		for d, day := range m.grid.Days {
			for h, hour := range m.grid.Hours {
				name := subject + "," + day + "," + hour
				cur := m.cumulative[d][h][s]
				if h == 0 {
					m.mip.AddEquality(GroupCumulativeHours, name, mip.NewLinearExpr().AddTerm(cur, 1), 0)
					continue
				}
				chain := mip.NewLinearExpr().
					AddTerm(cur, 1).
					AddTerm(m.cumulative[d][h-1][s], -1).
					AddTerm(m.assignment[d][h][s], -1)
				m.mip.AddEquality(GroupCumulativeHours, name+":chain", chain, 0)
				floor := mip.NewLinearExpr().
					AddTerm(cur, 1).
					AddTerm(m.assignment[d][h][s], -1)
				m.mip.AddGreaterOrEqual(GroupCumulativeHours, name+":floor", floor, 0)
			}
		}
	}
}

// addContiguousBlocks counts occupancy changes around the cyclic ring of hours. One block per used
// day yields exactly two changes.
func (m *Model) addContiguousBlocks() {
	nh := len(m.grid.Hours)
	wholeDay := m.grid.MaxHoursPerDay >= nh
	for s, subject := range m.grid.Subjects {
		for d, day := range m.grid.Days {
			total := mip.NewLinearExpr()
			for h, hour := range m.grid.Hours {
				prev := (h - 1 + nh) % nh
				sw := m.switches[d][h][s]
				cur, before := m.assignment[d][h][s], m.assignment[d][prev][s]
				name := subject + "," + day + "," + hour

				// switch >= cur - before
				up := mip.NewLinearExpr().AddTerm(sw, 1).AddTerm(cur, -1).AddTerm(before, 1)
				m.mip.AddGreaterOrEqual(GroupContiguousBlocks, name+":up", up, 0)
				// switch >= before - cur
				down := mip.NewLinearExpr().AddTerm(sw, 1).AddTerm(cur, 1).AddTerm(before, -1)
				m.mip.AddGreaterOrEqual(GroupContiguousBlocks, name+":down", down, 0)

				total.AddTerm(sw, 1)
			}
			total.AddTerm(m.dayUsed[d][s], -2)
			m.mip.AddEquality(GroupContiguousBlocks, subject+","+day+":edges", total, 0)

			if !wholeDay {
				wrap := mip.NewLinearExpr().
					AddTerm(m.assignment[d][0][s], 1).
					AddTerm(m.assignment[d][nh-1][s], 1)
				m.mip.AddLessOrEqual(GroupContiguousBlocks, subject+","+day+":wrap", wrap, 1)
			}
		}
	}
}

// addExtraDays pins total_extra_days to sum(day_used) - sum(min_days).
func (m *Model) addExtraDays() {
	expr := mip.NewLinearExpr().AddTerm(m.extraDays, 1)
	minTotal := 0
	for s, subject := range m.grid.Subjects {
		minTotal += m.grid.MinDays(subject)
		for d := range m.grid.Days {
			expr.AddTerm(m.dayUsed[d][s], -1)
		}
	}
	m.mip.AddEquality(GroupExtraDays, "total_extra_days", expr, -float64(minTotal))
}

// initObjective sets minimize penalty*total_extra_days - sum(preference * assignment).
func (m *Model) initObjective() {
	m.mip.SetObjectiveSense(mip.Minimize)
	m.mip.SetObjectiveCoefficient(m.extraDays, m.penalty)
	for d := range m.grid.Days {
		for h := range m.grid.Hours {
			for s := range m.grid.Subjects {
				m.mip.SetObjectiveCoefficient(m.assignment[d][h][s], -m.preference[d][h][s])
			}
		}
	}
}

// Grid returns a copy of the grid the model was built from.
func (m *Model) Grid() Grid {
	return m.grid.clone()
}

// MIP exposes the underlying declarative model.
func (m *Model) MIP() *mip.Model {
	return m.mip
}

// Penalty returns the compactness penalty in use.
func (m *Model) Penalty() float64 {
	return m.penalty
}

// Solve hands the model to the solver. Infeasibility yields ErrInfeasible; solver failures and
// timeouts wrap ErrSolver together with the solver's own error.
func (m *Model) Solve(ctx context.Context, solver mip.Solver) error {
	if m.solution != nil {
		return ErrAlreadySolved
	}
	sol, err := solver.Solve(ctx, m.mip)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSolver, err)
	}
	if sol == nil {
		return fmt.Errorf("%w: no solution returned", ErrSolver)
	}
	switch {
	case sol.Status == mip.Infeasible:
		return ErrInfeasible
	case !sol.Status.HasValues():
		return fmt.Errorf("%w: unexpected status %s", ErrSolver, sol.Status)
	}
	m.solution = sol
	return nil
}

// Solution returns the raw solver result, or nil before a successful solve.
func (m *Model) Solution() *mip.Solution {
	return m.solution
}

// Solved reports whether the model carries an assignment.
func (m *Model) Solved() bool {
	return m.solution != nil
}

// IsTimeout reports whether err came from a solver deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, mip.ErrSolverTimeout)
}

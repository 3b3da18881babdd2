package mip

import "context"

// Status is the outcome of a solve.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Feasible
	Infeasible
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	default:
		return "not_solved"
	}
}

// HasValues reports whether the status carries a variable assignment.
func (s Status) HasValues() bool {
	return s == Optimal || s == Feasible
}

// Solution is the result returned by a Solver.
type Solution struct {
	Status    Status
	Objective float64
	values    []float64
}

// NewSolution wraps a full variable assignment.
func NewSolution(status Status, objective float64, values []float64) *Solution {
	return &Solution{Status: status, Objective: objective, values: values}
}

// Value returns the value assigned to v, or zero when the solution carries no assignment.
func (s *Solution) Value(v Var) float64 {
	if int(v.index) >= len(s.values) {
		return 0
	}
	return s.values[v.index]
}

// BoolValue reports whether a binary variable is set.
func (s *Solution) BoolValue(v Var) bool {
	return s.Value(v) > 0.5
}

// Values returns a copy of the full assignment.
func (s *Solution) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Solver searches for an optimal assignment of a model.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

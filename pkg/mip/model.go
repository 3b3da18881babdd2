package mip

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSolverTimeout is returned by solvers when the time limit or context expires before a result.
	ErrSolverTimeout = errors.New("mip: solver timed out")
	// ErrUnsupportedModel is returned by solvers that cannot represent a model.
	ErrUnsupportedModel = errors.New("mip: model not supported by solver")
	// ErrSolverBusy is returned when a solver refuses work because its searches are all in use.
	ErrSolverBusy = errors.New("mip: solver busy")
)

// VarType is the domain kind of a variable.
type VarType int

const (
	Binary VarType = iota
	Integer
)

func (t VarType) String() string {
	if t == Binary {
		return "binary"
	}
	return "integer"
}

// Var is a handle on a variable of a model.
type Var struct {
	index VarIndex
}

// Index returns the position of the variable in its model.
func (v Var) Index() VarIndex {
	return v.index
}

// Variable describes a decision variable.
type Variable struct {
	Name  string
	Type  VarType
	Lower int64
	Upper int64
}

// Sense is the comparison of a linear constraint.
type Sense int

const (
	LessOrEqual Sense = iota
	GreaterOrEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	default:
		return "=="
	}
}

// Constraint is a normalized linear constraint: sum(Terms) Sense RHS.
type Constraint struct {
	Group string
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Satisfied reports whether the given variable values satisfy the constraint.
func (c Constraint) Satisfied(values []float64) bool {
	const eps = 1e-6
	var lhs float64
	for _, t := range c.Terms {
		lhs += t.Coeff * values[t.Var]
	}
	switch c.Sense {
	case LessOrEqual:
		return lhs <= c.RHS+eps
	case GreaterOrEqual:
		return lhs >= c.RHS-eps
	default:
		return math.Abs(lhs-c.RHS) <= eps
	}
}

// ObjectiveSense is the optimization direction.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Stats summarises the size of a model.
type Stats struct {
	Variables   int
	Binary      int
	Integer     int
	Constraints int
	Groups      map[string]int
}

// Model holds variables, grouped linear constraints and a linear objective.
// A Model is not safe for concurrent use.
type Model struct {
	name        string
	vars        []Variable
	constraints []Constraint
	groups      []string
	groupIndex  map[string][]int
	objective   []float64
	offset      float64
	sense       ObjectiveSense
}

// NewModel creates an empty minimisation model.
func NewModel(name string) *Model {
	return &Model{
		name:       name,
		groupIndex: make(map[string][]int),
		sense:      Minimize,
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// NewBinaryVar adds a 0/1 variable.
func (m *Model) NewBinaryVar(name string) Var {
	return m.addVar(Variable{Name: name, Type: Binary, Lower: 0, Upper: 1})
}

// NewIntVar adds an integer variable with the inclusive bounds [lower, upper].
func (m *Model) NewIntVar(lower, upper int64, name string) Var {
	if lower > upper {
		panic(fmt.Sprintf("mip: variable %q has empty domain [%d, %d]", name, lower, upper))
	}
	return m.addVar(Variable{Name: name, Type: Integer, Lower: lower, Upper: upper})
}

func (m *Model) addVar(v Variable) Var {
	m.vars = append(m.vars, v)
	m.objective = append(m.objective, 0)
	return Var{index: VarIndex(len(m.vars) - 1)}
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// NumConstraints returns the number of constraints across all groups.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Variable returns the definition of v.
func (m *Model) Variable(v VarIndex) Variable {
	return m.vars[v]
}

// Variables returns a copy of every variable definition.
func (m *Model) Variables() []Variable {
	out := make([]Variable, len(m.vars))
	copy(out, m.vars)
	return out
}

// AddLessOrEqual appends expr <= rhs to group.
func (m *Model) AddLessOrEqual(group, name string, expr *LinearExpr, rhs float64) {
	m.addConstraint(group, name, expr, LessOrEqual, rhs)
}

// AddGreaterOrEqual appends expr >= rhs to group.
func (m *Model) AddGreaterOrEqual(group, name string, expr *LinearExpr, rhs float64) {
	m.addConstraint(group, name, expr, GreaterOrEqual, rhs)
}

// AddEquality appends expr == rhs to group.
func (m *Model) AddEquality(group, name string, expr *LinearExpr, rhs float64) {
	m.addConstraint(group, name, expr, Equal, rhs)
}

func (m *Model) addConstraint(group, name string, expr *LinearExpr, sense Sense, rhs float64) {
	if _, ok := m.groupIndex[group]; !ok {
		m.groups = append(m.groups, group)
	}
	m.groupIndex[group] = append(m.groupIndex[group], len(m.constraints))
	m.constraints = append(m.constraints, Constraint{
		Group: group,
		Name:  name,
		Terms: expr.Terms(),
		Sense: sense,
		RHS:   rhs - expr.Constant(),
	})
}

// Groups returns the constraint group names in creation order.
func (m *Model) Groups() []string {
	out := make([]string, len(m.groups))
	copy(out, m.groups)
	return out
}

// Constraints returns the constraints of a group, or every constraint when group is empty.
func (m *Model) Constraints(group string) []Constraint {
	if group == "" {
		out := make([]Constraint, len(m.constraints))
		copy(out, m.constraints)
		return out
	}
	idx := m.groupIndex[group]
	out := make([]Constraint, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.constraints[i])
	}
	return out
}

// SetObjectiveSense sets the optimisation direction.
func (m *Model) SetObjectiveSense(s ObjectiveSense) {
	m.sense = s
}

// ObjectiveSense returns the optimisation direction.
func (m *Model) ObjectiveSense() ObjectiveSense {
	return m.sense
}

// SetObjectiveCoefficient overwrites the objective coefficient of v.
func (m *Model) SetObjectiveCoefficient(v Var, c float64) {
	m.objective[v.index] = c
}

// ObjectiveCoefficient returns the objective coefficient of v.
func (m *Model) ObjectiveCoefficient(v Var) float64 {
	return m.objective[v.index]
}

// SetObjectiveOffset sets the constant part of the objective.
func (m *Model) SetObjectiveOffset(c float64) {
	m.offset = c
}

// ObjectiveOffset returns the constant part of the objective.
func (m *Model) ObjectiveOffset() float64 {
	return m.offset
}

// ObjectiveTerms returns the non-zero objective terms ordered by variable.
func (m *Model) ObjectiveTerms() []Term {
	var terms []Term
	for i, c := range m.objective {
		if c != 0 {
			terms = append(terms, Term{Var: VarIndex(i), Coeff: c})
		}
	}
	return terms
}

// Evaluate computes the objective value of an assignment.
func (m *Model) Evaluate(values []float64) float64 {
	total := m.offset
	for i, c := range m.objective {
		total += c * values[i]
	}
	return total
}

// Violations returns the constraints not satisfied by values.
func (m *Model) Violations(values []float64) []Constraint {
	var out []Constraint
	for _, c := range m.constraints {
		if !c.Satisfied(values) {
			out = append(out, c)
		}
	}
	return out
}

// Stats returns counts of variables and constraints per group.
func (m *Model) Stats() Stats {
	st := Stats{
		Variables:   len(m.vars),
		Constraints: len(m.constraints),
		Groups:      make(map[string]int, len(m.groups)),
	}
	for _, v := range m.vars {
		if v.Type == Binary {
			st.Binary++
		} else {
			st.Integer++
		}
	}
	for _, g := range m.groups {
		st.Groups[g] = len(m.groupIndex[g])
	}
	return st
}

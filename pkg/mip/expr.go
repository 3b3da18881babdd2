package mip

import "sort"

// VarIndex identifies a variable inside the model that created it.
type VarIndex int32

// Term is a single coefficient * variable product.
type Term struct {
	Var   VarIndex
	Coeff float64
}

// LinearExpr is a linear combination of model variables plus a constant.
type LinearExpr struct {
	coeffs   map[VarIndex]float64
	constant float64
}

// NewLinearExpr returns an empty expression.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{coeffs: make(map[VarIndex]float64)}
}

// AddTerm adds coeff * v to the expression.
func (e *LinearExpr) AddTerm(v Var, coeff float64) *LinearExpr {
	e.coeffs[v.Index()] += coeff
	return e
}

// AddSum adds each variable with a coefficient of one.
func (e *LinearExpr) AddSum(vars ...Var) *LinearExpr {
	for _, v := range vars {
		e.AddTerm(v, 1)
	}
	return e
}

// AddWeightedSum adds vars[i] * coeffs[i]. Both slices must have the same length.
func (e *LinearExpr) AddWeightedSum(vars []Var, coeffs []float64) *LinearExpr {
	if len(vars) != len(coeffs) {
		panic("mip: AddWeightedSum called with mismatched lengths")
	}
	for i, v := range vars {
		e.AddTerm(v, coeffs[i])
	}
	return e
}

// AddConstant adds c to the expression.
func (e *LinearExpr) AddConstant(c float64) *LinearExpr {
	e.constant += c
	return e
}

// Constant returns the constant part of the expression.
func (e *LinearExpr) Constant() float64 {
	return e.constant
}

// Terms returns the non-zero terms ordered by variable index.
func (e *LinearExpr) Terms() []Term {
	terms := make([]Term, 0, len(e.coeffs))
	for v, c := range e.coeffs {
		if c == 0 {
			continue
		}
		terms = append(terms, Term{Var: v, Coeff: c})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Var < terms[j].Var })
	return terms
}

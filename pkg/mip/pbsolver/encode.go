package pbsolver

import (
	"fmt"
	"math"
	"math/bits"

	gophersat "github.com/crillab/gophersat/solver"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

const integralTolerance = 1e-9

// encodedVar maps a model variable onto PB literals: value = lower + sum(2^i * lits[i]).
type encodedVar struct {
	lower int64
	lits  []int
}

type encoding struct {
	vars       []encodedVar
	nbLits     int
	constrs    []gophersat.PBConstr
	infeasible bool
}

func encodeModel(m *mip.Model) (*encoding, error) {
	enc := &encoding{vars: make([]encodedVar, m.NumVars())}
	for i, v := range m.Variables() {
		enc.vars[i] = enc.newVar(v)
	}
	// Every literal must be known to the solver even when no constraint mentions it.
	for lit := 1; lit <= enc.nbLits; lit++ {
		enc.constrs = append(enc.constrs, gophersat.AtLeast([]int{lit}, 0))
	}
	for i, v := range m.Variables() {
		if v.Type != mip.Integer {
			continue
		}
		ev := enc.vars[i]
		span := v.Upper - v.Lower
		if len(ev.lits) > 0 && span != int64(1)<<len(ev.lits)-1 {
			lits, weights := ev.expand(1)
			enc.constrs = append(enc.constrs, gophersat.LtEq(lits, weights, int(span)))
		}
	}
	for _, c := range m.Constraints("") {
		if err := enc.addConstraint(c); err != nil {
			return nil, err
		}
	}
	return enc, nil
}

func (enc *encoding) newVar(v mip.Variable) encodedVar {
	ev := encodedVar{lower: v.Lower}
	width := 1
	if v.Type == mip.Integer {
		width = bits.Len64(uint64(v.Upper - v.Lower))
	}
	for i := 0; i < width; i++ {
		enc.nbLits++
		ev.lits = append(ev.lits, enc.nbLits)
	}
	return ev
}

// expand returns fresh literal and weight slices for coeff * (value - lower).
func (ev encodedVar) expand(coeff int) ([]int, []int) {
	lits := make([]int, len(ev.lits))
	weights := make([]int, len(ev.lits))
	for i, lit := range ev.lits {
		lits[i] = lit
		weights[i] = coeff << i
	}
	return lits, weights
}

func (enc *encoding) addConstraint(c mip.Constraint) error {
	var lits, weights []int
	rhs := c.RHS
	for _, t := range c.Terms {
		coeff, ok := integral(t.Coeff)
		if !ok {
			return fmt.Errorf("%w: constraint %s has fractional coefficient %v", mip.ErrUnsupportedModel, c.Name, t.Coeff)
		}
		ev := enc.vars[t.Var]
		rhs -= t.Coeff * float64(ev.lower)
		l, w := ev.expand(coeff)
		lits = append(lits, l...)
		weights = append(weights, w...)
	}

	switch c.Sense {
	case mip.GreaterOrEqual:
		enc.constrs = append(enc.constrs, gophersat.GtEq(lits, weights, int(math.Ceil(rhs-integralTolerance))))
	case mip.LessOrEqual:
		enc.constrs = append(enc.constrs, gophersat.LtEq(lits, weights, int(math.Floor(rhs+integralTolerance))))
	case mip.Equal:
		n, ok := integral(rhs)
		if !ok {
			enc.infeasible = true
			return nil
		}
		enc.constrs = append(enc.constrs, gophersat.Eq(lits, weights, n)...)
	}
	return nil
}

// objective is the minimisation target over PB literals with positive weights.
type objective struct {
	lits    []gophersat.Lit
	weights []int
	total   int
}

// costFunction converts the objective into positive PB weights. Coefficients are scaled and
// rounded, negative weights are moved onto the negated literal and the result is divided by
// the weights' common divisor.
func (enc *encoding) costFunction(m *mip.Model, scale float64) objective {
	var obj objective
	sign := 1.0
	if m.ObjectiveSense() == mip.Maximize {
		sign = -1
	}
	for _, t := range m.ObjectiveTerms() {
		w := int(math.Round(sign * t.Coeff * scale))
		if w == 0 {
			continue
		}
		for i, lit := range enc.vars[t.Var].lits {
			bw := w << i
			if bw < 0 {
				lit, bw = -lit, -bw
			}
			obj.lits = append(obj.lits, gophersat.IntToLit(int32(lit)))
			obj.weights = append(obj.weights, bw)
		}
	}
	divisor := 0
	for _, w := range obj.weights {
		divisor = gcd(divisor, w)
	}
	for i := range obj.weights {
		obj.weights[i] /= divisor
		obj.total += obj.weights[i]
	}
	return obj
}

// cost sums the weights of the literals satisfied by model.
func (o objective) cost(model []bool) int {
	c := 0
	for i, lit := range o.lits {
		if model[lit.Var()] == lit.IsPositive() {
			c += o.weights[i]
		}
	}
	return c
}

// below returns the clause admitting only models cheaper than cost.
func (o objective) below(cost int) *gophersat.Clause {
	lits := make([]gophersat.Lit, len(o.lits))
	weights := make([]int, len(o.weights))
	for i, lit := range o.lits {
		lits[i] = lit.Negation()
	}
	copy(weights, o.weights)
	return gophersat.NewPBClause(lits, weights, o.total-cost+1)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (enc *encoding) decode(model []bool) []float64 {
	values := make([]float64, len(enc.vars))
	for i, ev := range enc.vars {
		v := ev.lower
		for b, lit := range ev.lits {
			if lit-1 < len(model) && model[lit-1] {
				v += int64(1) << b
			}
		}
		values[i] = float64(v)
	}
	return values
}

func integral(f float64) (int, bool) {
	r := math.Round(f)
	if math.Abs(f-r) > integralTolerance {
		return 0, false
	}
	return int(r), true
}

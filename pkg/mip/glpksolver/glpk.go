//go:build glpk

package glpksolver

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/lukpank/go-glpk/glpk"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

// Available reports whether the binary was built with the GLPK backend.
const Available = true

// run builds the GLPK problem column by column and row by row. GLPK keeps per-thread state, so
// the whole lifetime of the problem stays on one OS thread.
func run(p problem) (*mip.Solution, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	lp := glpk.New()
	defer lp.Delete()
	lp.SetProbName(p.name)
	if p.sense == mip.Maximize {
		lp.SetObjDir(glpk.MAX)
	} else {
		lp.SetObjDir(glpk.MIN)
	}
	// Column 0 is the objective's constant term.
	lp.SetObjCoef(0, p.offset)

	lp.AddCols(len(p.vars))
	for i, v := range p.vars {
		col := i + 1
		lp.SetColName(col, v.Name)
		if v.Type == mip.Binary {
			lp.SetColKind(col, glpk.BV)
			continue
		}
		lp.SetColKind(col, glpk.IV)
		if v.Lower == v.Upper {
			lp.SetColBnds(col, glpk.FX, float64(v.Lower), float64(v.Upper))
		} else {
			lp.SetColBnds(col, glpk.DB, float64(v.Lower), float64(v.Upper))
		}
	}
	for _, t := range p.objective {
		lp.SetObjCoef(int(t.Var)+1, t.Coeff)
	}

	if len(p.constraints) > 0 {
		lp.AddRows(len(p.constraints))
	}
	for i, c := range p.constraints {
		row := i + 1
		lp.SetRowName(row, c.Group+"."+c.Name)
		switch c.Sense {
		case mip.LessOrEqual:
			lp.SetRowBnds(row, glpk.UP, 0, c.RHS)
		case mip.GreaterOrEqual:
			lp.SetRowBnds(row, glpk.LO, c.RHS, 0)
		default:
			lp.SetRowBnds(row, glpk.FX, c.RHS, c.RHS)
		}
		// SetMatRow ignores the first element of both slices.
		ind := make([]int32, 1, len(c.Terms)+1)
		val := make([]float64, 1, len(c.Terms)+1)
		for _, t := range c.Terms {
			ind = append(ind, int32(t.Var)+1)
			val = append(val, t.Coeff)
		}
		lp.SetMatRow(row, ind, val)
	}

	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(glpk.MSG_OFF)
	if err := lp.Intopt(iocp); err != nil {
		if errors.Is(err, glpk.ENOPFS) {
			return mip.NewSolution(mip.Infeasible, 0, nil), nil
		}
		return nil, fmt.Errorf("glpksolver: intopt: %w", err)
	}

	var status mip.Status
	switch st := lp.MipStatus(); st {
	case glpk.OPT:
		status = mip.Optimal
	case glpk.FEAS:
		status = mip.Feasible
	case glpk.NOFEAS:
		return mip.NewSolution(mip.Infeasible, 0, nil), nil
	default:
		return nil, fmt.Errorf("glpksolver: unexpected mip status %d", st)
	}
	values := make([]float64, len(p.vars))
	for i := range values {
		values[i] = math.Round(lp.MipColVal(i + 1))
	}
	return mip.NewSolution(status, p.evaluate(values), values), nil
}

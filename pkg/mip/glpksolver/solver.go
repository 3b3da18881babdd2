// Package glpksolver solves mip models with GLPK's branch-and-cut MIP solver.
//
// The binding needs cgo and the system libglpk, so the real backend is only compiled with the
// glpk build tag. Without it every solve fails with mip.ErrUnsupportedModel.
package glpksolver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

// Option configures a Solver.
type Option func(*Solver)

// WithTimeLimit bounds how long Solve waits. GLPK itself cannot be interrupted, so the search
// keeps its slot until it finishes.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Solver) { s.timeLimit = d }
}

// WithMaxSearches caps how many GLPK searches may run at once.
func WithMaxSearches(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.searches = make(chan struct{}, n)
		}
	}
}

// WithLogger attaches a logger for search results.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Solver implements mip.Solver on top of GLPK.
type Solver struct {
	timeLimit time.Duration
	logger    *zap.Logger
	searches  chan struct{}
}

var _ mip.Solver = (*Solver)(nil)

// New constructs a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		logger:   zap.NewNop(),
		searches: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// problem is a snapshot of a model, so a search that outlives Solve never touches the caller's model.
type problem struct {
	name        string
	vars        []mip.Variable
	constraints []mip.Constraint
	objective   []mip.Term
	sense       mip.ObjectiveSense
	offset      float64
}

func snapshot(m *mip.Model) problem {
	return problem{
		name:        m.Name(),
		vars:        m.Variables(),
		constraints: m.Constraints(""),
		objective:   m.ObjectiveTerms(),
		sense:       m.ObjectiveSense(),
		offset:      m.ObjectiveOffset(),
	}
}

func (p problem) evaluate(values []float64) float64 {
	total := p.offset
	for _, t := range p.objective {
		total += t.Coeff * values[t.Var]
	}
	return total
}

type outcome struct {
	sol *mip.Solution
	err error
}

// Solve hands the model to GLPK and waits for the result or the deadline.
func (s *Solver) Solve(ctx context.Context, m *mip.Model) (*mip.Solution, error) {
	if m == nil {
		return nil, fmt.Errorf("glpksolver: nil model")
	}
	if m.NumVars() == 0 {
		return mip.NewSolution(mip.Optimal, m.ObjectiveOffset(), []float64{}), nil
	}
	if s.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeLimit)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", mip.ErrSolverTimeout, err)
	}
	select {
	case s.searches <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: %d searches running", mip.ErrSolverBusy, cap(s.searches))
	}

	p := snapshot(m)
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-s.searches }()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("glpksolver: search aborted: %v", r)}
			}
		}()
		start := time.Now()
		sol, err := run(p)
		if err == nil {
			s.logger.Debug("glpk search finished",
				zap.String("model", p.name),
				zap.String("status", sol.Status.String()),
				zap.Duration("duration", time.Since(start)),
			)
		}
		done <- outcome{sol: sol, err: err}
	}()

	select {
	case out := <-done:
		return out.sol, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", mip.ErrSolverTimeout, ctx.Err())
	}
}

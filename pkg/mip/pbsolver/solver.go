// Package pbsolver solves mip models with the gophersat pseudo-boolean optimizer.
package pbsolver

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	gophersat "github.com/crillab/gophersat/solver"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

// DefaultObjectiveScale turns fractional objective weights into integers. The weights' common
// factor is divided out again, so integral objectives search with their own coefficients.
const DefaultObjectiveScale = 1000

// Option configures a Solver.
type Option func(*Solver)

// WithTimeLimit bounds each solve. Zero means no limit beyond the context.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Solver) { s.timeLimit = d }
}

// WithObjectiveScale sets the multiplier applied to objective coefficients before rounding.
func WithObjectiveScale(scale float64) Option {
	return func(s *Solver) {
		if scale > 0 {
			s.scale = scale
		}
	}
}

// WithLogger attaches a logger for search progress.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxSearches caps how many searches may run at once. A search that outlives its
// deadline keeps its slot until the SAT call in progress returns.
func WithMaxSearches(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.searches = make(chan struct{}, n)
		}
	}
}

// Solver implements mip.Solver. It only accepts models whose constraint coefficients are integral.
type Solver struct {
	timeLimit time.Duration
	scale     float64
	logger    *zap.Logger
	searches  chan struct{}
}

var _ mip.Solver = (*Solver)(nil)

// New constructs a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		scale:    DefaultObjectiveScale,
		logger:   zap.NewNop(),
		searches: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type incumbent struct {
	model []bool
	cost  int
}

// best is shared between the search goroutine and Solve.
type best struct {
	mu  sync.Mutex
	inc *incumbent
}

func (b *best) set(inc *incumbent) {
	b.mu.Lock()
	b.inc = inc
	b.mu.Unlock()
}

func (b *best) get() *incumbent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inc
}

type outcome struct {
	complete bool
	err      error
}

// Solve encodes the model and improves on the incumbent until optimality, infeasibility or the
// deadline. When the deadline passes after a first solution was found, the best one is returned
// as Feasible.
func (s *Solver) Solve(ctx context.Context, m *mip.Model) (*mip.Solution, error) {
	if m == nil {
		return nil, fmt.Errorf("pbsolver: nil model")
	}
	enc, err := encodeModel(m)
	if err != nil {
		return nil, err
	}
	if enc.infeasible {
		return mip.NewSolution(mip.Infeasible, 0, nil), nil
	}
	if enc.nbLits == 0 {
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

	obj := enc.costFunction(m, s.scale)
	problem := gophersat.ParsePBConstrs(enc.constrs)
	if len(obj.lits) > 0 {
		// The cost function only steers branching. search adds the bounds that optimise.
		problem.SetCostFunc(obj.lits, obj.weights)
	}
	pb := gophersat.New(problem)
	var tracker best
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-s.searches }()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("pbsolver: search aborted: %v", r)}
			}
		}()
		done <- s.search(ctx, m.Name(), pb, obj, &tracker)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		inc := tracker.get()
		switch {
		case inc == nil && out.complete:
			return mip.NewSolution(mip.Infeasible, 0, nil), nil
		case inc == nil:
			return nil, fmt.Errorf("%w: %w", mip.ErrSolverTimeout, ctx.Err())
		case out.complete:
			return s.solution(m, enc, mip.Optimal, inc.model), nil
		default:
			return s.solution(m, enc, mip.Feasible, inc.model), nil
		}
	case <-ctx.Done():
		if inc := tracker.get(); inc != nil {
			return s.solution(m, enc, mip.Feasible, inc.model), nil
		}
		return nil, fmt.Errorf("%w: %w", mip.ErrSolverTimeout, ctx.Err())
	}
}

// search runs one SAT call per incumbent, each time requiring a strictly cheaper model. The
// context is checked between calls; complete is set once no cheaper model exists.
func (s *Solver) search(ctx context.Context, name string, pb *gophersat.Solver, obj objective, tracker *best) outcome {
	for round := 1; ; round++ {
		if pb.Solve() != gophersat.Sat {
			return outcome{complete: true}
		}
		model := pb.Model()
		cost := obj.cost(model)
		tracker.set(&incumbent{model: model, cost: cost})
		s.logger.Debug("pb incumbent", zap.String("model", name), zap.Int("round", round), zap.Int("cost", cost))
		if cost == 0 {
			return outcome{complete: true}
		}
		if ctx.Err() != nil {
			return outcome{}
		}
		pb.AppendClause(obj.below(cost))
	}
}

func (s *Solver) solution(m *mip.Model, enc *encoding, status mip.Status, model []bool) *mip.Solution {
	values := enc.decode(model)
	return mip.NewSolution(status, m.Evaluate(values), values)
}

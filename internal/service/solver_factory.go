package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
	"github.com/noah-isme/sma-timetable-api/pkg/mip/glpksolver"
	"github.com/noah-isme/sma-timetable-api/pkg/mip/pbsolver"
)

const (
	SolverPB   = "pb"
	SolverGLPK = "glpk"
)

// SolverConfig selects and tunes the mip backend.
type SolverConfig struct {
	Name           string
	TimeLimit      time.Duration
	ObjectiveScale float64
	MaxSearches    int
}

// NewSolver builds the backend named in cfg. An empty name selects the pseudo-boolean solver.
func NewSolver(cfg SolverConfig, logger *zap.Logger) (mip.Solver, error) {
	switch cfg.Name {
	case "", SolverPB:
		return pbsolver.New(
			pbsolver.WithTimeLimit(cfg.TimeLimit),
			pbsolver.WithObjectiveScale(cfg.ObjectiveScale),
			pbsolver.WithMaxSearches(cfg.MaxSearches),
			pbsolver.WithLogger(logger),
		), nil
	case SolverGLPK:
		if !glpksolver.Available {
			return nil, fmt.Errorf("solver %q requires a build with -tags glpk", cfg.Name)
		}
		return glpksolver.New(
			glpksolver.WithTimeLimit(cfg.TimeLimit),
			glpksolver.WithMaxSearches(cfg.MaxSearches),
			glpksolver.WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown solver %q", cfg.Name)
	}
}

package timetable

import "errors"

var (
	// ErrInvalidGrid reports a malformed grid definition.
	ErrInvalidGrid = errors.New("invalid grid definition")
	// ErrUnknownSlot reports a preference or constraint entry outside the grid.
	ErrUnknownSlot = errors.New("slot or subject outside the grid")
	// ErrInfeasible reports that no timetable satisfies every constraint.
	ErrInfeasible = errors.New("timetable is infeasible")
	// ErrSolver wraps solver failures, including timeouts.
	ErrSolver = errors.New("solver failed")
	// ErrNotSolved is returned when a schedule is requested before a successful solve.
	ErrNotSolved = errors.New("timetable has not been solved")
	// ErrAlreadySolved is returned when a solved model is mutated or solved again.
	ErrAlreadySolved = errors.New("timetable has already been solved")
)

//go:build !glpk

package glpksolver

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/pkg/mip"
)

// Available reports whether the binary was built with the GLPK backend.
const Available = false

func run(problem) (*mip.Solution, error) {
	return nil, fmt.Errorf("%w: built without the glpk tag", mip.ErrUnsupportedModel)
}

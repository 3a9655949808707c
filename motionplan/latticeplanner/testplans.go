package latticeplanner

import (
	"github.com/pkg/errors"

	"go.viam.com/latticeplanner/motionplan/xytheta"
)

func repeatAction(action xytheta.ActionID, n int) []xytheta.ActionID {
	out := make([]xytheta.ActionID, n)
	for i := range out {
		out[i] = action
	}
	return out
}

func concatActions(parts ...[]xytheta.ActionID) []xytheta.ActionID {
	var out []xytheta.ActionID
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// canned action sequences for the default nine action lattice.
var testPlans = [][]xytheta.ActionID{
	// backup, swerve, tightening right turns, then back the other way
	{1, 2, 3, 5, 5, 5, 5, 3, 2, 1, 5, 5, 7, 7, 7, 7, 0, 0, 0},
	// T shape starting with a slight left
	{2, 4, 2, 5, 5, 5, 5, 1, 0, 0, 0, 0, 0, 0, 1, 5, 5, 5, 5, 2, 4, 2, 0, 7, 7, 7, 7, 0, 7, 7, 7, 7},
	// figure 8 starting with a hard right, ends where it starts
	concatActions(repeatAction(5, 8), repeatAction(4, 8), repeatAction(3, 16), repeatAction(2, 16)),
	// straights and half turns in place
	concatActions(repeatAction(7, 8), repeatAction(0, 5), repeatAction(6, 8), repeatAction(0, 4)),
	{8, 7, 8, 5, 0, 0, 0, 0, 2, 4, 0},
}

// NumTestPlans is the number of plans TestPlan can build.
var NumTestPlans = len(testPlans)

// TestPlan returns one of a few fixed plans from `start`, for exercising plan and path handling
// without running a search. The plans assume the default action space.
func TestPlan(start xytheta.GraphState, which int) (*xytheta.Plan, error) {
	if which < 0 || which >= len(testPlans) {
		return nil, errors.Errorf("no test plan %d, have %d", which, len(testPlans))
	}
	plan := &xytheta.Plan{Start: start}
	for _, action := range testPlans[which] {
		plan.Push(action, 0)
	}
	return plan, nil
}

package latticeplanner

import (
	"context"
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/primgen"
	"go.viam.com/latticeplanner/motionplan/xytheta"
)

// Only turns in place out of a goal cell are free. Moving out of it costs as usual.
func TestFreeTurnOnlyAppliesToTurnsInPlace(t *testing.T) {
	space, err := primgen.DefaultActionSpace()
	test.That(t, err, test.ShouldBeNil)
	pc := xytheta.NewPlannerContext(xytheta.NewEnvironment(space))
	pc.Start = xytheta.NewState(0, 0, 0)
	pc.AllowFreeTurnInPlaceAtGoal = true
	pc.SetGoal(0, xytheta.NewState(0, 0, math.Pi))

	p := New(pc, nil, logging.NewTestLogger(t))
	test.That(t, p.Replan(context.Background(), 0), test.ShouldBeNil)
	test.That(t, p.FinalCost(), test.ShouldEqual, 0.)

	start := xytheta.NewGraphState(0, 0, 0).ID()
	for _, tc := range []struct {
		action xytheta.ActionID
		free   bool
	}{
		{6, true},
		{7, true},
		{0, false},
		{1, false},
		{2, false},
		{8, false},
	} {
		prim, ok := space.Primitive(0, tc.action)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, prim.IsTurnInPlace(), test.ShouldEqual, tc.free)

		test.That(t, prim.Cost, test.ShouldBeGreaterThan, 0)

		succ, _ := pc.Env.ApplyAction(tc.action, start, false)
		entry := p.table.Find(succ)
		test.That(t, entry, test.ShouldNotBeNil)
		if tc.free {
			test.That(t, entry.G, test.ShouldEqual, 0.)
		} else {
			test.That(t, entry.G, test.ShouldBeGreaterThan, 0)
			test.That(t, entry.G, test.ShouldBeLessThanOrEqualTo, prim.Cost)
		}
	}
}

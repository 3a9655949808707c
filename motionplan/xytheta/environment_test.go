package xytheta_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/latticeplanner/motionplan/primgen"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/spatialmath"
)

func rotatedRect(t *testing.T, x0, y0, x1, y1, width float64) spatialmath.ConvexPolygon {
	t.Helper()
	poly, err := spatialmath.NewRotatedRectangle(x0, y0, x1, y1, width)
	test.That(t, err, test.ShouldBeNil)
	return poly
}

func TestCollisionQueries(t *testing.T) {
	space := defaultSpace(t)
	env := xytheta.NewEnvironment(space)
	test.That(t, env.NumObstacles(), test.ShouldEqual, 0)
	test.That(t, env.IsInCollision(xytheta.NewState(60, 0, 0)), test.ShouldBeFalse)

	env.AddObstacleAllThetas(rotatedRect(t, 51, -9, 79, -9, 18), xytheta.FatalObstacleCost)
	env.AddObstacleAllThetas(rotatedRect(t, 71, -9, 99, -9, 18), 5)
	test.That(t, env.NumObstacles(), test.ShouldEqual, 2)
	test.That(t, len(env.Obstacles(7)), test.ShouldEqual, 2)

	test.That(t, env.IsInCollision(xytheta.NewState(60, 0, 2)), test.ShouldBeTrue)
	test.That(t, env.IsInCollision(xytheta.NewState(40, 0, 0)), test.ShouldBeFalse)
	test.That(t, env.IsInCollision(xytheta.NewState(90, 0, 0)), test.ShouldBeFalse)
	test.That(t, env.IsInCollisionGraph(xytheta.NewGraphState(6, 0, 3)), test.ShouldBeTrue)
	test.That(t, env.IsInCollisionGraph(xytheta.NewGraphState(9, 0, 3)), test.ShouldBeFalse)
	test.That(t, env.IsInSoftCollision(xytheta.NewGraphState(9, 0, 3)), test.ShouldBeTrue)
	test.That(t, env.IsInSoftCollision(xytheta.NewGraphState(9, 1, 3)), test.ShouldBeFalse)

	test.That(t, env.GetCollisionPenalty(xytheta.NewGraphState(6, 0, 0)), test.ShouldEqual, xytheta.FatalObstacleCost)
	test.That(t, env.GetCollisionPenalty(xytheta.NewGraphState(9, 0, 0)), test.ShouldEqual, 5.)
	test.That(t, env.GetCollisionPenalty(xytheta.NewGraphState(0, 0, 0)), test.ShouldEqual, 0.)

	maxPenalty, found := env.GetMaxPenalty(xytheta.NewState(75, 0, 1))
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, maxPenalty, test.ShouldEqual, xytheta.FatalObstacleCost)
	maxPenalty, found = env.GetMaxPenalty(xytheta.NewState(95, 0, 1))
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, maxPenalty, test.ShouldEqual, 5.)
	_, found = env.GetMaxPenalty(xytheta.NewState(-95, 0, 1))
	test.That(t, found, test.ShouldBeFalse)

	env.ClearObstacles()
	test.That(t, env.NumObstacles(), test.ShouldEqual, 0)
	test.That(t, env.IsInCollision(xytheta.NewState(60, 0, 2)), test.ShouldBeFalse)
}

func TestPrepareForPlanningKeepsContainment(t *testing.T) {
	env := xytheta.NewEnvironment(defaultSpace(t))
	poly, err := spatialmath.NewConvexPolygon(
		r2.Point{X: -20, Y: -5}, r2.Point{X: 40, Y: -15}, r2.Point{X: 55, Y: 10}, r2.Point{X: 0, Y: 30}, r2.Point{X: -25, Y: 12},
	)
	test.That(t, err, test.ShouldBeNil)
	env.AddObstacleAllThetas(poly, xytheta.FatalObstacleCost)

	before := map[r2.Point]bool{}
	for x := -40.3; x <= 70; x += 2.5 {
		for y := -30.7; y <= 40; y += 2.5 {
			before[r2.Point{X: x, Y: y}] = env.IsInCollision(xytheta.NewState(x, y, 0))
		}
	}
	env.PrepareForPlanning()
	for pt, inside := range before {
		test.That(t, env.IsInCollision(xytheta.NewState(pt.X, pt.Y, 0)), test.ShouldEqual, inside)
		test.That(t, poly.Contains(pt), test.ShouldEqual, inside)
	}
}

func TestAddObstacleWithRobotFootprint(t *testing.T) {
	env := xytheta.NewEnvironment(defaultSpace(t))
	obstacle, err := spatialmath.NewAxisAlignedRectangle(100, -10, 120, 10)
	test.That(t, err, test.ShouldBeNil)
	// 40mm long, 20mm wide, origin at the back
	footprint, err := spatialmath.NewAxisAlignedRectangle(0, -10, 40, 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, env.AddObstacleWithRobotFootprint(obstacle, footprint, xytheta.FatalObstacleCost), test.ShouldBeNil)
	test.That(t, env.NumObstacles(), test.ShouldEqual, 1)

	// facing the obstacle the nose reaches it 40mm early, backing into it the tail reaches it right away
	test.That(t, env.IsInCollision(xytheta.NewState(65, 0, 0)), test.ShouldBeTrue)
	test.That(t, env.IsInCollision(xytheta.NewState(55, 0, 0)), test.ShouldBeFalse)
	test.That(t, env.IsInCollision(xytheta.NewState(95, 0, 3.14159)), test.ShouldBeFalse)
	test.That(t, env.IsInCollision(xytheta.NewState(105, 0, 3.14159)), test.ShouldBeTrue)

	_, err = env.AddObstacleWithExpansion(obstacle, footprint, 16, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplaceObstaclesWithExpansion(t *testing.T) {
	space := defaultSpace(t)
	env := xytheta.NewEnvironment(space)
	footprint, err := spatialmath.NewAxisAlignedRectangle(0, -10, 40, 10)
	test.That(t, err, test.ShouldBeNil)
	robots := make([]spatialmath.ConvexPolygon, space.NumAngles())
	for theta := range robots {
		robots[theta] = footprint.Rotate(space.LookupTheta(xytheta.GraphTheta(theta)))
	}
	near, err := spatialmath.NewAxisAlignedRectangle(100, -10, 120, 10)
	test.That(t, err, test.ShouldBeNil)
	far, err := spatialmath.NewAxisAlignedRectangle(300, -10, 320, 10)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, env.ReplaceObstaclesWithExpansion([]spatialmath.ConvexPolygon{near}, robots, xytheta.FatalObstacleCost),
		test.ShouldBeNil)
	test.That(t, env.NumObstacles(), test.ShouldEqual, 1)
	test.That(t, env.IsInCollision(xytheta.NewState(65, 0, 0)), test.ShouldBeTrue)

	t.Run("bad obstacle is dropped at every heading", func(t *testing.T) {
		err := env.ReplaceObstaclesWithExpansion(
			[]spatialmath.ConvexPolygon{{}, far}, robots, xytheta.FatalObstacleCost)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "obstacle 0")
		for theta := 0; theta < space.NumAngles(); theta++ {
			test.That(t, env.Obstacles(xytheta.GraphTheta(theta)), test.ShouldHaveLength, 1)
		}
		test.That(t, env.IsInCollision(xytheta.NewState(65, 0, 0)), test.ShouldBeFalse)
		test.That(t, env.IsInCollision(xytheta.NewState(265, 0, 0)), test.ShouldBeTrue)
	})

	t.Run("wrong footprint count changes nothing", func(t *testing.T) {
		err := env.ReplaceObstaclesWithExpansion([]spatialmath.ConvexPolygon{near}, robots[:3], xytheta.FatalObstacleCost)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, env.NumObstacles(), test.ShouldEqual, 1)
		test.That(t, env.IsInCollision(xytheta.NewState(265, 0, 0)), test.ShouldBeTrue)
		test.That(t, env.IsInCollision(xytheta.NewState(65, 0, 0)), test.ShouldBeFalse)
	})
}

func TestApplyAction(t *testing.T) {
	space := defaultSpace(t)
	env := xytheta.NewEnvironment(space)
	box := rotatedRect(t, 51, -9, 79, -9, 18)
	env.AddObstacleAllThetas(box, 50)

	start := xytheta.NewGraphState(4, 0, 0)
	next, penalty := env.ApplyAction(primgen.ActionForward, start.ID(), true)
	test.That(t, next.GraphState(), test.ShouldResemble, xytheta.NewGraphState(5, 0, 0))
	test.That(t, penalty, test.ShouldEqual, 0.)

	// ten samples a millimeter apart, all inside
	next, penalty = env.ApplyAction(primgen.ActionForward, next, true)
	test.That(t, next.GraphState(), test.ShouldResemble, xytheta.NewGraphState(6, 0, 0))
	test.That(t, penalty, test.ShouldAlmostEqual, 500)

	_, penalty = env.ApplyAction(primgen.ActionForward, next, false)
	test.That(t, penalty, test.ShouldEqual, 0.)

	same, penalty := env.ApplyAction(xytheta.ActionID(space.NumActions()), next, true)
	test.That(t, same, test.ShouldEqual, next)
	test.That(t, penalty, test.ShouldEqual, xytheta.FatalObstacleCost)

	fatal := xytheta.NewEnvironment(space)
	fatal.AddObstacleAllThetas(box, xytheta.FatalObstacleCost)
	_, penalty = fatal.ApplyAction(primgen.ActionForward, xytheta.NewGraphState(5, 0, 0).ID(), true)
	test.That(t, penalty, test.ShouldBeGreaterThanOrEqualTo, xytheta.FatalObstacleCost)
}

func TestSuccessors(t *testing.T) {
	space := defaultSpace(t)
	env := xytheta.NewEnvironment(space)
	env.AddObstacleAllThetas(rotatedRect(t, 51, -9, 79, -9, 18), 50)
	env.AddObstacleAllThetas(rotatedRect(t, 20, 25, 60, 25, 20), xytheta.FatalObstacleCost)

	start := xytheta.NewGraphState(3, 1, 1)
	it := env.GetSuccessors(start.ID(), 2, false)
	count := 0
	for it.Next() {
		succ := it.Front()
		count++
		next, penalty := env.ApplyAction(succ.Action, start.ID(), true)
		test.That(t, succ.StateID, test.ShouldEqual, next)
		test.That(t, succ.Penalty, test.ShouldAlmostEqual, penalty)
		prim, ok := space.Primitive(start.Theta, succ.Action)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, succ.G, test.ShouldAlmostEqual, 2+prim.Cost+penalty)
		test.That(t, succ.Penalty, test.ShouldBeLessThan, xytheta.FatalObstacleCost)

		// every forward edge shows up when walking backwards from its end
		found := false
		back := env.GetSuccessors(succ.StateID, 0, true)
		for back.Next() {
			pred := back.Front()
			if pred.StateID == start.ID() && pred.Action == succ.Action {
				found = true
				test.That(t, pred.Penalty, test.ShouldAlmostEqual, succ.Penalty)
			}
		}
		test.That(t, found, test.ShouldBeTrue)
	}
	test.That(t, count, test.ShouldBeGreaterThan, 0)
	test.That(t, count, test.ShouldBeLessThan, space.NumActions())

	// and every backward edge is a real forward one
	goal := xytheta.NewGraphState(6, 1, 0)
	back := env.GetSuccessors(goal.ID(), 1, true)
	for back.Next() {
		pred := back.Front()
		next, penalty := env.ApplyAction(pred.Action, pred.StateID, true)
		test.That(t, next, test.ShouldEqual, goal.ID())
		test.That(t, pred.Penalty, test.ShouldAlmostEqual, penalty)
		test.That(t, penalty, test.ShouldBeLessThan, xytheta.FatalObstacleCost)
	}
}

func TestRoundSafe(t *testing.T) {
	space := defaultSpace(t)
	env := xytheta.NewEnvironment(space)

	g, ok := env.RoundSafe(xytheta.NewState(14, 16, 0.1))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, g, test.ShouldResemble, xytheta.NewGraphState(1, 2, 0))

	env.AddObstacleAllThetas(rotatedRect(t, 200, -10, 230, -10, 20), xytheta.FatalObstacleCost)
	g, ok = env.RoundSafe(xytheta.NewState(198.7, 0, 0))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, g, test.ShouldResemble, xytheta.NewGraphState(19, 0, 0))

	// the nearest cell is blocked but a farther corner is not
	g, ok = env.RoundSafe(xytheta.NewState(203, 10.5, 0))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, g, test.ShouldResemble, xytheta.NewGraphState(20, 2, 0))

	_, ok = env.RoundSafe(xytheta.NewState(210, -1.7, 2.34))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestEnvironmentJSON(t *testing.T) {
	space := defaultSpace(t)
	env := xytheta.NewEnvironment(space)
	env.AddObstacleAllThetas(rotatedRect(t, 51, -9, 79, -9, 18), 50)
	footprint, err := spatialmath.NewAxisAlignedRectangle(-10, -10, 30, 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, env.AddObstacleWithRobotFootprint(rotatedRect(t, 200, 0, 230, 30, 10), footprint, xytheta.FatalObstacleCost),
		test.ShouldBeNil)

	data, err := json.Marshal(env)
	test.That(t, err, test.ShouldBeNil)

	loaded := xytheta.NewEnvironment(space)
	loaded.AddObstacleAllThetas(rotatedRect(t, -51, -9, -79, -9, 18), 50)
	test.That(t, loaded.Import(data), test.ShouldBeNil)
	test.That(t, loaded.NumObstacles(), test.ShouldEqual, 2)
	for theta := xytheta.GraphTheta(0); int(theta) < space.NumAngles(); theta++ {
		for x := -100.; x <= 300; x += 5 {
			for y := -50.; y <= 80; y += 5 {
				s := xytheta.NewState(x, y, space.LookupTheta(theta))
				p0, ok0 := env.GetMaxPenalty(s)
				p1, ok1 := loaded.GetMaxPenalty(s)
				test.That(t, ok1, test.ShouldEqual, ok0)
				test.That(t, p1, test.ShouldEqual, p0)
			}
		}
	}

	t.Run("wrong resolution", func(t *testing.T) {
		test.That(t, loaded.Import([]byte(`{"resolution_mm": 20}`)), test.ShouldNotBeNil)
	})
	t.Run("wrong angle count", func(t *testing.T) {
		test.That(t, loaded.Import([]byte(`{"obstacles": {"angles": [{"obstacles": []}]}}`)), test.ShouldNotBeNil)
	})
	t.Run("no obstacles", func(t *testing.T) {
		test.That(t, loaded.Import([]byte(`{"resolution_mm": 10}`)), test.ShouldBeNil)
		test.That(t, loaded.NumObstacles(), test.ShouldEqual, 0)
	})
}

func TestPlannerContextRoundTrip(t *testing.T) {
	space := defaultSpace(t)
	pc := xytheta.NewPlannerContext(xytheta.NewEnvironment(space))
	pc.Env.AddObstacleAllThetas(rotatedRect(t, 150, -10, 250, -10, 20), 10)
	pc.Start = xytheta.NewState(0, 1, 0.57)
	pc.SetGoal(0, xytheta.NewState(-100, 3, -1.5))
	pc.SetGoal(6, xytheta.NewState(-50, 1, -1.5))
	pc.SetGoal(0, xytheta.NewState(42.1, 27.99, 0.57))
	pc.AllowFreeTurnInPlaceAtGoal = true
	test.That(t, len(pc.Goals), test.ShouldEqual, 2)

	goal, ok := pc.Goal(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal, test.ShouldResemble, xytheta.NewState(42.1, 27.99, 0.57))
	_, ok = pc.Goal(3)
	test.That(t, ok, test.ShouldBeFalse)

	data, err := json.Marshal(pc)
	test.That(t, err, test.ShouldBeNil)
	filename := filepath.Join(t.TempDir(), "context.json")
	test.That(t, os.WriteFile(filename, data, 0o600), test.ShouldBeNil)

	loaded, err := xytheta.ReadPlannerContext(filename, space)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Start, test.ShouldResemble, pc.Start)
	test.That(t, loaded.Goals, test.ShouldResemble, pc.Goals)
	test.That(t, loaded.AllowFreeTurnInPlaceAtGoal, test.ShouldBeTrue)
	test.That(t, loaded.ForceReplanFromScratch, test.ShouldBeFalse)
	test.That(t, loaded.Env.NumObstacles(), test.ShouldEqual, 1)
	test.That(t, loaded.Env.GetCollisionPenalty(xytheta.NewGraphState(20, 0, 4)), test.ShouldEqual, 10.)

	test.That(t, (&xytheta.PlannerContext{}).Import(data), test.ShouldNotBeNil)
	_, err = xytheta.ReadPlannerContext(filepath.Join(t.TempDir(), "missing.json"), space)
	test.That(t, err, test.ShouldNotBeNil)
}

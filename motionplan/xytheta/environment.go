package xytheta

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/latticeplanner/spatialmath"
)

const (
	// FatalObstacleCost marks an obstacle that cannot be entered. Any action whose penalty
	// reaches it is dropped.
	FatalObstacleCost = 1000.
	// MaxObstacleCost is the largest meaningful obstacle cost.
	MaxObstacleCost = FatalObstacleCost
	// DefaultObstacleCost is the cost given to imported world obstacles.
	DefaultObstacleCost = 0.1
)

// Obstacle is a configuration space polygon and the cost per unit distance of driving through it.
type Obstacle struct {
	Poly *spatialmath.FastPolygon
	Cost float64
}

// IsFatal reports whether the obstacle cannot be entered.
func (o Obstacle) IsFatal() bool {
	return o.Cost >= FatalObstacleCost
}

// Environment holds the obstacles, per heading, that the planner searches around.
type Environment struct {
	space     *ActionSpace
	obstacles [][]Obstacle
	allBounds r2.Rect
}

// NewEnvironment returns an environment without obstacles.
func NewEnvironment(space *ActionSpace) *Environment {
	env := &Environment{space: space}
	env.ClearObstacles()
	return env
}

// ActionSpace returns the motion primitives the environment was built for.
func (env *Environment) ActionSpace() *ActionSpace {
	return env.space
}

// ClearObstacles removes every obstacle.
func (env *Environment) ClearObstacles() {
	env.obstacles = make([][]Obstacle, env.space.NumAngles())
	env.allBounds = r2.EmptyRect()
}

// NumObstacles returns the number of obstacles at heading 0.
func (env *Environment) NumObstacles() int {
	return len(env.obstacles[0])
}

// Obstacles returns the obstacles at one heading.
func (env *Environment) Obstacles(theta GraphTheta) []Obstacle {
	return env.obstacles[theta]
}

func (env *Environment) addObstacle(theta GraphTheta, poly *spatialmath.FastPolygon, cost float64) {
	env.obstacles[theta] = append(env.obstacles[theta], Obstacle{Poly: poly, Cost: cost})
	env.allBounds = env.allBounds.Union(poly.Bounds())
}

// AddObstacleAllThetas adds `poly`, which must already be in configuration space, at every heading.
func (env *Environment) AddObstacleAllThetas(poly spatialmath.ConvexPolygon, cost float64) {
	fast := spatialmath.NewFastPolygon(poly)
	for theta := range env.obstacles {
		env.addObstacle(GraphTheta(theta), fast, cost)
	}
}

// AddObstacleWithExpansion expands `obstacle` by the robot footprint and adds it at one heading.
// The footprint must already be rotated to that heading. The expanded polygon is returned.
func (env *Environment) AddObstacleWithExpansion(obstacle, robot spatialmath.ConvexPolygon, theta GraphTheta,
	cost float64,
) (spatialmath.ConvexPolygon, error) {
	if int(theta) >= len(env.obstacles) {
		return spatialmath.ConvexPolygon{}, errors.Errorf("theta %d out of range", theta)
	}
	expanded, err := spatialmath.ExpandCSpace(obstacle, robot)
	if err != nil {
		return spatialmath.ConvexPolygon{}, err
	}
	env.addObstacle(theta, expanded, cost)
	return expanded.Polygon(), nil
}

// AddObstacleWithRobotFootprint expands `obstacle` by `footprint`, rotated to each heading, and adds
// the result at every heading. The footprint is given with the robot at the origin facing +x.
func (env *Environment) AddObstacleWithRobotFootprint(obstacle, footprint spatialmath.ConvexPolygon, cost float64) error {
	for theta := range env.obstacles {
		rotated := footprint.Rotate(env.space.LookupTheta(GraphTheta(theta)))
		if _, err := env.AddObstacleWithExpansion(obstacle, rotated, GraphTheta(theta), cost); err != nil {
			return errors.Wrapf(err, "expanding obstacle at theta %d", theta)
		}
	}
	return nil
}

// ReplaceObstaclesWithExpansion replaces every obstacle with `obstacles`, each expanded by
// robots[theta] at heading theta. An obstacle that can't be expanded at some heading is left out at
// every heading and reported in the returned error. Nothing changes if robots doesn't have one
// footprint per heading.
func (env *Environment) ReplaceObstaclesWithExpansion(obstacles, robots []spatialmath.ConvexPolygon, cost float64) error {
	if len(robots) != len(env.obstacles) {
		return errors.Errorf("got %d robot footprints for %d headings", len(robots), len(env.obstacles))
	}
	expanded := make([][]*spatialmath.FastPolygon, 0, len(obstacles))
	var errs error
	for i, obstacle := range obstacles {
		perTheta := make([]*spatialmath.FastPolygon, len(robots))
		var err error
		for theta, robot := range robots {
			if perTheta[theta], err = spatialmath.ExpandCSpace(obstacle, robot); err != nil {
				err = errors.Wrapf(err, "obstacle %d at theta %d", i, theta)
				break
			}
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		expanded = append(expanded, perTheta)
	}

	env.ClearObstacles()
	for _, perTheta := range expanded {
		for theta, poly := range perTheta {
			env.addObstacle(GraphTheta(theta), poly, cost)
		}
	}
	return errs
}

// PrepareForPlanning orders each obstacle's edge checks for faster containment tests.
func (env *Environment) PrepareForPlanning() {
	seen := make(map[*spatialmath.FastPolygon]struct{})
	for _, obstacles := range env.obstacles {
		for _, obs := range obstacles {
			if _, ok := seen[obs.Poly]; ok {
				continue
			}
			seen[obs.Poly] = struct{}{}
			obs.Poly.SortEdgeVectors()
		}
	}
}

// IsInCollision reports whether the pose is inside a fatal obstacle at its nearest heading.
func (env *Environment) IsInCollision(s State) bool {
	return env.isInFatalObstacle(env.space.ThetaIndex(s.Theta), s.XMM, s.YMM)
}

// IsInCollisionGraph reports whether the cell is inside a fatal obstacle.
func (env *Environment) IsInCollisionGraph(g GraphState) bool {
	c := env.space.GraphToState(g)
	return env.isInFatalObstacle(g.Theta, c.XMM, c.YMM)
}

func (env *Environment) isInFatalObstacle(theta GraphTheta, x, y float64) bool {
	for _, obs := range env.obstacles[theta] {
		if obs.IsFatal() && obs.Poly.ContainsXY(x, y) {
			return true
		}
	}
	return false
}

// IsInSoftCollision reports whether the cell is inside any obstacle.
func (env *Environment) IsInSoftCollision(g GraphState) bool {
	c := env.space.GraphToState(g)
	for _, obs := range env.obstacles[g.Theta] {
		if obs.Poly.ContainsXY(c.XMM, c.YMM) {
			return true
		}
	}
	return false
}

// GetCollisionPenalty returns the cost of the first obstacle containing the cell, or 0.
func (env *Environment) GetCollisionPenalty(g GraphState) float64 {
	c := env.space.GraphToState(g)
	for _, obs := range env.obstacles[g.Theta] {
		if obs.Poly.ContainsXY(c.XMM, c.YMM) {
			return obs.Cost
		}
	}
	return 0
}

// GetMaxPenalty returns the highest cost among obstacles containing the pose at its nearest
// heading, and whether any does.
func (env *Environment) GetMaxPenalty(s State) (float64, bool) {
	found := false
	maxCost := 0.
	for _, obs := range env.obstacles[env.space.ThetaIndex(s.Theta)] {
		if obs.Poly.ContainsXY(s.XMM, s.YMM) {
			found = true
			maxCost = math.Max(maxCost, obs.Cost)
		}
	}
	return maxCost, found
}

// primitivePenalty sums the penalty of every sample of `prim` applied at `start`, returning as soon
// as the sum reaches maxPenalty.
func (env *Environment) primitivePenalty(start GraphState, prim *MotionPrimitive, maxPenalty float64) float64 {
	x0 := float64(start.X) * env.space.resolutionMM
	y0 := float64(start.Y) * env.space.resolutionMM
	if !spatialmath.TranslateRect(prim.Bounds(), r2.Point{X: x0, Y: y0}).Intersects(env.allBounds) {
		return 0
	}

	penalty := 0.
	for _, pt := range prim.IntermediatePositions {
		x := x0 + pt.Position.XMM
		y := y0 + pt.Position.YMM
		for _, obs := range env.obstacles[pt.NearestTheta] {
			if obs.Poly.ContainsXY(x, y) {
				penalty += obs.Cost * pt.InverseDist
				if penalty >= maxPenalty {
					return penalty
				}
			}
		}
	}
	return penalty
}

// ApplyAction returns the state reached by taking `action` from `id` and, when checkCollisions is
// set, the penalty paid on the way. An action that does not exist costs FatalObstacleCost.
func (env *Environment) ApplyAction(action ActionID, id StateID, checkCollisions bool) (StateID, float64) {
	curr := id.GraphState()
	prim, ok := env.space.Primitive(curr.Theta, action)
	if !ok {
		return id, FatalObstacleCost
	}
	penalty := 0.
	if checkCollisions {
		penalty = env.primitivePenalty(curr, prim, FatalObstacleCost)
	}
	return applyOffset(curr, prim).ID(), penalty
}

// RoundSafe returns the cell nearest to `s`, among the corners of the cell square containing it,
// that is not in a fatal obstacle.
func (env *Environment) RoundSafe(s State) (GraphState, bool) {
	res := env.space.resolutionMM
	theta := env.space.ThetaIndex(s.Theta)
	best := GraphState{}
	bestDistSq := math.Inf(1)
	found := false
	for x := math.Floor(s.XMM / res); x <= math.Ceil(s.XMM/res); x++ {
		for y := math.Floor(s.YMM / res); y <= math.Ceil(s.YMM/res); y++ {
			candidate := GraphState{X: GraphXY(x), Y: GraphXY(y), Theta: theta}
			if env.IsInCollisionGraph(candidate) {
				continue
			}
			distSq := (x*res-s.XMM)*(x*res-s.XMM) + (y*res-s.YMM)*(y*res-s.YMM)
			if distSq < bestDistSq {
				best = candidate
				bestDistSq = distSq
				found = true
			}
		}
	}
	return best, found
}

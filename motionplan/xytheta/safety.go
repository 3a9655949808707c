package xytheta

import (
	"math"

	"go.viam.com/latticeplanner/motionplan/path"
	"go.viam.com/latticeplanner/utils"
)

const (
	// ReplanPenaltyBuffer is how much more penalty an action of an old plan may cost now, compared
	// to when it was planned, before the plan is considered unsafe.
	ReplanPenaltyBuffer = 0.5

	pathPositionSamplesPerMM  = 4.
	pathAngleSamplesPerRadian = 32 / math.Pi
)

// PlanIsSafe re-checks every action of `plan` after the first currentPathIndex ones against the
// current obstacles. The plan is unsafe if any action now pays more than ReplanPenaltyBuffer over
// the penalty stored in the plan, or is blocked. The returned plan holds the checked actions that
// start within maxDistanceMM of the robot, which is assumed to be at the end of the skipped
// actions, and the returned state is where that plan ends. An empty plan is never safe.
func (env *Environment) PlanIsSafe(plan *Plan, maxDistanceMM float64, currentPathIndex int) (State, *Plan, bool) {
	curr := plan.Start.ID()
	for i := 0; i < currentPathIndex && i < plan.Size(); i++ {
		curr, _ = env.ApplyAction(plan.Action(i), curr, false)
	}

	robot := env.space.GraphToState(curr.GraphState())
	lastSafe := curr
	validPlan := &Plan{Start: curr.GraphState()}
	if plan.Empty() {
		return robot, validPlan, false
	}

	extendValid := true
	for i := currentPathIndex; i < plan.Size(); i++ {
		var penalty float64
		curr, penalty = env.ApplyAction(plan.Action(i), curr, true)
		if penalty > plan.Penalty(i)+ReplanPenaltyBuffer {
			return env.space.GraphToState(lastSafe.GraphState()), validPlan, false
		}

		if extendValid {
			validPlan.Push(plan.Action(i), plan.Penalty(i))
			lastSafe = curr
			if env.space.GraphToState(curr.GraphState()).DistXY(robot) > maxDistanceMM {
				extendValid = false
			}
		}
	}
	return env.space.GraphToState(lastSafe.GraphState()), validPlan, true
}

// ApplyPathSegment samples the segment from `s`, at most a quarter millimeter and pi/32 radians
// apart, and sums the penalty of every sample inside an obstacle. If the penalty stays below
// maxPenalty the segment's end pose is returned, otherwise `s` is returned unchanged along with the
// penalty reached so far.
func (env *Environment) ApplyPathSegment(seg path.Segment, s State, checkCollisions bool, maxPenalty float64) (State, float64) {
	endPt, endAngle := seg.EndPose()
	end := State{XMM: endPt.X, YMM: endPt.Y, Theta: endAngle}
	if !checkCollisions {
		return end, 0
	}

	length := seg.Length()
	numPoints := max(2, int(math.Ceil(1+length*pathPositionSamplesPerMM)))
	var sweep float64
	switch seg.Type {
	case path.SegmentArc:
		sweep = seg.Arc.SweepRad
	case path.SegmentPointTurn:
		sweep = utils.AngleDiff(seg.Turn.TargetAngle, s.Theta)
	}
	numPoints = max(numPoints, int(math.Ceil(math.Abs(sweep)*pathAngleSamplesPerRadian)))
	step := 1 / float64(numPoints-1)

	var inverseDist float64
	if seg.Type == path.SegmentPointTurn {
		if !utils.NearZero(sweep) {
			inverseDist = float64(numPoints-1) / math.Abs(sweep)
		}
	} else {
		inverseDist = float64(numPoints-1) / length
	}

	penalty := 0.
	sample := s
	for i := 1; i < numPoints; i++ {
		f := step * float64(i)
		switch seg.Type {
		case path.SegmentPointTurn:
			sample.Theta = s.Theta + f*sweep
		case path.SegmentLine:
			sample.XMM = s.XMM + f*(seg.Line.EndX-seg.Line.StartX)
			sample.YMM = s.YMM + f*(seg.Line.EndY-seg.Line.StartY)
		case path.SegmentArc:
			a := seg.Arc.StartRad + f*sweep
			sample.XMM = seg.Arc.CenterX + seg.Arc.Radius*math.Cos(a)
			sample.YMM = seg.Arc.CenterY + seg.Arc.Radius*math.Sin(a)
			sample.Theta = s.Theta + f*sweep
		}

		theta := env.space.ThetaIndex(sample.Theta)
		for _, obs := range env.obstacles[theta] {
			if obs.Poly.ContainsXY(sample.XMM, sample.YMM) {
				penalty += obs.Cost * inverseDist
				if penalty >= maxPenalty {
					return s, penalty
				}
			}
		}
	}
	return end, penalty
}

// PathIsSafe checks the path, starting with heading startAngle, and returns the prefix of segments
// that touch no obstacle along with whether that prefix is the whole path.
func (env *Environment) PathIsSafe(p *path.Path, startAngle float64) (*path.Path, bool) {
	validPath := &path.Path{}
	if p.NumSegments() == 0 {
		return validPath, false
	}

	start := p.Segment(0).StartPoint()
	curr := State{XMM: start.X, YMM: start.Y, Theta: startAngle}
	total := 0.
	for _, seg := range p.Segments() {
		next, penalty := env.ApplyPathSegment(seg, curr, true, utils.FloatTolerance)
		total += penalty
		if total > utils.FloatTolerance {
			return validPath, false
		}
		validPath.AppendSegment(seg)
		curr = next
	}
	return validPath, true
}

// FindClosestPlanSegmentToPose returns the index of the plan action that passes closest to `s`,
// and that distance. An action whose start or samples round to the same cell as `s` is returned
// immediately with distance 0.
func (env *Environment) FindClosestPlanSegmentToPose(plan *Plan, s State) (int, float64) {
	target := env.space.StateToGraph(s)
	closest := 0
	closestDist := math.Inf(1)

	curr := plan.Start.ID()
	for i := 0; i < plan.Size(); i++ {
		if curr.GraphState() == target {
			return i, 0
		}
		if d := env.space.GraphToState(curr.GraphState()).DistXY(s); d < closestDist {
			closest = i
			closestDist = d
		}
		curr, _ = env.ApplyAction(plan.Action(i), curr, false)
	}

	curr = plan.Start.ID()
	for i := 0; i < plan.Size(); i++ {
		g := curr.GraphState()
		prim, ok := env.space.Primitive(g.Theta, plan.Action(i))
		if !ok {
			break
		}
		origin := env.space.GraphToState(g)
		// the last sample is the next action's start, checked above
		for _, pt := range prim.IntermediatePositions[:max(0, len(prim.IntermediatePositions)-1)] {
			abs := State{XMM: origin.XMM + pt.Position.XMM, YMM: origin.YMM + pt.Position.YMM, Theta: pt.Position.Theta}
			if env.space.StateToGraph(abs) == target {
				return i, 0
			}
			if d := math.Hypot(s.XMM-origin.XMM-pt.Position.XMM, s.YMM-origin.YMM-pt.Position.YMM); d < closestDist {
				closest = i
				closestDist = d
			}
		}
		curr = applyOffset(g, prim).ID()
	}
	return closest, closestDist
}

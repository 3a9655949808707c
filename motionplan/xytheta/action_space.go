package xytheta

import (
	"fmt"
	"math"
	"strings"

	"go.viam.com/latticeplanner/motionplan/path"
)

type reversePrim struct {
	startTheta GraphTheta
	action     ActionID
}

// ActionSpace is the loaded motion primitive library along with the lattice parameters it was built for.
type ActionSpace struct {
	resolutionMM    float64
	numAngles       int
	radiansPerAngle float64
	angles          []float64
	actionTypes     []ActionType
	robot           RobotParams

	// prims[theta][action]
	prims [][]MotionPrimitive
	// reverse[endTheta] lists the forward primitives ending at endTheta
	reverse [][]reversePrim
}

func (as *ActionSpace) populateReversePrims() {
	as.reverse = make([][]reversePrim, as.numAngles)
	for startTheta, prims := range as.prims {
		for _, prim := range prims {
			end := prim.EndStateOffset.Theta
			as.reverse[end] = append(as.reverse[end], reversePrim{GraphTheta(startTheta), prim.ID})
		}
	}
}

// ResolutionMM returns the size of a lattice cell.
func (as *ActionSpace) ResolutionMM() float64 {
	return as.resolutionMM
}

// NumAngles returns the number of discrete headings.
func (as *ActionSpace) NumAngles() int {
	return as.numAngles
}

// RadiansPerAngle returns 2*pi / NumAngles.
func (as *ActionSpace) RadiansPerAngle() float64 {
	return as.radiansPerAngle
}

// RobotParams returns the drive base the primitives were built for.
func (as *ActionSpace) RobotParams() RobotParams {
	return as.robot
}

// NumActions returns the number of action types.
func (as *ActionSpace) NumActions() int {
	return len(as.actionTypes)
}

// ActionType returns the action with the given id.
func (as *ActionSpace) ActionType(id ActionID) (ActionType, bool) {
	if int(id) >= len(as.actionTypes) {
		return ActionType{}, false
	}
	return as.actionTypes[id], true
}

// ActionTypes returns every action type.
func (as *ActionSpace) ActionTypes() []ActionType {
	return append([]ActionType(nil), as.actionTypes...)
}

// LookupTheta returns the continuous heading of a discrete one.
func (as *ActionSpace) LookupTheta(theta GraphTheta) float64 {
	return as.angles[theta]
}

// ThetaIndex returns the discrete heading nearest to theta.
func (as *ActionSpace) ThetaIndex(theta float64) GraphTheta {
	idx := int(math.Round(theta/as.radiansPerAngle)) % as.numAngles
	if idx < 0 {
		idx += as.numAngles
	}
	return GraphTheta(idx)
}

// StateToGraph returns the lattice cell nearest to a continuous pose.
func (as *ActionSpace) StateToGraph(s State) GraphState {
	return GraphState{
		X:     GraphXY(math.Round(s.XMM / as.resolutionMM)),
		Y:     GraphXY(math.Round(s.YMM / as.resolutionMM)),
		Theta: as.ThetaIndex(s.Theta),
	}
}

// GraphToState returns the continuous pose of a lattice cell.
func (as *ActionSpace) GraphToState(g GraphState) State {
	return State{
		XMM:   float64(g.X) * as.resolutionMM,
		YMM:   float64(g.Y) * as.resolutionMM,
		Theta: as.angles[g.Theta],
	}
}

// Primitive returns the primitive for `action` starting at heading `theta`.
func (as *ActionSpace) Primitive(theta GraphTheta, action ActionID) (*MotionPrimitive, bool) {
	if int(theta) >= len(as.prims) || int(action) >= len(as.prims[theta]) {
		return nil, false
	}
	return &as.prims[theta][action], true
}

// Primitives returns every primitive starting at heading `theta`.
func (as *ActionSpace) Primitives(theta GraphTheta) []MotionPrimitive {
	return as.prims[theta]
}

// applyOffset returns the state reached by applying `prim` at `s`.
func applyOffset(s GraphState, prim *MotionPrimitive) GraphState {
	return GraphState{
		X:     s.X + prim.EndStateOffset.X,
		Y:     s.Y + prim.EndStateOffset.Y,
		Theta: prim.EndStateOffset.Theta,
	}
}

// GetPlanFinalState returns the state the plan ends in.
func (as *ActionSpace) GetPlanFinalState(plan *Plan) GraphState {
	curr := plan.Start
	for _, a := range plan.Actions {
		prim, ok := as.Primitive(curr.Theta, a.Action)
		if !ok {
			return curr
		}
		curr = applyOffset(curr, prim)
	}
	return curr
}

// AppendToPath adds the segments of every action after the first `skipActions` to `p`.
func (as *ActionSpace) AppendToPath(plan *Plan, p *path.Path, skipActions int) {
	curr := plan.Start
	for i, a := range plan.Actions {
		prim, ok := as.Primitive(curr.Theta, a.Action)
		if !ok {
			return
		}
		if i >= skipActions {
			prim.AddSegmentsToPath(as.GraphToState(curr), p)
		}
		curr = applyOffset(curr, prim)
	}
}

// ConvertToXYPlan returns every continuous pose visited by the plan's samples, in order.
func (as *ActionSpace) ConvertToXYPlan(plan *Plan) []State {
	curr := plan.Start
	out := []State{as.GraphToState(curr)}
	for _, a := range plan.Actions {
		prim, ok := as.Primitive(curr.Theta, a.Action)
		if !ok {
			break
		}
		origin := as.GraphToState(curr)
		for _, pt := range prim.IntermediatePositions {
			out = append(out, State{
				XMM:   origin.XMM + pt.Position.XMM,
				YMM:   origin.YMM + pt.Position.YMM,
				Theta: pt.Position.Theta,
			})
		}
		curr = applyOffset(curr, prim)
	}
	return out
}

// PlanString renders the plan one action per line.
func (as *ActionSpace) PlanString(plan *Plan) string {
	var sb strings.Builder
	curr := plan.Start
	for _, a := range plan.Actions {
		name := fmt.Sprintf("action %d", a.Action)
		if at, ok := as.ActionType(a.Action); ok {
			name = at.Name
		}
		fmt.Fprintf(&sb, "%v %-20s penalty = %f\n", curr, name, a.Penalty)
		prim, ok := as.Primitive(curr.Theta, a.Action)
		if !ok {
			break
		}
		curr = applyOffset(curr, prim)
	}
	fmt.Fprintf(&sb, "%v\n", curr)
	return sb.String()
}

package xytheta

import (
	"fmt"
	"strings"
)

// PlanAction is one step of a plan along with the obstacle penalty paid while taking it.
type PlanAction struct {
	Action  ActionID `json:"action"`
	Penalty float64  `json:"penalty"`
}

// Plan is a sequence of actions from a start state.
type Plan struct {
	Start   GraphState   `json:"start"`
	Actions []PlanAction `json:"actions"`
}

// Size returns the number of actions.
func (p *Plan) Size() int {
	return len(p.Actions)
}

// Empty reports whether the plan has no actions.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

// Push appends one action.
func (p *Plan) Push(action ActionID, penalty float64) {
	p.Actions = append(p.Actions, PlanAction{Action: action, Penalty: penalty})
}

// Append appends every action of `other`. An empty plan takes other's start.
func (p *Plan) Append(other *Plan) {
	if len(p.Actions) == 0 {
		p.Start = other.Start
	}
	p.Actions = append(p.Actions, other.Actions...)
}

// Clear removes every action.
func (p *Plan) Clear() {
	p.Actions = nil
}

// Action returns the i-th action id.
func (p *Plan) Action(i int) ActionID {
	return p.Actions[i].Action
}

// Penalty returns the penalty paid during the i-th action.
func (p *Plan) Penalty(i int) float64 {
	return p.Actions[i].Penalty
}

// Copy returns a plan that shares nothing with p.
func (p *Plan) Copy() *Plan {
	return &Plan{Start: p.Start, Actions: append([]PlanAction(nil), p.Actions...)}
}

func (p *Plan) String() string {
	parts := make([]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		parts = append(parts, fmt.Sprintf("%d", a.Action))
	}
	return fmt.Sprintf("start %v: [%s]", p.Start, strings.Join(parts, " "))
}

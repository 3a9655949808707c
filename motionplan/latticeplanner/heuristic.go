package latticeplanner

import (
	"context"
	"math"

	"go.opencensus.io/trace"

	"go.viam.com/latticeplanner/motionplan/xytheta"
)

// initializeHeuristic finds, for every goal inside a soft obstacle, how much it costs to leave that
// obstacle. Goals that are too expensive to leave are dropped.
func (p *Planner) initializeHeuristic(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "latticeplanner::initializeHeuristic")
	defer span.End()

	env := p.pc.Env
	kept := p.goals[:0]
	for _, goal := range p.goals {
		goal.costOutside = 0
		if env.IsInSoftCollision(goal.graph) {
			cost, err := p.expandCollisionStatesFromGoal(ctx, goal.id)
			if err != nil {
				return err
			}
			goal.costOutside = cost
			p.logger.CDebugw(ctx, "goal is in soft collision", "goal", goal.goalID, "cost_outside", cost)
		}
		if goal.costOutside > p.opts.MaxCostHeurExpansions {
			p.logger.Warnw("dropping goal that is too expensive to leave its obstacle",
				"goal", goal.goalID,
				"cost_outside", goal.costOutside,
				"max", p.opts.MaxCostHeurExpansions)
			continue
		}
		kept = append(kept, goal)
	}
	p.goals = kept
	p.indexGoals()

	if len(p.goals) == 0 {
		return ErrNoValidGoals
	}
	return nil
}

// expandCollisionStatesFromGoal searches backwards from `goal` through soft collision, storing the
// cost-to-goal of every soft state it reaches in the heuristic map. It returns the cheapest cost at
// which the search left the obstacle, or the cost it had reached if it gave up first.
func (p *Planner) expandCollisionStatesFromGoal(ctx context.Context, goal xytheta.StateID) (float64, error) {
	env := p.pc.Env
	p.heurMap[goal] = 0

	visited := map[xytheta.StateID]struct{}{}
	open := NewOpenList()
	open.Insert(goal, 0)

	numEscapes := 0
	minCostOutside := 0.
	expansions := 0
	for !open.Empty() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		curr, cost, _ := open.Pop()

		if !env.IsInSoftCollision(curr.GraphState()) {
			if numEscapes == 0 {
				minCostOutside = cost
			}
			numEscapes++
			if numEscapes >= p.opts.NumEscapes {
				return minCostOutside, nil
			}
		} else {
			if old, ok := p.heurMap[curr]; !ok {
				p.heurMap[curr] = cost
				visited[curr] = struct{}{}
			} else if cost < old {
				p.heurMap[curr] = cost
			}
		}

		it := env.GetSuccessors(curr, cost, true)
		for it.Next() {
			succ := it.Front()
			if _, ok := visited[succ.StateID]; ok {
				continue
			}
			open.Insert(succ.StateID, succ.G)
		}

		expansions++
		p.stats.HeurExpansions++
		if expansions > p.opts.MaxHeurExpansions {
			return cost, nil
		}
	}
	return minCostOutside, nil
}

// heuristic estimates the cost from `id` to the cheapest active goal.
func (p *Planner) heuristic(id xytheta.StateID) float64 {
	if h, ok := p.heurMap[id]; ok {
		return h
	}

	space := p.pc.Env.ActionSpace()
	pose := space.GraphToState(id.GraphState())
	oneOverMaxVel := space.RobotParams().OneOverMaxVelocity()
	best := math.Inf(1)
	for _, goal := range p.goals {
		best = math.Min(best, goal.rounded.DistXY(pose)*oneOverMaxVel+goal.costOutside)
	}
	return best
}

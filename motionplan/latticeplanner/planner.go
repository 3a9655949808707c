// Package latticeplanner searches the xytheta lattice for the cheapest plan from a start pose to any
// of a set of goal poses, and keeps that plan for as long as it stays safe.
package latticeplanner

import (
	"context"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/path"
	"go.viam.com/latticeplanner/motionplan/xytheta"
)

// Stats describe the most recent search.
type Stats struct {
	Expansions     uint32
	Considerations uint32
	HeurExpansions uint32

	// SearchNum counts the searches run from scratch by this planner.
	SearchNum int

	// LastPlanTime is how long the last Replan call took.
	LastPlanTime time.Duration
}

type goalKey struct {
	goalID xytheta.GoalID
	id     xytheta.StateID
}

// activeGoal is a goal that passed validation.
type activeGoal struct {
	goalID xytheta.GoalID
	graph  xytheta.GraphState
	id     xytheta.StateID

	// rounded is the continuous pose of the goal's cell.
	rounded     xytheta.State
	costOutside float64
}

// Planner runs A* over the lattice described by a caller owned PlannerContext. A Planner is not safe
// for concurrent use and the context must not change while Replan is running.
type Planner struct {
	pc     *xytheta.PlannerContext
	opts   *PlannerOptions
	logger logging.Logger
	clock  clock.Clock

	start   xytheta.GraphState
	startID xytheta.StateID
	hasRun  bool

	goals      []activeGoal
	goalsByID  map[xytheta.StateID]xytheta.GoalID
	cachedKeys []goalKey

	heurMap map[xytheta.StateID]float64
	table   *StateTable
	open    *OpenList

	plan         *xytheta.Plan
	chosenGoalID xytheta.GoalID
	goalStateID  xytheta.StateID
	finalCost    float64
	stats        Stats
}

// New returns a planner that reads `pc` each time it plans. Nil options mean the defaults.
func New(pc *xytheta.PlannerContext, opts *PlannerOptions, logger logging.Logger) *Planner {
	if opts == nil {
		opts = NewBasicPlannerOptions()
	}
	return &Planner{
		pc:        pc,
		opts:      opts,
		logger:    logger,
		clock:     clock.New(),
		goalsByID: map[xytheta.StateID]xytheta.GoalID{},
		heurMap:   map[xytheta.StateID]float64{},
		table:     NewStateTable(),
		open:      NewOpenList(),
		plan:      &xytheta.Plan{},
	}
}

// SetClock replaces the clock used to time searches.
func (p *Planner) SetClock(c clock.Clock) {
	p.clock = c
}

// Context returns the context the planner reads.
func (p *Planner) Context() *xytheta.PlannerContext {
	return p.pc
}

// validPose returns the cell a start or goal pose plans from. A pose inside a fatal obstacle is
// invalid. A pose whose nearest cell is blocked is moved to the closest free corner around it.
func (p *Planner) validPose(s xytheta.State) (xytheta.GraphState, bool) {
	env := p.pc.Env
	if env.IsInCollision(s) {
		return xytheta.GraphState{}, false
	}
	g := env.ActionSpace().StateToGraph(s)
	if !env.IsInCollisionGraph(g) {
		return g, true
	}
	return env.RoundSafe(s)
}

// GoalIsValid reports whether the goal exists and can be planned to.
func (p *Planner) GoalIsValid(goalID xytheta.GoalID) bool {
	s, ok := p.pc.Goal(goalID)
	if !ok {
		return false
	}
	_, ok = p.validPose(s)
	return ok
}

// GoalsAreValid reports whether at least one goal can be planned to.
func (p *Planner) GoalsAreValid() bool {
	return lo.ContainsBy(p.pc.Goals, func(g xytheta.GoalPose) bool {
		_, ok := p.validPose(g.State)
		return ok
	})
}

// StartIsValid reports whether the start can be planned from.
func (p *Planner) StartIsValid() bool {
	_, ok := p.validPose(p.pc.Start)
	return ok
}

// NeedsReplan reports whether the current plan is no longer safe to follow.
func (p *Planner) NeedsReplan() bool {
	_, _, safe := p.pc.Env.PlanIsSafe(p.plan, p.opts.ReuseDistanceMM, 0)
	return !safe
}

// validate checks the start and goals, refreshing the active goal set, and reports whether they moved
// far enough that a cached plan can't be reused.
func (p *Planner) validate(ctx context.Context) (bool, error) {
	_, span := trace.StartSpan(ctx, "latticeplanner::validate")
	defer span.End()

	space := p.pc.Env.ActionSpace()
	goals := make([]activeGoal, 0, len(p.pc.Goals))
	for _, goal := range p.pc.Goals {
		g, ok := p.validPose(goal.State)
		if !ok {
			p.logger.Infow("goal is in collision", "goal", goal.ID, "pose", goal.State)
			continue
		}
		goals = append(goals, activeGoal{
			goalID:  goal.ID,
			graph:   g,
			id:      g.ID(),
			rounded: space.GraphToState(g),
		})
	}
	p.goals = goals
	p.indexGoals()

	start, ok := p.validPose(p.pc.Start)
	if !ok {
		p.cachedKeys = nil
		return false, errors.Wrapf(ErrInvalidStart, "start %v", p.pc.Start)
	}
	if len(goals) == 0 {
		p.cachedKeys = nil
		return false, ErrNoValidGoals
	}

	fromScratch := p.pc.ForceReplanFromScratch || !p.hasRun || start.ID() != p.startID
	keys := lo.Map(goals, func(g activeGoal, _ int) goalKey { return goalKey{goalID: g.goalID, id: g.id} })
	if !slices.Equal(keys, p.cachedKeys) {
		fromScratch = true
	}
	p.cachedKeys = keys
	p.start = start
	p.startID = start.ID()
	p.hasRun = true
	return fromScratch, nil
}

func (p *Planner) indexGoals() {
	clear(p.goalsByID)
	for _, goal := range p.goals {
		if _, ok := p.goalsByID[goal.id]; !ok {
			p.goalsByID[goal.id] = goal.goalID
		}
	}
}

// Reset drops the plan and everything learned by previous searches.
func (p *Planner) Reset() {
	p.plan.Clear()
	p.table.Clear()
	p.open.Clear()
	clear(p.heurMap)
	p.finalCost = 0
	searchNum := p.stats.SearchNum
	p.stats = Stats{SearchNum: searchNum + 1}
}

// Replan makes sure the planner holds a safe plan from the context's start to one of its goals. If
// the start and goals haven't moved and the current plan is still safe, it is kept. Otherwise the
// lattice is searched from scratch, expanding at most maxExpansions states. Zero means the budget
// in the planner's options. On failure the planner holds no plan.
func (p *Planner) Replan(ctx context.Context, maxExpansions uint32) error {
	ctx, span := trace.StartSpan(ctx, "latticeplanner::Replan")
	defer span.End()

	if maxExpansions == 0 {
		maxExpansions = p.opts.MaxExpansions
	}
	started := p.clock.Now()
	defer func() {
		p.stats.LastPlanTime = p.clock.Since(started)
	}()

	fromScratch, err := p.validate(ctx)
	if err != nil {
		p.plan.Clear()
		return err
	}
	if !fromScratch && !p.NeedsReplan() {
		p.logger.CDebugw(ctx, "no replan needed", "actions", p.plan.Size())
		return nil
	}

	p.Reset()
	if err := p.initializeHeuristic(ctx); err != nil {
		return p.searchFailed(ctx, err)
	}
	if err := p.search(ctx, maxExpansions); err != nil {
		return p.searchFailed(ctx, err)
	}
	p.buildPlan()
	p.logger.CDebugw(ctx, "plan actions", "plan", p.pc.Env.ActionSpace().PlanString(p.plan))

	p.logger.Infow("plan found",
		"goal", p.chosenGoalID,
		"cost", p.finalCost,
		"actions", p.plan.Size(),
		"expansions", p.stats.Expansions,
		"considerations", p.stats.Considerations,
		"heur_expansions", p.stats.HeurExpansions,
		"time", p.clock.Since(started))
	return nil
}

func (p *Planner) searchFailed(ctx context.Context, err error) error {
	p.plan.Clear()
	p.cachedKeys = nil
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		p.logger.CDebugw(ctx, "search cancelled", "expansions", p.stats.Expansions)
		return err
	}
	p.logger.Infow("search failed", "error", err, "expansions", p.stats.Expansions)
	return err
}

func (p *Planner) search(ctx context.Context, maxExpansions uint32) error {
	ctx, span := trace.StartSpan(ctx, "latticeplanner::search")
	defer span.End()

	startEntry := p.table.Emplace(p.startID, StateEntry{
		Backpointer: p.startID,
		ClosedIter:  -1,
	})
	startEntry.OpenHandle = p.open.Insert(p.startID, 0)

	for !p.open.Empty() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sid, _, _ := p.open.Pop()
		entry := p.table.Find(sid)
		entry.OpenHandle = NullHandle

		if goalID, ok := p.goalsByID[sid]; ok {
			p.chosenGoalID = goalID
			p.goalStateID = sid
			p.finalCost = entry.G
			return nil
		}

		if err := p.expandState(sid); err != nil {
			return err
		}
		p.stats.Expansions++
		if p.stats.Expansions > maxExpansions {
			return errors.Wrapf(ErrExpansionBudgetExceeded, "budget %d", maxExpansions)
		}
	}
	return ErrNoPathFound
}

func (p *Planner) expandState(sid xytheta.StateID) error {
	entry := p.table.Find(sid)
	searchNum := p.stats.SearchNum
	if entry.IsClosed(searchNum) {
		p.logger.Errorw("expanding a closed state", "state", sid)
		return nil
	}

	env := p.pc.Env
	curr := sid.GraphState()
	freeTurn := p.pc.AllowFreeTurnInPlaceAtGoal && lo.ContainsBy(p.goals, func(g activeGoal) bool {
		return g.graph.SameXY(curr)
	})

	it := env.GetSuccessors(sid, entry.G, false)
	for it.Next() {
		succ := it.Front()
		p.stats.Considerations++

		newG := succ.G
		if freeTurn {
			if prim, ok := env.ActionSpace().Primitive(curr.Theta, succ.Action); ok && prim.IsTurnInPlace() {
				newG = entry.G
			}
		}

		old := p.table.Find(succ.StateID)
		if old == nil {
			next := p.table.Emplace(succ.StateID, StateEntry{
				G:           newG,
				Backpointer: sid,
				Action:      succ.Action,
				Penalty:     succ.Penalty,
				ClosedIter:  -1,
			})
			next.OpenHandle = p.open.Insert(succ.StateID, newG+p.heuristic(succ.StateID))
			continue
		}
		if old.IsClosed(searchNum) || newG >= old.G {
			continue
		}
		if err := p.open.Remove(old.OpenHandle); err != nil {
			return errors.Wrapf(err, "state %v is open", succ.StateID)
		}
		old.OpenHandle = p.open.Insert(succ.StateID, newG+p.heuristic(succ.StateID))
		old.G = newG
		old.Backpointer = sid
		old.Action = succ.Action
		old.Penalty = succ.Penalty
	}

	entry.ClosedIter = searchNum
	return nil
}

// buildPlan follows backpointers from the goal found by the search back to the start.
func (p *Planner) buildPlan() {
	p.plan.Clear()
	p.plan.Start = p.start

	curr := p.goalStateID
	for curr != p.startID {
		entry := p.table.Find(curr)
		p.plan.Push(entry.Action, entry.Penalty)
		curr = entry.Backpointer
	}
	slices.Reverse(p.plan.Actions)
}

// Plan returns a copy of the current plan.
func (p *Planner) Plan() *xytheta.Plan {
	return p.plan.Copy()
}

// ChosenGoalID returns the goal the current plan ends at.
func (p *Planner) ChosenGoalID() xytheta.GoalID {
	return p.chosenGoalID
}

// FinalCost returns the cost of the current plan when it was found.
func (p *Planner) FinalCost() float64 {
	return p.finalCost
}

// Stats returns statistics of the most recent search.
func (p *Planner) Stats() Stats {
	return p.stats
}

// PlanIsSafe checks the current plan against the context's obstacles. See Environment.PlanIsSafe.
func (p *Planner) PlanIsSafe(maxDistanceMM float64, currentPathIndex int) (xytheta.State, *xytheta.Plan, bool) {
	return p.pc.Env.PlanIsSafe(p.plan, maxDistanceMM, currentPathIndex)
}

// PathIsSafe checks `path` against the context's obstacles. See Environment.PathIsSafe.
func (p *Planner) PathIsSafe(pth *path.Path, startAngle float64) (*path.Path, bool) {
	return p.pc.Env.PathIsSafe(pth, startAngle)
}

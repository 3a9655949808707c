package navigation

import (
	"github.com/pkg/errors"

	"go.viam.com/latticeplanner/motionplan/latticeplanner"
	"go.viam.com/latticeplanner/motionplan/path"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/utils"
)

// GetCompletePath returns the path the robot at `current` should follow from the part of the plan
// it is on, ending with a turn in place to the goal's heading, along with the goal the plan leads
// to. If the robot is too far from the plan, the plan is dropped and the status becomes
// StatusError.
func (s *Service) GetCompletePath(current xytheta.State) (*path.Path, xytheta.GoalID, error) {
	switch s.Status() {
	case StatusRunning, StatusReady:
		return nil, 0, ErrNotComplete
	case StatusError:
		return nil, 0, errors.Wrap(ErrNotComplete, "planner is in an error state")
	case StatusCompleteWithPlan, StatusCompleteNoPlan:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	space := s.pc.Env.ActionSpace()
	planIdx, offset := s.pc.Env.FindClosestPlanSegmentToPose(s.totalPlan, current)
	if offset >= s.cfg.PlanErrorForReplanMM {
		s.logger.Infow("robot is too far from the plan",
			"offset_mm", offset,
			"plan_idx", planIdx,
			"pose", current)
		s.totalPlan.Clear()
		s.setError(ErrTooFarFromPlan)
		return nil, 0, ErrTooFarFromPlan
	}

	p := path.NewPath()
	space.AppendToPath(s.totalPlan, p, planIdx)

	endX, endY, endAngle := current.XMM, current.YMM, current.Theta
	if !s.totalPlan.Empty() {
		end := space.GraphToState(space.GetPlanFinalState(s.totalPlan))
		endX, endY = end.XMM, end.YMM
	}
	for last := p.Last(); last != nil && last.Type == path.SegmentPointTurn; last = p.Last() {
		p.PopBack(1)
	}
	if last := p.Last(); last != nil {
		_, endAngle = last.EndPose()
	}

	goal, ok := s.goals[s.selected]
	if !ok {
		return nil, 0, errors.Errorf("no pose for goal %d", s.selected)
	}
	p.AppendPointTurn(endX, endY, endAngle, goal.Theta,
		terminalPointTurnSpeedRadPS,
		terminalPointTurnAccelRadPS2,
		terminalPointTurnDecelRadPS2,
		utils.DegToRad(terminalPointTurnToleranceDeg),
		true)
	return p, s.selected, nil
}

// CheckIsPathSafe reports whether `p`, driven from its first point at `startAngle`, is clear of
// the current obstacles, and returns the prefix of it that is.
func (s *Service) CheckIsPathSafe(p *path.Path, startAngle float64) (*path.Path, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importObstaclesIfNeeded(true)
	return s.planner.PathIsSafe(p, startAngle)
}

// TestPath replaces the plan with one of the fixed test maneuvers from `start` and returns its path.
// The maneuver's end becomes the only goal.
func (s *Service) TestPath(start xytheta.State, which int) (*path.Path, error) {
	if s.pending.Load() {
		return nil, ErrAlreadyRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	space := s.pc.Env.ActionSpace()
	plan, err := latticeplanner.TestPlan(space.StateToGraph(start), which)
	if err != nil {
		return nil, err
	}
	s.totalPlan = plan
	s.selected = 0
	s.goals = map[xytheta.GoalID]xytheta.State{
		s.selected: space.GraphToState(space.GetPlanFinalState(plan)),
	}
	s.status.Store(int32(StatusCompleteWithPlan))

	p := path.NewPath()
	space.AppendToPath(plan, p, 0)
	return p, nil
}

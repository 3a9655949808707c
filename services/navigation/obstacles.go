package navigation

import (
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/spatialmath"
)

// importObstaclesIfNeeded rebuilds the planner's obstacles from the raw ones when they changed or
// when switching between replan and planning padding. Checking an old plan uses slightly smaller
// padding than planning, so that a plan doesn't become unsafe the moment the robot drifts toward
// an obstacle it was planned close to. It must be called with mu held.
func (s *Service) importObstaclesIfNeeded(isReplanning bool) {
	if s.importedV == s.obstacleV && s.importedReplan == isReplanning {
		return
	}

	obstaclePadding := s.cfg.ObstaclePaddingMM
	robotPadding := s.cfg.RobotPaddingMM
	if isReplanning {
		obstaclePadding -= s.cfg.ReplanPaddingSubtractMM
		robotPadding -= s.cfg.ReplanPaddingSubtractMM
	}

	// the environment keeps its previous obstacles if the footprint is unusable
	footprint, err := s.cfg.Footprint.Polygon(robotPadding)
	if err != nil {
		s.logger.Errorw("invalid robot footprint, keeping previous obstacles", "error", err)
		return
	}
	footprint = footprint.Scale(s.cfg.RobotExpansionScaling)

	env := s.pc.Env
	space := env.ActionSpace()
	robots := make([]spatialmath.ConvexPolygon, space.NumAngles())
	for theta := range robots {
		robots[theta] = footprint.Rotate(space.LookupTheta(xytheta.GraphTheta(theta)))
	}
	padded := make([]spatialmath.ConvexPolygon, 0, len(s.obstacles))
	for _, raw := range s.obstacles {
		padded = append(padded, raw.RadialExpand(obstaclePadding))
	}
	if err := env.ReplaceObstaclesWithExpansion(padded, robots, s.cfg.ObstacleCost); err != nil {
		s.logger.Warnw("dropping obstacles", "error", err)
	}
	s.importedV = s.obstacleV
	s.importedReplan = isReplanning

	s.logger.CDebugw(s.workers.Context(), "imported obstacles",
		"obstacles", env.NumObstacles(),
		"replanning", isReplanning,
		"obstacle_padding_mm", obstaclePadding,
		"robot_padding_mm", robotPadding)
}

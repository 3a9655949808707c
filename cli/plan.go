package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/latticeplanner/config"
	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/latticeplanner"
	"go.viam.com/latticeplanner/motionplan/path"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/services/navigation"
	"go.viam.com/latticeplanner/spatialmath"
)

// planResult is the outcome of replaying one context dump.
type planResult struct {
	File         string         `json:"file,omitempty"`
	GoalID       xytheta.GoalID `json:"goal_id"`
	Cost         float64        `json:"cost"`
	Plan         *xytheta.Plan  `json:"plan,omitempty"`
	Expansions   uint32         `json:"expansions"`
	Considered   uint32         `json:"considerations"`
	HeurExpanded uint32         `json:"heur_expansions"`
	Duration     time.Duration  `json:"duration_ns"`
	Err          string         `json:"error,omitempty"`
}

// replayContext loads a planner context dump and searches it from scratch.
func replayContext(
	ctx context.Context,
	cfg *config.Config,
	space *xytheta.ActionSpace,
	file string,
	maxExpansions uint32,
	logger logging.Logger,
) (*planResult, error) {
	pc, err := xytheta.ReadPlannerContext(file, space)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	opts, err := latticeplanner.NewPlannerOptionsFromExtra(cfg.Navigation.Planner)
	if err != nil {
		return nil, err
	}
	pc.Env.PrepareForPlanning()
	planner := latticeplanner.New(pc, opts, logger)

	start := time.Now()
	err = planner.Replan(ctx, maxExpansions)
	stats := planner.Stats()
	result := &planResult{
		File:         file,
		Expansions:   stats.Expansions,
		Considered:   stats.Considerations,
		HeurExpanded: stats.HeurExpansions,
		Duration:     time.Since(start),
	}
	if err != nil {
		result.Err = err.Error()
		return result, err
	}
	result.GoalID = planner.ChosenGoalID()
	result.Cost = planner.FinalCost()
	result.Plan = planner.Plan()
	return result, nil
}

// PlanAction runs a single search and prints its result.
func PlanAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	space, err := cfg.ActionSpace()
	if err != nil {
		return err
	}

	if file := c.Path(flagContext); file != "" {
		ctx := c.Context
		if c.Bool(flagDebugSearch) {
			ctx = logging.EnableDebugMode(ctx)
		}
		result, err := replayContext(ctx, cfg, space, file, uint32(c.Uint(flagMaxExpansions)), logger)
		if err != nil {
			return err
		}
		printf(c.App.Writer, "goal %d, cost %.4f, %d actions, %d expansions in %v",
			result.GoalID, result.Cost, result.Plan.Size(), result.Expansions, result.Duration)
		printf(c.App.Writer, "%s", space.PlanString(result.Plan))
		if out := c.Path(flagOut); out != "" {
			return writeJSON(c.App.Writer, out, result)
		}
		return nil
	}

	p, goalID, err := planWithService(c, cfg, space, logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "goal %d, %d segments, %.1fmm", goalID, p.NumSegments(), p.Length())
	for _, seg := range p.Segments() {
		printf(c.App.Writer, "\t%s", seg)
	}
	if out := c.Path(flagOut); out != "" {
		return writeJSON(c.App.Writer, out, p)
	}
	return nil
}

// planWithService plans through the navigation service, so obstacles get the configured padding
// and the path ends with the turn to the goal heading.
func planWithService(
	c *cli.Context,
	cfg *config.Config,
	space *xytheta.ActionSpace,
	logger logging.Logger,
) (*path.Path, xytheta.GoalID, error) {
	goalList, _ := c.Generic(flagGoal).(*poseList)
	if c.String(flagStart) == "" || goalList == nil || len(*goalList) == 0 {
		return nil, 0, errors.New("either --context or both --start and --goal are required")
	}
	start, err := parsePose(c.String(flagStart))
	if err != nil {
		return nil, 0, err
	}
	goals := make(map[xytheta.GoalID]xytheta.State, len(*goalList))
	for i, goal := range *goalList {
		goals[xytheta.GoalID(i)] = goal
	}
	var obstacles []spatialmath.ConvexPolygon
	if boxes, ok := c.Generic(flagObstacle).(*boxList); ok && boxes != nil {
		obstacles = *boxes
	}

	navCfg := cfg.Navigation
	navCfg.Synchronous = true
	if maxExpansions := c.Uint(flagMaxExpansions); maxExpansions > 0 {
		planner := make(map[string]interface{}, len(navCfg.Planner)+1)
		for k, v := range navCfg.Planner {
			planner[k] = v
		}
		planner["max_expansions"] = maxExpansions
		navCfg.Planner = planner
	}
	svc, err := navigation.New(navCfg, space, logger.Sublogger("navigation"))
	if err != nil {
		return nil, 0, err
	}
	defer svc.Close()

	svc.SetObstacles(obstacles)
	if _, err := svc.ComputePath(start, goals); err != nil {
		return nil, 0, err
	}
	if err := svc.LastError(); err != nil && svc.Status() == navigation.StatusError {
		return nil, 0, err
	}
	return svc.GetCompletePath(start)
}

package navigation

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/latticeplanner/motionplan/latticeplanner"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/spatialmath"
	"go.viam.com/latticeplanner/utils"
)

const (
	defaultObstaclePaddingMM       = 6.
	defaultRobotPaddingMM          = 7.
	defaultReplanPaddingSubtractMM = 5.
	defaultRobotExpansionScaling   = 1.2
	defaultPlanErrorForReplanMM    = 20.
	defaultReuseDistanceMM         = 40.

	terminalPointTurnSpeedRadPS   = 2.
	terminalPointTurnAccelRadPS2  = 10.
	terminalPointTurnDecelRadPS2  = 10.
	terminalPointTurnToleranceDeg = 5.
)

// Footprint is the robot's outline with the drive center at the origin, facing +x.
type Footprint struct {
	FrontMM     float64 `json:"front_mm" yaml:"front_mm"`
	BackMM      float64 `json:"back_mm" yaml:"back_mm"`
	HalfWidthMM float64 `json:"half_width_mm" yaml:"half_width_mm"`
}

// Polygon returns the footprint grown by paddingMM on every side.
func (f Footprint) Polygon(paddingMM float64) (spatialmath.ConvexPolygon, error) {
	return spatialmath.NewAxisAlignedRectangle(
		-f.BackMM-paddingMM, -f.HalfWidthMM-paddingMM,
		f.FrontMM+paddingMM, f.HalfWidthMM+paddingMM,
	)
}

// Config describes how to configure the service.
type Config struct {
	Footprint Footprint `json:"footprint" yaml:"footprint"`

	// Padding added around every obstacle and around the robot before expanding obstacles into
	// configuration space. Both shrink by ReplanPaddingSubtractMM when checking an old plan.
	ObstaclePaddingMM       float64 `json:"obstacle_padding_mm" yaml:"obstacle_padding_mm"`
	RobotPaddingMM          float64 `json:"robot_padding_mm" yaml:"robot_padding_mm"`
	ReplanPaddingSubtractMM float64 `json:"replan_padding_subtract_mm" yaml:"replan_padding_subtract_mm"`

	// The padded footprint is scaled by this so corners aren't clipped.
	RobotExpansionScaling float64 `json:"robot_expansion_scaling" yaml:"robot_expansion_scaling"`

	ObstacleCost float64 `json:"obstacle_cost" yaml:"obstacle_cost"`

	// The old plan is dropped once the robot is this far from it.
	PlanErrorForReplanMM float64 `json:"plan_error_for_replan_mm" yaml:"plan_error_for_replan_mm"`

	// How far ahead of the robot the old plan is kept when it is partly unsafe.
	ReuseDistanceMM float64 `json:"reuse_distance_mm" yaml:"reuse_distance_mm"`

	// Plan only to the goal closest to the robot that is outside obstacles, rather than to every goal.
	SingleGoal bool `json:"single_goal" yaml:"single_goal"`

	// Plan on the calling goroutine.
	Synchronous bool `json:"synchronous" yaml:"synchronous"`

	// Each search writes its planner context here when set.
	ContextDumpDir string `json:"context_dump_dir,omitempty" yaml:"context_dump_dir,omitempty"`

	// Extra delay before each search, for exercising callers against a slow planner.
	ArtificialDelayMS int `json:"artificial_delay_ms,omitempty" yaml:"artificial_delay_ms,omitempty"`

	// Planner options, keyed by their json names.
	Planner map[string]interface{} `json:"planner,omitempty" yaml:"planner,omitempty"`
}

// DefaultConfig returns the configuration of the default robot.
func DefaultConfig() Config {
	return Config{
		Footprint: Footprint{
			FrontMM:     60,
			BackMM:      30,
			HalfWidthMM: 28,
		},
		ObstaclePaddingMM:       defaultObstaclePaddingMM,
		RobotPaddingMM:          defaultRobotPaddingMM,
		ReplanPaddingSubtractMM: defaultReplanPaddingSubtractMM,
		RobotExpansionScaling:   defaultRobotExpansionScaling,
		ObstacleCost:            xytheta.DefaultObstacleCost,
		PlanErrorForReplanMM:    defaultPlanErrorForReplanMM,
		ReuseDistanceMM:         defaultReuseDistanceMM,
	}
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	var errs error
	field := func(name string) string {
		return fmt.Sprintf("%s.%s", path, name)
	}
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(field(name), errors.New("must be positive")))
		}
	}

	positive("footprint", config.Footprint.FrontMM+config.Footprint.BackMM)
	positive("footprint.half_width_mm", config.Footprint.HalfWidthMM)
	positive("robot_expansion_scaling", config.RobotExpansionScaling)
	positive("plan_error_for_replan_mm", config.PlanErrorForReplanMM)
	if config.ObstaclePaddingMM < config.ReplanPaddingSubtractMM || config.RobotPaddingMM < config.ReplanPaddingSubtractMM {
		errs = multierr.Append(errs, utils.NewConfigValidationError(field("replan_padding_subtract_mm"),
			errors.New("must not be larger than either padding")))
	}
	if config.ReplanPaddingSubtractMM < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(field("replan_padding_subtract_mm"),
			errors.New("can't be negative")))
	}
	if config.ObstacleCost <= 0 || config.ObstacleCost > xytheta.MaxObstacleCost {
		errs = multierr.Append(errs, utils.NewConfigValidationError(field("obstacle_cost"),
			errors.Errorf("must be in (0, %v]", xytheta.MaxObstacleCost)))
	}
	if config.ReuseDistanceMM < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(field("reuse_distance_mm"), errors.New("can't be negative")))
	}
	if config.ArtificialDelayMS < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(field("artificial_delay_ms"), errors.New("can't be negative")))
	}
	if _, err := latticeplanner.NewPlannerOptionsFromExtra(config.Planner); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(field("planner"), err))
	}
	return errs
}

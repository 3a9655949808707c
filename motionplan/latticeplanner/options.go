package latticeplanner

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// default values for planner options.
const (
	// Expansions allowed by a plain Replan before giving up.
	DefaultMaxExpansions = 30000000

	// A cached plan is kept if it is still safe for this far ahead of the robot, in mm.
	DefaultReuseDistanceMM = 40.

	// Backward expansions allowed while escaping a soft obstacle around a goal.
	defaultMaxHeurExpansions = 1000

	// Goals whose soft obstacle costs more than this to leave are dropped.
	defaultMaxCostHeurExpansions = 1000.

	// Number of times the backward expansion must leave the soft obstacle.
	defaultNumEscapes = 1
)

// PlannerOptions tune the lattice search.
type PlannerOptions struct {
	// Expansion budget used by callers that don't pass their own.
	MaxExpansions uint32 `json:"max_expansions"`

	// How far along a cached plan must still be safe for Replan to keep it, in mm.
	ReuseDistanceMM float64 `json:"reuse_distance_mm"`

	// Cap on backward expansions out of a goal's soft obstacle.
	MaxHeurExpansions int `json:"max_heur_expansions"`

	// Goals that cost more than this to leave their soft obstacle are dropped.
	MaxCostHeurExpansions float64 `json:"max_cost_heur_expansions"`

	// How many times the backward expansion leaves the soft obstacle before stopping.
	NumEscapes int `json:"collision_goal_heuristic_num_escapes"`
}

// NewBasicPlannerOptions returns the default options.
func NewBasicPlannerOptions() *PlannerOptions {
	return &PlannerOptions{
		MaxExpansions:         DefaultMaxExpansions,
		ReuseDistanceMM:       DefaultReuseDistanceMM,
		MaxHeurExpansions:     defaultMaxHeurExpansions,
		MaxCostHeurExpansions: defaultMaxCostHeurExpansions,
		NumEscapes:            defaultNumEscapes,
	}
}

// NewPlannerOptionsFromExtra returns the default options updated by the values found in a free-form
// map, keyed by the options' json names.
func NewPlannerOptionsFromExtra(extra map[string]interface{}) (*PlannerOptions, error) {
	opt := NewBasicPlannerOptions()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           opt,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(extra); err != nil {
		return nil, errors.Wrap(err, "decoding planner options")
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// Validate reports every out of range option.
func (opt *PlannerOptions) Validate() error {
	var errs error
	if opt.MaxExpansions == 0 {
		errs = multierr.Append(errs, errors.New("max_expansions must be positive"))
	}
	if opt.ReuseDistanceMM < 0 {
		errs = multierr.Append(errs, errors.New("reuse_distance_mm can't be negative"))
	}
	if opt.MaxHeurExpansions <= 0 {
		errs = multierr.Append(errs, errors.New("max_heur_expansions must be positive"))
	}
	if opt.MaxCostHeurExpansions <= 0 {
		errs = multierr.Append(errs, errors.New("max_cost_heur_expansions must be positive"))
	}
	if opt.NumEscapes <= 0 {
		errs = multierr.Append(errs, errors.New("collision_goal_heuristic_num_escapes must be positive"))
	}
	return errs
}

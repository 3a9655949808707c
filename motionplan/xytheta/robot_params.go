package xytheta

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	defaultMaxVelocityMMPS        = 60.
	defaultMaxReverseVelocityMMPS = 25.
	defaultHalfWheelBaseMM        = 24.
	defaultPointTurnSpeedRadPS    = 2.
	defaultPointTurnAccelRadPS2   = 10.
	defaultLinearAccelMMPS2       = 200.
)

// RobotParams describes the drive base that primitive costs and path speed profiles are computed for.
type RobotParams struct {
	MaxVelocityMMPS        float64 `json:"max_velocity_mmps" mapstructure:"max_velocity_mmps" yaml:"max_velocity_mmps"`
	MaxReverseVelocityMMPS float64 `json:"max_reverse_velocity_mmps" mapstructure:"max_reverse_velocity_mmps" yaml:"max_reverse_velocity_mmps"`
	HalfWheelBaseMM        float64 `json:"half_wheel_base_mm" mapstructure:"half_wheel_base_mm" yaml:"half_wheel_base_mm"`
	PointTurnSpeedRadPS    float64 `json:"point_turn_speed_radps" mapstructure:"point_turn_speed_radps" yaml:"point_turn_speed_radps"`
	PointTurnAccelRadPS2   float64 `json:"point_turn_accel_radps2" mapstructure:"point_turn_accel_radps2" yaml:"point_turn_accel_radps2"`
	LinearAccelMMPS2       float64 `json:"linear_accel_mmps2" mapstructure:"linear_accel_mmps2" yaml:"linear_accel_mmps2"`
}

// DefaultRobotParams returns the parameters of the default drive base.
func DefaultRobotParams() RobotParams {
	return RobotParams{
		MaxVelocityMMPS:        defaultMaxVelocityMMPS,
		MaxReverseVelocityMMPS: defaultMaxReverseVelocityMMPS,
		HalfWheelBaseMM:        defaultHalfWheelBaseMM,
		PointTurnSpeedRadPS:    defaultPointTurnSpeedRadPS,
		PointTurnAccelRadPS2:   defaultPointTurnAccelRadPS2,
		LinearAccelMMPS2:       defaultLinearAccelMMPS2,
	}
}

// OneOverMaxVelocity converts a distance in mm to the fastest possible travel time.
func (p RobotParams) OneOverMaxVelocity() float64 {
	return 1 / p.MaxVelocityMMPS
}

// Validate returns every invalid field.
func (p RobotParams) Validate() error {
	var errs error
	check := func(name string, v float64) {
		if v <= 0 {
			errs = multierr.Append(errs, errors.Errorf("%s must be positive, got %f", name, v))
		}
	}
	check("max_velocity_mmps", p.MaxVelocityMMPS)
	check("max_reverse_velocity_mmps", p.MaxReverseVelocityMMPS)
	check("half_wheel_base_mm", p.HalfWheelBaseMM)
	check("point_turn_speed_radps", p.PointTurnSpeedRadPS)
	check("point_turn_accel_radps2", p.PointTurnAccelRadPS2)
	check("linear_accel_mmps2", p.LinearAccelMMPS2)
	return errs
}

// Package config defines the file format that configures the planner tools: the motion primitives
// to load or generate, the navigation service, and logging.
package config

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/primgen"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/services/navigation"
	"go.viam.com/latticeplanner/utils"
)

// Primitives selects the motion primitives. An asset file is loaded when AssetPath is set,
// otherwise primitives are generated from Generate.
type Primitives struct {
	AssetPath  string            `json:"asset_path,omitempty" yaml:"asset_path,omitempty"`
	DumpFormat bool              `json:"dump_format,omitempty" yaml:"dump_format,omitempty"`
	Generate   primgen.GenParams `json:"generate" yaml:"generate"`
}

// Config is the whole configuration of the planner tools.
type Config struct {
	ConfigFilePath string `json:"-" yaml:"-"`

	Primitives Primitives        `json:"primitives" yaml:"primitives"`
	Navigation navigation.Config `json:"navigation" yaml:"navigation"`

	Debug     bool                          `json:"debug,omitempty" yaml:"debug,omitempty"`
	LogConfig []logging.LoggerPatternConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Primitives: Primitives{Generate: primgen.DefaultGenParams()},
		Navigation: navigation.DefaultConfig(),
	}
}

// Validate returns every problem with the config.
func (c *Config) Validate() error {
	var errs error
	if c.Primitives.AssetPath == "" {
		if err := c.Primitives.Generate.Robot.Validate(); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError("primitives.generate.robot_params", err))
		}
		if c.Primitives.Generate.ResolutionMM <= 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("primitives.generate", "resolution_mm"))
		}
	}
	errs = multierr.Append(errs, c.Navigation.Validate("navigation"))
	for i, lpc := range c.LogConfig {
		if !logging.ValidatePattern(lpc.Pattern) {
			errs = multierr.Append(errs, errors.Errorf("log[%d]: invalid pattern %q", i, lpc.Pattern))
		}
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "log[%d]", i))
		}
	}
	return errs
}

// ActionSpace loads or generates the configured motion primitives.
func (c *Config) ActionSpace() (*xytheta.ActionSpace, error) {
	if c.Primitives.AssetPath != "" {
		return xytheta.ReadMotionPrims(c.Primitives.AssetPath, c.Primitives.DumpFormat)
	}
	return primgen.GenerateActionSpace(c.Primitives.Generate)
}

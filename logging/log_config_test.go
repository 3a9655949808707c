package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		isValid bool
	}{
		{"latticeplanner", true},
		{"latticeplanner.search", true},
		{"latticeplanner.*", true},
		{"*.search", true},
		{"*", true},
		{"navigation.worker-1", true},

		{"latticeplanner..search", false},
		{"latticeplanner.", false},
		{".latticeplanner", false},
		{"latticeplanner.**", false},
		{"_.latticeplanner", false},
		{"latticeplanner.-", false},
	}

	for _, tc := range tests {
		t.Run(tc.pattern, func(t *testing.T) {
			test.That(t, ValidatePattern(tc.pattern), test.ShouldEqual, tc.isValid)
		})
	}
}

func TestRegistryUpdateConfig(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"latticeplanner", "latticeplanner.search", "navigation", "cli"} {
		registry.GetOrRegister(name, NewBlankLogger(name))
	}
	test.That(t, registry.Names(), test.ShouldResemble,
		[]string{"cli", "latticeplanner", "latticeplanner.search", "navigation"})

	err := registry.UpdateConfig([]LoggerPatternConfig{
		{Pattern: "latticeplanner.*", Level: "warn"},
		{Pattern: "navigation", Level: "debug"},
		{Pattern: "bad..pattern", Level: "error"},
	}, NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	expected := map[string]Level{
		"latticeplanner":        INFO,
		"latticeplanner.search": WARN,
		"navigation":            DEBUG,
		"cli":                   INFO,
	}
	for name, level := range expected {
		logger, ok := registry.LoggerNamed(name)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, logger.GetLevel(), test.ShouldEqual, level)
	}

	// late registrations pick up the stored patterns
	late := registry.GetOrRegister("latticeplanner.heuristic", NewBlankLogger("late"))
	test.That(t, late.GetLevel(), test.ShouldEqual, WARN)
	test.That(t, registry.GetOrRegister("latticeplanner.heuristic", NewBlankLogger("other")), test.ShouldEqual, late)

	err = registry.UpdateConfig([]LoggerPatternConfig{{Pattern: "cli", Level: "loud"}}, NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

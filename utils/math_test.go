package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestWrapRadians(t *testing.T) {
	test.That(t, WrapRadians(0), test.ShouldEqual, 0.)
	test.That(t, WrapRadians(math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, WrapRadians(-math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, WrapRadians(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, WrapRadians(-5*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, WrapRadians(4*math.Pi+0.1), test.ShouldAlmostEqual, 0.1)
}

func TestAngleDiff(t *testing.T) {
	test.That(t, AngleDiff(0.1, -0.1), test.ShouldAlmostEqual, 0.2)
	test.That(t, AngleDiff(-3.1, 3.1), test.ShouldAlmostEqual, 2*math.Pi-6.2)
	test.That(t, AngleDiff(3.1, -3.1), test.ShouldAlmostEqual, 6.2-2*math.Pi)
}

func TestTolerances(t *testing.T) {
	test.That(t, NearZero(FloatTolerance/2), test.ShouldBeTrue)
	test.That(t, NearZero(-FloatTolerance*2), test.ShouldBeFalse)
	test.That(t, RadToDeg(DegToRad(30)), test.ShouldAlmostEqual, 30)
}

package utils

import "math"

// FloatTolerance is the comparison tolerance for planner costs and penalties.
const FloatTolerance = 1e-5

// NearZero reports whether |x| is within FloatTolerance of zero.
func NearZero(x float64) bool {
	return math.Abs(x) <= FloatTolerance
}

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// WrapRadians maps an angle into (-pi, pi].
func WrapRadians(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta <= -math.Pi {
		theta += 2 * math.Pi
	} else if theta > math.Pi {
		theta -= 2 * math.Pi
	}
	return theta
}

// AngleDiff returns the signed shortest rotation from `from` to `to`, in (-pi, pi].
func AngleDiff(to, from float64) float64 {
	return WrapRadians(to - from)
}

package path

import (
	"encoding/json"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestLineSegment(t *testing.T) {
	fwd := NewLine(0, 0, 10, 10, 60, 100, 100)
	test.That(t, fwd.Length(), test.ShouldAlmostEqual, math.Sqrt(200))
	test.That(t, fwd.Line.EndAngle, test.ShouldAlmostEqual, math.Pi/4)
	test.That(t, fwd.StartAngle(), test.ShouldAlmostEqual, math.Pi/4)

	back := NewLine(0, 0, -10, 0, -25, 100, 100)
	test.That(t, back.Line.EndAngle, test.ShouldAlmostEqual, 0)

	moved := fwd.Offset(5, -5)
	test.That(t, moved.StartPoint().X, test.ShouldAlmostEqual, 5)
	test.That(t, moved.StartPoint().Y, test.ShouldAlmostEqual, -5)
	end, angle := moved.EndPose()
	test.That(t, end.X, test.ShouldAlmostEqual, 15)
	test.That(t, end.Y, test.ShouldAlmostEqual, 5)
	test.That(t, angle, test.ShouldAlmostEqual, math.Pi/4)
	// the original is untouched
	test.That(t, fwd.Line.StartX, test.ShouldEqual, 0.)
}

func TestArcSegment(t *testing.T) {
	// quarter circle to the left starting at (0, 0) heading along +x
	arc := NewArc(0, 40, 40, -math.Pi/2, math.Pi/2, 60, 100, 100)
	test.That(t, arc.Length(), test.ShouldAlmostEqual, 20*math.Pi)
	test.That(t, arc.StartAngle(), test.ShouldAlmostEqual, 0)
	start := arc.StartPoint()
	test.That(t, start.X, test.ShouldAlmostEqual, 0)
	test.That(t, start.Y, test.ShouldAlmostEqual, 0)
	end, angle := arc.EndPose()
	test.That(t, end.X, test.ShouldAlmostEqual, 40)
	test.That(t, end.Y, test.ShouldAlmostEqual, 40)
	test.That(t, angle, test.ShouldAlmostEqual, math.Pi/2)

	right := NewArc(0, -40, 40, math.Pi/2, -math.Pi/2, 60, 100, 100)
	_, angle = right.EndPose()
	test.That(t, angle, test.ShouldAlmostEqual, -math.Pi/2)

	moved := arc.Offset(1, 2)
	test.That(t, moved.Arc.CenterX, test.ShouldEqual, 1.)
	test.That(t, moved.Arc.CenterY, test.ShouldEqual, 42.)
}

func TestPointTurnSegment(t *testing.T) {
	turn := NewPointTurn(3, 4, 0, math.Pi/2, 2, 10, 10, 0.01, true)
	test.That(t, turn.Length(), test.ShouldEqual, 0.)
	test.That(t, turn.StartAngle(), test.ShouldEqual, 0.)
	end, angle := turn.EndPose()
	test.That(t, end.X, test.ShouldEqual, 3.)
	test.That(t, end.Y, test.ShouldEqual, 4.)
	test.That(t, angle, test.ShouldEqual, math.Pi/2)
}

func TestAppendArcSplits(t *testing.T) {
	p := &Path{}
	test.That(t, p.AppendArc(0, 0, 10, -math.Pi/4, math.Pi, 60, 100, 100), test.ShouldBeNil)
	test.That(t, p.NumSegments(), test.ShouldEqual, 2)
	test.That(t, p.Segment(0).Arc.SweepRad, test.ShouldAlmostEqual, math.Pi/4)
	test.That(t, p.Segment(1).Arc.StartRad, test.ShouldAlmostEqual, 0)
	test.That(t, p.Segment(1).Arc.SweepRad, test.ShouldAlmostEqual, 3*math.Pi/4)
	test.That(t, p.CheckContinuity(1e-6, -1), test.ShouldBeTrue)

	p.Clear()
	test.That(t, p.AppendArc(0, 0, 10, math.Pi/2, -2*math.Pi, 60, 100, 100), test.ShouldBeNil)
	test.That(t, p.NumSegments(), test.ShouldEqual, 3)
	var total float64
	for _, s := range p.Segments() {
		test.That(t, s.Arc.SweepRad, test.ShouldBeLessThan, 0)
		total += s.Arc.SweepRad
	}
	test.That(t, total, test.ShouldAlmostEqual, -2*math.Pi)
	test.That(t, p.CheckContinuity(1e-6, -1), test.ShouldBeTrue)
	test.That(t, p.Length(), test.ShouldAlmostEqual, 20*math.Pi)

	test.That(t, p.AppendArc(0, 0, 10, 0, 0, 60, 100, 100), test.ShouldBeError, ErrZeroSweep)
}

func TestPopAndContinuity(t *testing.T) {
	p := NewPath(
		NewLine(0, 0, 10, 0, 60, 100, 100),
		NewPointTurn(10, 0, 0, math.Pi/2, 2, 10, 10, 0.01, true),
		NewLine(10, 0, 10, 20, 60, 100, 100),
	)
	test.That(t, p.NumSegments(), test.ShouldEqual, 3)
	test.That(t, p.CheckContinuity(1e-6, -1), test.ShouldBeTrue)
	test.That(t, p.CheckContinuity(1e-6, 3), test.ShouldBeFalse)

	p.AppendLine(11, 20, 20, 20, 60, 100, 100)
	test.That(t, p.CheckContinuity(1e-6, 3), test.ShouldBeFalse)
	test.That(t, p.CheckContinuity(1.01, 3), test.ShouldBeTrue)
	test.That(t, p.CheckContinuity(1e-6, -1), test.ShouldBeFalse)

	test.That(t, p.PopBack(5), test.ShouldBeFalse)
	test.That(t, p.NumSegments(), test.ShouldEqual, 4)
	test.That(t, p.PopBack(1), test.ShouldBeTrue)
	test.That(t, p.PopFront(1), test.ShouldBeTrue)
	test.That(t, p.NumSegments(), test.ShouldEqual, 2)
	test.That(t, p.Segment(0).Type, test.ShouldEqual, SegmentPointTurn)
	test.That(t, p.PopFront(3), test.ShouldBeFalse)
	test.That(t, p.PopFront(2), test.ShouldBeTrue)
	test.That(t, p.NumSegments(), test.ShouldEqual, 0)
	test.That(t, p.Last(), test.ShouldBeNil)
}

func TestPathJSON(t *testing.T) {
	p := NewPath(
		NewLine(0, 0, 10, 0, 60, 100, 100),
		NewArc(10, 40, 40, -math.Pi/2, math.Pi/4, 60, 100, 100),
		NewPointTurn(1, 2, 0, 1, -2, 10, 10, 0.1, false),
	)
	data, err := json.Marshal(p)
	test.That(t, err, test.ShouldBeNil)

	var out Path
	test.That(t, json.Unmarshal(data, &out), test.ShouldBeNil)
	test.That(t, out.Segments(), test.ShouldResemble, p.Segments())

	var bad Segment
	test.That(t, json.Unmarshal([]byte(`{"type":"spiral"}`), &bad), test.ShouldNotBeNil)
}

package xytheta

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/latticeplanner/motionplan/path"
	"go.viam.com/latticeplanner/utils"
)

const (
	// MinPrimitiveCost is the smallest cost a loaded primitive may have.
	MinPrimitiveCost = 1e-4

	// MaxMergedLineLengthMM caps the length of a line built by merging consecutive primitive lines.
	MaxMergedLineLengthMM = 1000.

	segmentMergeTolerance = 1e-4
	collinearTolerance    = 1e-3
)

// ActionType describes one kind of motion available from every heading.
type ActionType struct {
	Index           ActionID `json:"index"`
	Name            string   `json:"name"`
	ExtraCostFactor float64  `json:"extra_cost_factor"`
	Reverse         bool     `json:"reverse_action,omitempty"`
}

func (a ActionType) String() string {
	return a.Name
}

// IntermediatePosition is one collision-checking sample along a primitive, relative to the
// primitive's start.
type IntermediatePosition struct {
	Position     State      `json:"position"`
	NearestTheta GraphTheta `json:"theta"`
	// InverseDist converts an obstacle cost into the penalty for spending this sample inside it.
	InverseDist float64 `json:"inverseDist"`
}

// MotionPrimitive is one action applied from one starting heading.
type MotionPrimitive struct {
	ID         ActionID
	StartTheta GraphTheta
	Cost       float64
	// EndStateOffset holds the x and y offset and the absolute ending heading.
	EndStateOffset        GraphState
	IntermediatePositions []IntermediatePosition
	Segments              []path.Segment

	bounds r2.Rect
}

// Bounds returns the box around the start and every intermediate sample, relative to the start.
func (mp *MotionPrimitive) Bounds() r2.Rect {
	return mp.bounds
}

// IsTurnInPlace reports whether the primitive leaves the robot in the same cell.
func (mp *MotionPrimitive) IsTurnInPlace() bool {
	return mp.EndStateOffset.X == 0 && mp.EndStateOffset.Y == 0
}

func (mp *MotionPrimitive) computeBounds() {
	pts := make([]r2.Point, 0, len(mp.IntermediatePositions)+1)
	pts = append(pts, r2.Point{})
	for _, pt := range mp.IntermediatePositions {
		pts = append(pts, r2.Point{X: pt.Position.XMM, Y: pt.Position.YMM})
	}
	mp.bounds = r2.RectFromPoints(pts...)
}

// AddSegmentsToPath appends the primitive's segments, moved to `start`, to `p`. A line that
// continues the path's final line in the same direction and at the same speed extends it, as long
// as the result is no longer than MaxMergedLineLengthMM. A point turn about the same spot and at the
// same speed as the path's final point turn extends it.
func (mp *MotionPrimitive) AddSegmentsToPath(start State, p *path.Path) {
	for _, seg := range mp.Segments {
		seg = seg.Offset(start.XMM, start.YMM)
		if last := p.Last(); last != nil && mergeSegment(last, seg) {
			continue
		}
		p.AppendSegment(seg)
	}
}

func mergeSegment(last *path.Segment, seg path.Segment) bool {
	if last.Type != seg.Type || last.Speed != seg.Speed {
		return false
	}
	switch seg.Type {
	case path.SegmentLine:
		prev, next := last.Line, seg.Line
		if math.Abs(prev.EndX-next.StartX) >= segmentMergeTolerance || math.Abs(prev.EndY-next.StartY) >= segmentMergeTolerance {
			return false
		}
		d1 := r2.Point{X: prev.EndX - prev.StartX, Y: prev.EndY - prev.StartY}
		d2 := r2.Point{X: next.EndX - next.StartX, Y: next.EndY - next.StartY}
		if math.Abs(d1.Cross(d2)) >= collinearTolerance*d1.Norm()*d2.Norm() || d1.Dot(d2) <= 0 {
			return false
		}
		if math.Hypot(next.EndX-prev.StartX, next.EndY-prev.StartY) > MaxMergedLineLengthMM {
			return false
		}
		last.Line.EndX = next.EndX
		last.Line.EndY = next.EndY
		return true
	case path.SegmentPointTurn:
		if math.Abs(last.Turn.X-seg.Turn.X) >= segmentMergeTolerance || math.Abs(last.Turn.Y-seg.Turn.Y) >= segmentMergeTolerance {
			return false
		}
		last.Turn.TargetAngle = seg.Turn.TargetAngle
		return true
	default:
		return false
	}
}

func (mp *MotionPrimitive) String() string {
	return fmt.Sprintf("prim %d from %d: offset %v cost %f, %d samples",
		mp.ID, mp.StartTheta, mp.EndStateOffset, mp.Cost, len(mp.IntermediatePositions))
}

// segmentTime returns how long the robot takes to drive the segment.
func segmentTime(seg path.Segment, robot RobotParams) float64 {
	speed := math.Abs(seg.Speed.TargetSpeed)
	switch seg.Type {
	case path.SegmentLine:
		return seg.Length() / speed
	case path.SegmentArc:
		// the outer wheel sets the pace
		return math.Abs(seg.Arc.SweepRad) * (seg.Arc.Radius + robot.HalfWheelBaseMM) / speed
	default:
		delta := math.Abs(turnSweep(seg.Turn))
		accel := seg.Speed.Accel
		ramp := speed * speed / accel
		if delta >= ramp {
			return 2*speed/accel + (delta-ramp)/speed
		}
		return 2 * math.Sqrt(delta/accel)
	}
}

// turnSweep returns the shortest signed rotation of a point turn.
func turnSweep(turn path.PointTurn) float64 {
	return utils.AngleDiff(turn.TargetAngle, turn.StartAngle)
}

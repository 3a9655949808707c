// Package path defines the drivable geometry produced from a lattice plan: lines, arcs and point
// turns, each with a speed profile, collected into a Path.
package path

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/latticeplanner/utils"
)

// SegmentType identifies the geometry stored in a Segment.
type SegmentType int

// The segment types.
const (
	SegmentLine SegmentType = iota
	SegmentArc
	SegmentPointTurn
)

func (t SegmentType) String() string {
	switch t {
	case SegmentLine:
		return "line"
	case SegmentArc:
		return "arc"
	case SegmentPointTurn:
		return "point_turn"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Line is a straight segment. EndAngle is the heading of the robot while driving it, which points
// backwards for negative speeds.
type Line struct {
	StartX   float64 `json:"start_x_mm"`
	StartY   float64 `json:"start_y_mm"`
	EndX     float64 `json:"end_x_mm"`
	EndY     float64 `json:"end_y_mm"`
	EndAngle float64 `json:"end_angle"`
}

// Arc is a circular segment. StartRad is the angle from the center to the arc's start point and
// SweepRad is positive for counter-clockwise motion.
type Arc struct {
	CenterX  float64 `json:"center_x_mm"`
	CenterY  float64 `json:"center_y_mm"`
	Radius   float64 `json:"radius_mm"`
	StartRad float64 `json:"start_rad"`
	SweepRad float64 `json:"sweep_rad"`
	EndAngle float64 `json:"end_angle"`
}

// PointTurn rotates the robot in place.
type PointTurn struct {
	X              float64 `json:"x_mm"`
	Y              float64 `json:"y_mm"`
	StartAngle     float64 `json:"start_angle"`
	TargetAngle    float64 `json:"target_angle"`
	AngleTolerance float64 `json:"angle_tolerance"`
	UseShortestDir bool    `json:"use_shortest_dir"`
}

// SpeedProfile holds the target speed and acceleration limits for a segment. Speeds are mm/s for
// lines and arcs and rad/s for point turns.
type SpeedProfile struct {
	TargetSpeed float64 `json:"target_speed"`
	Accel       float64 `json:"accel"`
	Decel       float64 `json:"decel"`
}

// Segment is one piece of a Path. Only the geometry matching Type is meaningful.
type Segment struct {
	Type  SegmentType
	Line  Line
	Arc   Arc
	Turn  PointTurn
	Speed SpeedProfile
}

// NewLine returns a line segment from (x0, y0) to (x1, y1).
func NewLine(x0, y0, x1, y1, targetSpeed, accel, decel float64) Segment {
	angle := math.Atan2(y1-y0, x1-x0)
	if targetSpeed < 0 {
		angle += math.Pi
	}
	return Segment{
		Type: SegmentLine,
		Line: Line{
			StartX:   x0,
			StartY:   y0,
			EndX:     x1,
			EndY:     y1,
			EndAngle: utils.WrapRadians(angle),
		},
		Speed: SpeedProfile{targetSpeed, accel, decel},
	}
}

// NewArc returns an arc segment.
func NewArc(centerX, centerY, radius, startRad, sweepRad, targetSpeed, accel, decel float64) Segment {
	radiusAngle := startRad + sweepRad
	if sweepRad > 0 {
		radiusAngle += math.Pi / 2
	} else {
		radiusAngle -= math.Pi / 2
	}
	if targetSpeed < 0 {
		radiusAngle += math.Pi
	}
	return Segment{
		Type: SegmentArc,
		Arc: Arc{
			CenterX:  centerX,
			CenterY:  centerY,
			Radius:   math.Abs(radius),
			StartRad: startRad,
			SweepRad: sweepRad,
			EndAngle: utils.WrapRadians(radiusAngle),
		},
		Speed: SpeedProfile{targetSpeed, accel, decel},
	}
}

// NewPointTurn returns a turn in place at (x, y).
func NewPointTurn(x, y, startAngle, targetAngle, rotSpeed, rotAccel, rotDecel, angleTolerance float64, useShortestDir bool) Segment {
	return Segment{
		Type: SegmentPointTurn,
		Turn: PointTurn{
			X:              x,
			Y:              y,
			StartAngle:     startAngle,
			TargetAngle:    targetAngle,
			AngleTolerance: angleTolerance,
			UseShortestDir: useShortestDir,
		},
		Speed: SpeedProfile{rotSpeed, rotAccel, rotDecel},
	}
}

// Length returns the distance traveled along the segment. Point turns have zero length.
func (s Segment) Length() float64 {
	switch s.Type {
	case SegmentLine:
		return math.Hypot(s.Line.EndX-s.Line.StartX, s.Line.EndY-s.Line.StartY)
	case SegmentArc:
		return math.Abs(s.Arc.SweepRad) * s.Arc.Radius
	default:
		return 0
	}
}

// Offset returns the segment translated by (dx, dy).
func (s Segment) Offset(dx, dy float64) Segment {
	switch s.Type {
	case SegmentLine:
		s.Line.StartX += dx
		s.Line.StartY += dy
		s.Line.EndX += dx
		s.Line.EndY += dy
	case SegmentArc:
		s.Arc.CenterX += dx
		s.Arc.CenterY += dy
	case SegmentPointTurn:
		s.Turn.X += dx
		s.Turn.Y += dy
	}
	return s
}

// StartPoint returns where the segment begins.
func (s Segment) StartPoint() r2.Point {
	switch s.Type {
	case SegmentLine:
		return r2.Point{X: s.Line.StartX, Y: s.Line.StartY}
	case SegmentArc:
		return r2.Point{
			X: s.Arc.CenterX + s.Arc.Radius*math.Cos(s.Arc.StartRad),
			Y: s.Arc.CenterY + s.Arc.Radius*math.Sin(s.Arc.StartRad),
		}
	default:
		return r2.Point{X: s.Turn.X, Y: s.Turn.Y}
	}
}

// StartAngle returns the robot heading at the start of the segment.
func (s Segment) StartAngle() float64 {
	switch s.Type {
	case SegmentLine:
		return s.Line.EndAngle
	case SegmentArc:
		return utils.WrapRadians(s.Arc.EndAngle - s.Arc.SweepRad)
	default:
		return s.Turn.StartAngle
	}
}

// EndPose returns the position and heading at the end of the segment.
func (s Segment) EndPose() (r2.Point, float64) {
	switch s.Type {
	case SegmentLine:
		return r2.Point{X: s.Line.EndX, Y: s.Line.EndY}, s.Line.EndAngle
	case SegmentArc:
		end := s.Arc.StartRad + s.Arc.SweepRad
		return r2.Point{
			X: s.Arc.CenterX + s.Arc.Radius*math.Cos(end),
			Y: s.Arc.CenterY + s.Arc.Radius*math.Sin(end),
		}, s.Arc.EndAngle
	default:
		return r2.Point{X: s.Turn.X, Y: s.Turn.Y}, s.Turn.TargetAngle
	}
}

func (s Segment) String() string {
	switch s.Type {
	case SegmentLine:
		return fmt.Sprintf("line: (%f, %f) to (%f, %f), speed/accel/decel = (%f, %f, %f)",
			s.Line.StartX, s.Line.StartY, s.Line.EndX, s.Line.EndY, s.Speed.TargetSpeed, s.Speed.Accel, s.Speed.Decel)
	case SegmentArc:
		return fmt.Sprintf("arc: center (%f, %f), radius %f, start %f, sweep %f, speed/accel/decel = (%f, %f, %f)",
			s.Arc.CenterX, s.Arc.CenterY, s.Arc.Radius, s.Arc.StartRad, s.Arc.SweepRad,
			s.Speed.TargetSpeed, s.Speed.Accel, s.Speed.Decel)
	case SegmentPointTurn:
		return fmt.Sprintf("point turn: (%f, %f), target %f, tol %fdeg, speed/accel/decel = (%f, %f, %f)",
			s.Turn.X, s.Turn.Y, s.Turn.TargetAngle, utils.RadToDeg(s.Turn.AngleTolerance),
			s.Speed.TargetSpeed, s.Speed.Accel, s.Speed.Decel)
	default:
		return s.Type.String()
	}
}

type segmentJSON struct {
	Type  string       `json:"type"`
	Line  *Line        `json:"line,omitempty"`
	Arc   *Arc         `json:"arc,omitempty"`
	Turn  *PointTurn   `json:"point_turn,omitempty"`
	Speed SpeedProfile `json:"speed"`
}

// MarshalJSON writes only the geometry matching the segment type.
func (s Segment) MarshalJSON() ([]byte, error) {
	out := segmentJSON{Type: s.Type.String(), Speed: s.Speed}
	switch s.Type {
	case SegmentLine:
		out.Line = &s.Line
	case SegmentArc:
		out.Arc = &s.Arc
	case SegmentPointTurn:
		out.Turn = &s.Turn
	default:
		return nil, errors.Errorf("cannot marshal segment of type %v", s.Type)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a segment written by MarshalJSON.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var in segmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Segment{Speed: in.Speed}
	switch {
	case in.Type == SegmentLine.String() && in.Line != nil:
		s.Type = SegmentLine
		s.Line = *in.Line
	case in.Type == SegmentArc.String() && in.Arc != nil:
		s.Type = SegmentArc
		s.Arc = *in.Arc
	case in.Type == SegmentPointTurn.String() && in.Turn != nil:
		s.Type = SegmentPointTurn
		s.Turn = *in.Turn
	default:
		return errors.Errorf("invalid segment of type %q", in.Type)
	}
	return nil
}

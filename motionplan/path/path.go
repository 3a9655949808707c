package path

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/latticeplanner/utils"
)

// ErrZeroSweep is returned when appending an arc that does not turn.
var ErrZeroSweep = errors.New("arc sweep is zero")

// Path is an ordered list of segments.
type Path struct {
	segments []Segment
}

// NewPath returns a path holding copies of the given segments.
func NewPath(segments ...Segment) *Path {
	p := &Path{}
	for _, s := range segments {
		p.AppendSegment(s)
	}
	return p
}

// NumSegments returns the number of segments in the path.
func (p *Path) NumSegments() int {
	return len(p.segments)
}

// Segment returns the i-th segment.
func (p *Path) Segment(i int) Segment {
	return p.segments[i]
}

// Segments returns a copy of the segment list.
func (p *Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Last returns a pointer to the final segment so it can be extended in place, or nil when empty.
func (p *Path) Last() *Segment {
	if len(p.segments) == 0 {
		return nil
	}
	return &p.segments[len(p.segments)-1]
}

// Clear removes every segment.
func (p *Path) Clear() {
	p.segments = p.segments[:0]
}

// Length returns the summed length of every segment.
func (p *Path) Length() float64 {
	var total float64
	for _, s := range p.segments {
		total += s.Length()
	}
	return total
}

// AppendSegment adds a copy of `segment` to the end of the path.
func (p *Path) AppendSegment(segment Segment) {
	p.segments = append(p.segments, segment)
}

// AppendLine adds a line segment.
func (p *Path) AppendLine(x0, y0, x1, y1, targetSpeed, accel, decel float64) {
	p.AppendSegment(NewLine(x0, y0, x1, y1, targetSpeed, accel, decel))
}

// AppendPointTurn adds a turn in place.
func (p *Path) AppendPointTurn(x, y, startAngle, targetAngle, rotSpeed, rotAccel, rotDecel, angleTolerance float64,
	useShortestDir bool,
) {
	p.AppendSegment(NewPointTurn(x, y, startAngle, targetAngle, rotSpeed, rotAccel, rotDecel, angleTolerance, useShortestDir))
}

// AppendArc adds an arc, split into several arcs so that none of them sweeps across the angles 0
// or pi measured from the center.
func (p *Path) AppendArc(centerX, centerY, radius, startRad, sweepRad, targetSpeed, accel, decel float64) error {
	if utils.NearZero(sweepRad) {
		return ErrZeroSweep
	}

	currAngle := utils.WrapRadians(startRad)
	sweepLeft := math.Abs(sweepRad)

	// limit alternates between 0 and pi for as long as the sweep keeps crossing them
	limit := 0.0
	if (currAngle >= 0 && currAngle != math.Pi && sweepRad > 0) || (currAngle < 0 && sweepRad < 0) {
		limit = math.Pi
	}

	for sweepLeft > 0 {
		toLimit := math.Abs(utils.WrapRadians(limit - currAngle))
		var sweep float64
		if sweepRad > 0 {
			sweep = math.Min(toLimit, sweepLeft)
		} else {
			sweep = math.Max(-toLimit, -sweepLeft)
		}

		if !utils.NearZero(sweep) {
			p.AppendSegment(NewArc(centerX, centerY, radius, currAngle, sweep, targetSpeed, accel, decel))
		}

		if math.Abs(sweep) == sweepLeft {
			sweepLeft = 0
		} else {
			currAngle = limit
			sweepLeft -= math.Abs(sweep)
		}

		if limit == 0 {
			limit = math.Pi
		} else {
			limit = 0
		}
	}
	return nil
}

// PopFront removes the first n segments. It returns false, leaving the path unchanged, if the path
// has fewer than n segments.
func (p *Path) PopFront(n int) bool {
	if n < 0 || n > len(p.segments) {
		return false
	}
	p.segments = append(p.segments[:0], p.segments[n:]...)
	return true
}

// PopBack removes the last n segments. It returns false, leaving the path unchanged, if the path
// has fewer than n segments.
func (p *Path) PopBack(n int) bool {
	if n < 0 || n > len(p.segments) {
		return false
	}
	p.segments = p.segments[:len(p.segments)-n]
	return true
}

// CheckContinuity reports whether segment idx starts within sqrt(toleranceSq) of where segment
// idx-1 ends. A negative idx checks every segment.
func (p *Path) CheckContinuity(toleranceSq float64, idx int) bool {
	if idx < 0 {
		for i := range p.segments {
			if !p.checkSegmentContinuity(toleranceSq, i) {
				return false
			}
		}
		return true
	}
	return p.checkSegmentContinuity(toleranceSq, idx)
}

func (p *Path) checkSegmentContinuity(toleranceSq float64, idx int) bool {
	if idx >= len(p.segments) {
		return false
	}
	if idx == 0 {
		return true
	}
	start := p.segments[idx].StartPoint()
	end, _ := p.segments[idx-1].EndPose()
	d := start.Sub(end)
	return d.Dot(d) < toleranceSq
}

func (p *Path) String() string {
	var sb strings.Builder
	for i, s := range p.segments {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}

// MarshalJSON writes the path as a list of segments.
func (p *Path) MarshalJSON() ([]byte, error) {
	if p.segments == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.segments)
}

// UnmarshalJSON reads a list of segments.
func (p *Path) UnmarshalJSON(data []byte) error {
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return err
	}
	p.segments = segments
	return nil
}

package spatialmath

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ExpandCSpace returns the configuration-space obstacle for a robot whose footprint, expressed in
// its own frame, is `robot`: the set of robot origins at which the footprint overlaps `obstacle`.
// This is the Minkowski sum of the obstacle and the negated footprint, which for convex inputs is
// the hull of all pairwise vertex differences.
func ExpandCSpace(obstacle, robot ConvexPolygon) (*FastPolygon, error) {
	if obstacle.Len() == 0 || robot.Len() == 0 {
		return nil, errors.New("cannot expand an empty polygon")
	}

	diffs := make([]r2.Point, 0, obstacle.Len()*robot.Len())
	for _, o := range obstacle.points {
		for _, r := range robot.points {
			diffs = append(diffs, o.Sub(r))
		}
	}
	expanded, err := NewConvexPolygon(diffs...)
	if err != nil {
		return nil, errors.Wrap(err, "c-space expansion")
	}
	return NewFastPolygon(expanded), nil
}
